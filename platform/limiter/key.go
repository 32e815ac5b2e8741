package limiter

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"
)

// Dimensions used to namespace bucket keys.
const (
	DimensionAddr       = "addr"
	DimensionCredential = "credential"
	DimensionDevice     = "device"
	DimensionEmail      = "email"
	DimensionGlobal     = "global"
)

const deviceDigestLen = 16

// KeyFunc derives the bucket dimension and value for a request. Strategies
// are pure, the same request always yields the same key.
type KeyFunc func(*Request) (dimension, value string, err error)

// ByAddr keys on the canonical client network address.
func ByAddr() KeyFunc {
	return func(r *Request) (string, string, error) {
		if r.Addr == "" {
			return "", "", wrapError(ErrMissingKeyInput, "client address not set")
		}

		return DimensionAddr, r.Addr, nil
	}
}

// ByEmail keys on the normalized submitted email. An absent email is a hard
// rejection of the whole check, not a silent skip.
func ByEmail() KeyFunc {
	return func(r *Request) (string, string, error) {
		email := strings.ToLower(strings.TrimSpace(r.Email))

		if email == "" {
			return "", "", wrapError(ErrMissingKeyInput, "email not set")
		}

		return DimensionEmail, email, nil
	}
}

// ByDevice keys on a digest over the ordered header tuple
// (user-agent, accept-language, accept-encoding, client address). Unrelated
// browsers sharing an identical tuple collide, an accepted false-positive.
func ByDevice() KeyFunc {
	return func(r *Request) (string, string, error) {
		tuple := strings.Join([]string{
			r.UserAgent,
			r.AcceptLanguage,
			r.AcceptEncoding,
			r.Addr,
		}, "|")

		sum := sha256.Sum256([]byte(tuple))

		return DimensionDevice, hex.EncodeToString(sum[:])[:deviceDigestLen], nil
	}
}

// ByCredential keys on the caller supplied API credential and falls back to
// the address strategy when none is present.
func ByCredential() KeyFunc {
	addr := ByAddr()

	return func(r *Request) (string, string, error) {
		if r.Credential == "" {
			return addr(r)
		}

		return DimensionCredential, r.Credential, nil
	}
}

// Global keys every request into a single shared bucket.
func Global() KeyFunc {
	return func(*Request) (string, string, error) {
		return DimensionGlobal, "all", nil
	}
}

// ClientAddr canonicalizes the caller address. With trustProxy set the
// leftmost X-Forwarded-For entry, or X-Real-IP, takes precedence over the
// connection address. IPv6 addresses are normalized, never truncated, so
// suffix variation cannot dodge the address bucket.
func ClientAddr(remoteAddr, forwardedFor, realIP string, trustProxy bool) string {
	if trustProxy {
		if forwardedFor != "" {
			first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
			if first != "" {
				return canonicalAddr(first)
			}
		}

		if realIP != "" {
			return canonicalAddr(realIP)
		}
	}

	return canonicalAddr(remoteAddr)
}

func canonicalAddr(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	if ip := net.ParseIP(strings.TrimSpace(host)); ip != nil {
		return ip.String()
	}

	return strings.TrimSpace(host)
}
