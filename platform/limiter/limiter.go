package limiter

import (
	"fmt"
	"time"

	"github.com/go-kit/kit/log"

	"github.com/ayoomidimeji/lariyu/platform/counter"
)

// Key identifies one rate-limit bucket, namespaced as
// <scope>:<dimension>:<value>. Two dimensions derived from the same request
// produce independent keys and therefore independent quotas.
type Key string

// FormatKey assembles a Key from its parts.
func FormatKey(scope, dimension, value string) Key {
	return Key(fmt.Sprintf("%s:%s:%s", scope, dimension, value))
}

// Request carries the per-request inputs the key strategies derive buckets
// from. It is assembled once at the transport boundary.
type Request struct {
	AcceptEncoding string
	AcceptLanguage string
	Addr           string
	Credential     string
	Email          string
	Path           string
	UserAgent      string
}

// Decision is the outcome of a single admission check, produced fresh per
// request and never persisted.
type Decision struct {
	Admitted   bool
	Key        Key
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	Scope      string
}

// Config carries the immutable parameters of one Limiter. One instance per
// guarded route per dimension, constructed at startup.
type Config struct {
	KeyFunc KeyFunc
	Max     int
	Scope   string
	Window  time.Duration
}

// Limiter decides admit/reject for one request over a fixed window. Every
// check consumes one increment, admitted or not, there is no peek mode.
type Limiter struct {
	cfg      Config
	counters counter.Service
	logger   log.Logger
}

// New returns a Limiter enforcing cfg against the given counter Service.
func New(counters counter.Service, cfg Config, logger log.Logger) *Limiter {
	return &Limiter{
		cfg:      cfg,
		counters: counters,
		logger: log.With(logger,
			"limiter", cfg.Scope,
		),
	}
}

// Config returns the immutable configuration of the Limiter.
func (l *Limiter) Config() Config {
	return l.cfg
}

// Key derives the bucket Key for the given request.
func (l *Limiter) Key(r *Request) (Key, error) {
	dimension, value, err := l.cfg.KeyFunc(r)
	if err != nil {
		return "", err
	}

	return FormatKey(l.cfg.Scope, dimension, value), nil
}

// Check consumes one hit for the request's bucket and reports whether the
// request is still within the configured quota.
func (l *Limiter) Check(r *Request) (Decision, error) {
	key, err := l.Key(r)
	if err != nil {
		return Decision{}, err
	}

	count, resetAt, err := l.counters.Incr(string(key), l.cfg.Window)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Admitted:  count <= l.cfg.Max,
		Key:       key,
		Limit:     l.cfg.Max,
		Remaining: l.cfg.Max - count,
		ResetAt:   resetAt,
		Scope:     l.cfg.Scope,
	}

	if d.Remaining < 0 {
		d.Remaining = 0
	}

	if !d.Admitted {
		d.RetryAfter = retryAfter(resetAt, time.Now())

		_ = l.logger.Log(
			"addr", r.Addr,
			"key", string(key),
			"level", "warn",
			"limit", d.Limit,
			"msg", "rate limit exceeded",
			"path", r.Path,
			"remaining", d.Remaining,
			"scope", d.Scope,
		)
	}

	return d, nil
}

// Status reports the current quota consumption for the request's bucket
// without consuming an increment. Diagnostic use only, admission always
// goes through Check.
func (l *Limiter) Status(r *Request) (Decision, error) {
	key, err := l.Key(r)
	if err != nil {
		return Decision{}, err
	}

	count, resetAt, err := l.counters.Peek(string(key))
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Admitted:  count < l.cfg.Max,
		Key:       key,
		Limit:     l.cfg.Max,
		Remaining: l.cfg.Max - count,
		ResetAt:   resetAt,
		Scope:     l.cfg.Scope,
	}

	if d.Remaining < 0 {
		d.Remaining = 0
	}

	return d, nil
}

// retryAfter reports how long a rejected caller has to wait, rounded up to
// full seconds and clamped to at least one.
func retryAfter(resetAt, now time.Time) time.Duration {
	d := resetAt.Sub(now)

	secs := (d + time.Second - 1) / time.Second * time.Second

	if secs < time.Second {
		return time.Second
	}

	return secs
}
