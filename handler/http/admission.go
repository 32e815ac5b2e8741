package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/ayoomidimeji/lariyu/platform/limiter"
)

const headerAPIKey = "X-Api-Key"

type rateLimitError struct {
	Error      string `json:"error"`
	Limit      int    `json:"limit"`
	Message    string `json:"message"`
	Remaining  int    `json:"remaining"`
	RetryAfter int    `json:"retryAfter"`
}

// Admit guards the wrapped Handler with the admission pipeline. Allow-listed
// paths pass through untouched, every other request pays the slow-down
// delay and one increment per evaluated limiter. The first rejecting guard
// short-circuits with 429 and retry timing, a missing limiter input is a
// hard 400.
func Admit(pipeline *limiter.Pipeline, trustProxy bool) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
			if pipeline.Bypassed(r.URL.Path) {
				next(ctx, w, r)
				return
			}

			req, err := admissionRequest(r, trustProxy)
			if err != nil {
				respondError(w, wrapError(ErrBadRequest, err.Error()))
				return
			}

			d, err := pipeline.Admit(ctx, req)
			if err != nil {
				if limiter.IsMissingKeyInput(err) {
					respondError(w, wrapError(ErrBadRequest, err.Error()))
					return
				}

				if ctx.Err() != nil {
					return
				}

				respondError(w, err)
				return
			}

			if d.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			}

			if !d.Admitted {
				retryAfter := int(d.RetryAfter.Seconds())

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				respondJSON(w, http.StatusTooManyRequests, &rateLimitError{
					Error:      ErrLimitExceeded.Error(),
					Limit:      d.Limit,
					Message:    "too many requests, please retry later",
					Remaining:  d.Remaining,
					RetryAfter: retryAfter,
				})
				return
			}

			next(ctx, w, r)
		}
	}
}

// admissionRequest assembles the limiter inputs from the transport request.
// The body is probed for the submitted email and restored for the handler
// downstream.
func admissionRequest(r *http.Request, trustProxy bool) (*limiter.Request, error) {
	req := &limiter.Request{
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		Addr: limiter.ClientAddr(
			r.RemoteAddr,
			r.Header.Get("X-Forwarded-For"),
			r.Header.Get("X-Real-Ip"),
			trustProxy,
		),
		Credential: r.Header.Get(headerAPIKey),
		Path:       r.URL.Path,
		UserAgent:  r.Header.Get("User-Agent"),
	}

	if r.Body == nil || r.Method != "POST" {
		return req, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(body))

	probe := struct {
		Email string `json:"email"`
	}{}

	// A malformed body is not an admission concern, the handler rejects it
	// with a proper validation message after the guards ran.
	_ = json.Unmarshal(body, &probe)

	req.Email = probe.Email

	return req, nil
}
