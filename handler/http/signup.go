package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayoomidimeji/lariyu/core"
	"github.com/ayoomidimeji/lariyu/platform/limiter"
)

type payloadSignup struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SignupCreate decodes the signup payload and runs the orchestration,
// mapping every failure class to its client-visible status.
func SignupCreate(fn core.SignupCreateFunc) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		p := core.SignupRequest{}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		if err := dec.Decode(&p); err != nil {
			respondError(w, wrapError(ErrBadRequest, err.Error()))
			return
		}

		res, err := fn(ctx, &p)
		if err != nil {
			respondError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, &payloadSignup{
			Email:   res.Email,
			Message: "confirmation email sent",
		})
	}
}

type payloadLimitStatus struct {
	Addr   string                `json:"addr"`
	Scopes []payloadLimiterScope `json:"scopes"`
}

type payloadLimiterScope struct {
	Key       string     `json:"key"`
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"`
	ResetAt   *time.Time `json:"resetAt,omitempty"`
	Scope     string     `json:"scope"`
}

// LimitStatus reports the caller's current counters per limiter dimension
// without consuming quota. Debugging only.
func LimitStatus(pipeline *limiter.Pipeline, trustProxy bool) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		req, err := admissionRequest(r, trustProxy)
		if err != nil {
			respondError(w, wrapError(ErrBadRequest, err.Error()))
			return
		}

		// The email override is for credentialed operators. Anonymous
		// callers only see buckets derived from their own request, never
		// another user's email quota.
		if email := r.URL.Query().Get("email"); email != "" && req.Credential != "" {
			req.Email = email
		}

		res := payloadLimitStatus{
			Addr:   req.Addr,
			Scopes: []payloadLimiterScope{},
		}

		for _, l := range pipeline.Limiters() {
			d, err := l.Status(req)
			if err != nil {
				// Dimensions without input, like email on a GET probe,
				// are skipped rather than failing the whole report.
				if limiter.IsMissingKeyInput(err) {
					continue
				}

				respondError(w, err)
				return
			}

			scope := payloadLimiterScope{
				Key:       string(d.Key),
				Limit:     d.Limit,
				Remaining: d.Remaining,
				Scope:     d.Scope,
			}

			if !d.ResetAt.IsZero() {
				resetAt := d.ResetAt
				scope.ResetAt = &resetAt
			}

			res.Scopes = append(res.Scopes, scope)
		}

		respondJSON(w, http.StatusOK, &res)
	}
}
