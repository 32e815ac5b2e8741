package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayoomidimeji/lariyu/core"
	"github.com/ayoomidimeji/lariyu/platform/counter"
)

const counterHealthcheckKey = "health:probe"

// Handler is the gateway specific http.HandlerFunc expecting a
// context.Context.
type Handler func(context.Context, http.ResponseWriter, *http.Request)

// Middleware can be used to chain Handlers with different responsibilities.
type Middleware func(Handler) Handler

// Chain takes a variadic number of Middlewares and returns a combined
// Middleware.
func Chain(ms ...Middleware) Middleware {
	return func(handler Handler) Handler {
		for i := len(ms) - 1; i >= 0; i-- {
			handler = ms[i](handler)
		}

		return handler
	}
}

// Wrap takes a Middleware and Handler and returns an http.HandlerFunc.
func Wrap(
	middleware Middleware,
	handler Handler,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware(handler)(r.Context(), w, r)
	}
}

// Health checks for liveliness of the counter store and responds with
// status and uptime.
func Health(counters counter.Service, begin time.Time) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		res := struct {
			Status    string          `json:"status"`
			Timestamp time.Time       `json:"timestamp"`
			Uptime    string          `json:"uptime"`
			Services  map[string]bool `json:"services"`
		}{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Uptime:    time.Since(begin).String(),
			Services: map[string]bool{
				"counterStore": true,
			},
		}

		if _, _, err := counters.Peek(counterHealthcheckKey); err != nil {
			res.Status = "degraded"
			res.Services["counterStore"] = false

			respondJSON(w, http.StatusInternalServerError, &res)
			return
		}

		respondJSON(w, http.StatusOK, &res)
	}
}

type apiError struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, err error) {
	var (
		statusCode = http.StatusInternalServerError
		msg        = "internal error"
	)

	switch unwrapError(err) {
	case ErrBadRequest:
		statusCode = http.StatusBadRequest
		msg = err.Error()
	case core.ErrInvalidSignup:
		statusCode = http.StatusBadRequest
		msg = err.Error()
	case core.ErrAlreadyRegistered:
		statusCode = http.StatusConflict
		msg = "an account with this email already exists"
	case core.ErrProviderFailure, core.ErrEmailDelivery:
		// Opaque on purpose, provider detail stays in the logs.
	}

	respondJSON(w, statusCode, &apiError{Error: msg})
}

func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
