package counter

import (
	"time"
)

// Service is a keyed, windowed counter. Counters follow fixed-window
// semantics: the first increment of a key opens a window of the given
// duration, subsequent increments within that window accumulate, and an
// increment after the window elapsed resets the count to 1 with a fresh
// window.
type Service interface {
	// Incr adds one hit to the counter behind key and returns the count
	// after the increment together with the instant the current window
	// expires. Incr must be atomic, concurrent callers never lose an
	// increment.
	Incr(key string, window time.Duration) (int, time.Time, error)

	// Peek returns the current count and window expiry without consuming
	// an increment. A key without a live window reports 0 and a zero
	// expiry.
	Peek(key string) (int, time.Time, error)
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service
