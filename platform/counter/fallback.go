package counter

import (
	"time"

	"github.com/go-kit/kit/log"
)

type fallbackService struct {
	fallback Service
	logger   log.Logger
	next     Service
}

// FallbackServiceMiddleware degrades to the given fallback Service whenever
// the wrapped Service reports ErrStoreUnavailable. Requests keep being
// counted locally instead of failing, at the cost of per-instance counters
// until the primary store recovers.
func FallbackServiceMiddleware(fallback Service, logger log.Logger) ServiceMiddleware {
	return func(next Service) Service {
		return &fallbackService{
			fallback: fallback,
			logger:   log.With(logger, "store", "counter"),
			next:     next,
		}
	}
}

func (s *fallbackService) Incr(key string, window time.Duration) (int, time.Time, error) {
	count, resetAt, err := s.next.Incr(key, window)
	if err == nil {
		return count, resetAt, nil
	}

	if !IsStoreUnavailable(err) {
		return count, resetAt, err
	}

	_ = s.logger.Log(
		"err", err,
		"key", key,
		"level", "warn",
		"method", "Incr",
		"msg", "primary counter store unavailable, serving from fallback",
	)

	return s.fallback.Incr(key, window)
}

func (s *fallbackService) Peek(key string) (int, time.Time, error) {
	count, resetAt, err := s.next.Peek(key)
	if err == nil {
		return count, resetAt, nil
	}

	if !IsStoreUnavailable(err) {
		return count, resetAt, err
	}

	return s.fallback.Peek(key)
}
