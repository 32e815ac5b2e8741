package account

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
)

type logService struct {
	logger log.Logger
	next   Service
}

// LogServiceMiddleware given a Logger wraps the next Service with logging
// capabilities. Passwords never reach the log.
func LogServiceMiddleware(logger log.Logger, store string) ServiceMiddleware {
	return func(next Service) Service {
		logger = log.With(logger,
			"service", "account",
			"store", store,
		)

		return &logService{logger: logger, next: next}
	}
}

func (s *logService) GenerateSignupLink(
	ctx context.Context,
	email, password string,
	meta Metadata,
	redirectURL string,
) (link string, err error) {
	defer func(begin time.Time) {
		ps := []interface{}{
			"duration_ns", time.Since(begin).Nanoseconds(),
			"email", email,
			"method", "GenerateSignupLink",
			"redirect_url", redirectURL,
		}

		if err != nil {
			ps = append(ps, "err", err)
		}

		_ = s.logger.Log(ps...)
	}(time.Now())

	return s.next.GenerateSignupLink(ctx, email, password, meta, redirectURL)
}
