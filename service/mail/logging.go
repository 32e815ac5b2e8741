package mail

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
// capabilities. Message bodies are not logged, only their size.
func LogServiceMiddleware(logger log.Logger, store string) ServiceMiddleware {
	return func(next Service) Service {
		logger = log.With(logger,
			"service", "mail",
			"store", store,
		)

		return &logService{logger: logger, next: next}
	}
}

func (s *logService) Send(ctx context.Context, to, subject, html string) (err error) {
	defer func(begin time.Time) {
		ps := []interface{}{
			"body_len", len(html),
			"duration_ns", time.Since(begin).Nanoseconds(),
			"method", "Send",
			"subject", subject,
			"to", to,
		}

		if err != nil {
			ps = append(ps, "err", err)
		}

		_ = s.logger.Log(ps...)
	}(time.Now())

	return s.next.Send(ctx, to, subject, html)
}
