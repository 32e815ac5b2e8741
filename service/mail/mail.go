package mail

import (
	"context"
)

// Service is the outbound transactional mail capability.
type Service interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service

type nopService struct{}

// NopService returns a Service implementation which discards every mail.
// Useful for local development and tests.
func NopService() Service {
	return &nopService{}
}

func (s *nopService) Send(ctx context.Context, to, subject, html string) error {
	return nil
}
