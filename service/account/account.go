package account

import (
	"context"
)

// Metadata is a bucket of additional profile information attached to the
// account at creation time.
type Metadata map[string]interface{}

// Service exposes the account backend capability the signup flow depends
// on: provisioning a new account and minting its confirmation link.
type Service interface {
	// GenerateSignupLink creates the account upstream and returns the
	// action link the user has to visit to confirm the address.
	GenerateSignupLink(
		ctx context.Context,
		email, password string,
		meta Metadata,
		redirectURL string,
	) (string, error)
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service
