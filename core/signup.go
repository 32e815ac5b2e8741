package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/ayoomidimeji/lariyu/service/account"
	"github.com/ayoomidimeji/lariyu/service/mail"
)

const (
	maxNameLen     = 50
	minPasswordLen = 8

	confirmSubject = "Confirm your Lariyu account"

	confirmTemplate = `<html>
<body style="font-family: Georgia, serif; color: #1a1a1a;">
	<h2>Welcome to Lariyu%s</h2>
	<p>Thank you for creating an account. Please confirm your email address
	to start shopping our collections.</p>
	<p><a href="%s" style="display:inline-block;padding:12px 28px;background:#1a1a1a;color:#f5f2ea;text-decoration:none;letter-spacing:1px;">CONFIRM EMAIL</a></p>
	<p>If you did not request this account, you can ignore this message.</p>
</body>
</html>`
)

// SignupRequest is the inbound payload of a signup attempt.
type SignupRequest struct {
	Email     string `json:"email"`
	Firstname string `json:"firstName"`
	Lastname  string `json:"lastName"`
	Password  string `json:"password"`
}

// Normalize folds the email to its canonical form and strips markup
// characters from the optional name fields.
func (r *SignupRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Firstname = sanitizeName(r.Firstname)
	r.Lastname = sanitizeName(r.Lastname)
}

// Validate performs semantic checks on the normalized request.
func (r *SignupRequest) Validate() error {
	if r.Email == "" {
		return wrapError(ErrInvalidSignup, "email must be set")
	}

	if !govalidator.IsEmail(r.Email) {
		return wrapError(ErrInvalidSignup, "invalid email address '%s'", r.Email)
	}

	if len(r.Password) < minPasswordLen {
		return wrapError(
			ErrInvalidSignup,
			"password must be at least %d characters", minPasswordLen,
		)
	}

	if len(r.Firstname) > maxNameLen {
		return wrapError(ErrInvalidSignup, "firstName too long")
	}

	if len(r.Lastname) > maxNameLen {
		return wrapError(ErrInvalidSignup, "lastName too long")
	}

	return nil
}

// SignupResult echoes the normalized email of a completed signup.
type SignupResult struct {
	Email string
}

// SignupCreateFunc validates the request, provisions the account upstream
// and delivers the confirmation email.
type SignupCreateFunc func(ctx context.Context, req *SignupRequest) (*SignupResult, error)

// SignupCreate validates the request, provisions the account upstream and
// delivers the confirmation email. A mail failure after the account was
// created is reported without rolling the account back, the two providers
// share no transaction and the user can request a resend.
func SignupCreate(
	accounts account.Service,
	mails mail.Service,
	redirectURL string,
) SignupCreateFunc {
	return func(ctx context.Context, req *SignupRequest) (*SignupResult, error) {
		req.Normalize()

		if err := req.Validate(); err != nil {
			return nil, err
		}

		link, err := accounts.GenerateSignupLink(
			ctx,
			req.Email,
			req.Password,
			account.Metadata{
				"first_name": req.Firstname,
				"last_name":  req.Lastname,
			},
			redirectURL,
		)
		if err != nil {
			if account.IsAlreadyRegistered(err) {
				return nil, wrapError(ErrAlreadyRegistered, "%s", req.Email)
			}

			return nil, wrapError(ErrProviderFailure, "%s", err)
		}

		greeting := ""
		if req.Firstname != "" {
			greeting = ", " + req.Firstname
		}

		err = mails.Send(
			ctx,
			req.Email,
			confirmSubject,
			fmt.Sprintf(confirmTemplate, greeting, link),
		)
		if err != nil {
			return nil, wrapError(ErrEmailDelivery, "%s", err)
		}

		return &SignupResult{Email: req.Email}, nil
	}
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	return strings.NewReplacer("<", "", ">", "").Replace(name)
}
