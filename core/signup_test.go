package core

import (
	"context"
	"strings"
	"testing"

	"github.com/ayoomidimeji/lariyu/service/account"
	"github.com/ayoomidimeji/lariyu/service/mail"
)

type stubAccountService struct {
	calls int
	err   error
	link  string

	lastEmail    string
	lastMeta     account.Metadata
	lastPassword string
}

func (s *stubAccountService) GenerateSignupLink(
	ctx context.Context,
	email, password string,
	meta account.Metadata,
	redirectURL string,
) (string, error) {
	s.calls++
	s.lastEmail = email
	s.lastMeta = meta
	s.lastPassword = password

	if s.err != nil {
		return "", s.err
	}

	return s.link, nil
}

type stubMailService struct {
	calls int
	err   error

	lastHTML    string
	lastSubject string
	lastTo      string
}

func (s *stubMailService) Send(ctx context.Context, to, subject, html string) error {
	s.calls++
	s.lastHTML = html
	s.lastSubject = subject
	s.lastTo = to

	return s.err
}

func validSignup() *SignupRequest {
	return &SignupRequest{
		Email:     "User@Example.com",
		Firstname: " Ayo ",
		Lastname:  "<b>Omidimeji</b>",
		Password:  "longenough",
	}
}

func TestSignupRequestValidate(t *testing.T) {
	rs := []*SignupRequest{
		{},                                      // everything missing
		{Email: "not-an-email", Password: "longenough"},                      // email invalid
		{Email: "user@example.com", Password: "short"},                       // password too short
		{Email: "user@example.com", Password: "longenough", Firstname: strings.Repeat("a", 51)}, // firstname too long
		{Email: "user@example.com", Password: "longenough", Lastname: strings.Repeat("a", 51)},  // lastname too long
	}

	for _, r := range rs {
		r.Normalize()

		if have := r.Validate(); !IsInvalidSignup(have) {
			t.Errorf("have %v, want %v", have, ErrInvalidSignup)
		}
	}
}

func TestSignupRequestNormalize(t *testing.T) {
	r := validSignup()
	r.Normalize()

	if have, want := r.Email, "user@example.com"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := r.Firstname, "Ayo"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := r.Lastname, "bOmidimeji/b"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestSignupCreate(t *testing.T) {
	var (
		accounts = &stubAccountService{link: "https://auth.lariyu.shop/confirm?token=abc"}
		mails    = &stubMailService{}

		fn = SignupCreate(accounts, mails, "https://lariyu.shop/welcome")
	)

	res, err := fn(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup failed: %s", err)
	}

	if have, want := res.Email, "user@example.com"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := accounts.lastEmail, "user@example.com"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := mails.lastTo, "user@example.com"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if !strings.Contains(mails.lastHTML, accounts.link) {
		t.Error("confirmation link missing from mail body")
	}
}

func TestSignupCreateInvalid(t *testing.T) {
	var (
		accounts = &stubAccountService{link: "https://auth.lariyu.shop/confirm"}
		mails    = &stubMailService{}

		fn = SignupCreate(accounts, mails, "")
	)

	_, err := fn(context.Background(), &SignupRequest{Email: "nope"})
	if !IsInvalidSignup(err) {
		t.Errorf("have %v, want %v", err, ErrInvalidSignup)
	}

	// Validation failures never reach the external collaborators.
	if have, want := accounts.calls, 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := mails.calls, 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestSignupCreateAlreadyRegistered(t *testing.T) {
	var (
		accounts = &stubAccountService{err: account.ErrAlreadyRegistered}
		mails    = &stubMailService{}

		fn = SignupCreate(accounts, mails, "")
	)

	_, err := fn(context.Background(), validSignup())
	if !IsAlreadyRegistered(err) {
		t.Errorf("have %v, want %v", err, ErrAlreadyRegistered)
	}

	if have, want := mails.calls, 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestSignupCreateProviderFailure(t *testing.T) {
	var (
		accounts = &stubAccountService{err: account.ErrProvider}
		mails    = &stubMailService{}

		fn = SignupCreate(accounts, mails, "")
	)

	_, err := fn(context.Background(), validSignup())
	if !IsProviderFailure(err) {
		t.Errorf("have %v, want %v", err, ErrProviderFailure)
	}

	if have, want := mails.calls, 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestSignupCreateMailFailure(t *testing.T) {
	var (
		accounts = &stubAccountService{link: "https://auth.lariyu.shop/confirm"}
		mails    = &stubMailService{err: mail.ErrDelivery}

		fn = SignupCreate(accounts, mails, "")
	)

	_, err := fn(context.Background(), validSignup())
	if !IsEmailDelivery(err) {
		t.Errorf("have %v, want %v", err, ErrEmailDelivery)
	}

	// The remote account was created before the delivery failed, it is
	// reported but not rolled back.
	if have, want := accounts.calls, 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}
