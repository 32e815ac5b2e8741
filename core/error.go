package core

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors
var (
	ErrAlreadyRegistered = errors.New("email already registered")
	ErrEmailDelivery     = errors.New("confirmation email delivery failed")
	ErrInvalidSignup     = errors.New("invalid signup")
	ErrProviderFailure   = errors.New("account provider failure")
)

// Error is a wrapper used to transport core specific errors.
type Error struct {
	Err error
	Msg string
}

func (e *Error) Error() string {
	return e.Msg
}

// IsAlreadyRegistered indicates if err is ErrAlreadyRegistered.
func IsAlreadyRegistered(err error) bool {
	return unwrapError(err) == ErrAlreadyRegistered
}

// IsEmailDelivery indicates if err is ErrEmailDelivery.
func IsEmailDelivery(err error) bool {
	return unwrapError(err) == ErrEmailDelivery
}

// IsInvalidSignup indicates if err is ErrInvalidSignup.
func IsInvalidSignup(err error) bool {
	return unwrapError(err) == ErrInvalidSignup
}

// IsProviderFailure indicates if err is ErrProviderFailure.
func IsProviderFailure(err error) bool {
	return unwrapError(err) == ErrProviderFailure
}

func unwrapError(err error) error {
	switch e := err.(type) {
	case *Error:
		return e.Err
	}

	return err
}

func wrapError(err error, format string, args ...interface{}) error {
	return &Error{
		Err: err,
		Msg: fmt.Sprintf(
			errFmt,
			err.Error(),
			fmt.Sprintf(format, args...),
		),
	}
}
