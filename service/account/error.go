package account

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors for account Service implementations.
var (
	ErrAlreadyRegistered = errors.New("account already registered")
	ErrProvider          = errors.New("account provider failure")
)

// Error wraps common account errors.
type Error struct {
	err error
	msg string
}

func (e Error) Error() string {
	return e.msg
}

// IsAlreadyRegistered indicates if err is ErrAlreadyRegistered.
func IsAlreadyRegistered(err error) bool {
	return unwrapError(err) == ErrAlreadyRegistered
}

// IsProvider indicates if err is ErrProvider.
func IsProvider(err error) bool {
	return unwrapError(err) == ErrProvider
}

func unwrapError(err error) error {
	switch e := err.(type) {
	case *Error:
		return e.err
	}

	return err
}

func wrapError(err error, format string, args ...interface{}) error {
	return &Error{
		err: err,
		msg: fmt.Sprintf(
			errFmt,
			err,
			fmt.Sprintf(format, args...),
		),
	}
}
