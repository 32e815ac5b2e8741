package limiter

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors for Limiter checks and key strategies.
var (
	ErrMissingKeyInput = errors.New("missing key input")
)

// Error wraps common limiter errors.
type Error struct {
	err error
	msg string
}

func (e Error) Error() string {
	return e.msg
}

// IsMissingKeyInput indicates if err is ErrMissingKeyInput.
func IsMissingKeyInput(err error) bool {
	return unwrapError(err) == ErrMissingKeyInput
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
