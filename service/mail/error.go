package mail

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors for mail Service implementations.
var (
	ErrDelivery = errors.New("mail delivery failed")
)

// Error wraps common mail errors.
type Error struct {
	err error
	msg string
}

func (e Error) Error() string {
	return e.msg
}

// IsDelivery indicates if err is ErrDelivery.
func IsDelivery(err error) bool {
	return unwrapError(err) == ErrDelivery
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
