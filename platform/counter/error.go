package counter

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors for counter Service implementations.
var (
	ErrStoreUnavailable = errors.New("counter store unavailable")
)

// Error wraps common counter errors.
type Error struct {
	err error
	msg string
}

func (e Error) Error() string {
	return e.msg
}

// IsStoreUnavailable indicates if err is ErrStoreUnavailable.
func IsStoreUnavailable(err error) bool {
	return unwrapError(err) == ErrStoreUnavailable
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
