package config

import (
	"errors"
	"fmt"
)

// UserError is a problem the user can fix in the configuration or the
// environment. The process exits with status 1 for user errors and 2 for
// everything else.
type UserError struct {
	msg string
}

func (e *UserError) Error() string {
	return e.msg
}

// NewUserError formats a UserError.
func NewUserError(format string, args ...any) error {
	return &UserError{msg: fmt.Sprintf(format, args...)}
}

// IsUserError returns true if err or any error it wraps is a UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}
