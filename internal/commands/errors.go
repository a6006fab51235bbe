package commands

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownHandler   = errors.New("unknown handler")
	ErrDuplicateHandler = errors.New("handler factory already registered")
)

// UserError is shown to the player instead of ending the session. It covers
// bad input and usage, not system failures.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

func NewUserError(msg string) *UserError {
	return &UserError{Message: msg}
}

// NewUserErrorf formats a user-facing error.
func NewUserErrorf(format string, args ...any) *UserError {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}
