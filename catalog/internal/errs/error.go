package errs

import (
	"errors"
)

var (
	ErrNotFound = errors.New("Book not found.")
)

// ValidationError carries a user-facing payload validation message and
// maps to a 400 with {"error": msg}.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func Validation(msg string) error {
	return &ValidationError{Msg: msg}
}
