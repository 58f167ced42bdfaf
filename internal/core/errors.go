package core

import (
	"errors"
	"fmt"
)

// Failure classes surfaced by the gateway. Field-level errors wrap
// ErrValidation so callers only need errors.Is.
var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrValidation        = errors.New("validation error")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrNotFound          = errors.New("not found")
)

var (
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrNonFiniteBalance = fmt.Errorf("%w: initial balance must be a finite number", ErrValidation)
	ErrEmptyAccount     = fmt.Errorf("%w: account is required", ErrValidation)
	ErrEmptyCategory    = fmt.Errorf("%w: category is required", ErrValidation)
	ErrEmptyName        = fmt.Errorf("%w: name is required", ErrValidation)
	ErrCategoryMismatch = fmt.Errorf("%w: category type does not match transaction", ErrValidation)
)

// UserMessage returns the text shown in the error modal for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrNotFound):
		return "This item no longer exists. It may have been deleted."
	case errors.Is(err, ErrValidation):
		return "Please check the entered values: " + err.Error()
	case errors.Is(err, ErrRemoteUnavailable):
		return "Could not reach the server. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
