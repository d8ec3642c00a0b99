package service

import (
	"errors"
	"fmt"

	"github.com/example/content-platform/services/comments/internal/store"
)

// ErrForbidden is returned when a user acts on a comment they do not own.
var ErrForbidden = errors.New("forbidden")

// ValidationError names the offending input. It matches
// store.ErrValidation under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return store.ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// outcome classifies err for metrics labels.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrValidation):
		return "invalid"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, store.ErrIntegrity):
		return "conflict"
	case errors.Is(err, store.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
