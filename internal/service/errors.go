package service

import (
	"errors"
	"fmt"
)

// Domain errors. Handlers map these to HTTP status codes with errors.Is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrNoQuestionsAvailable = errors.New("no questions available")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")

	// ErrSessionCompleted is the Conflict raised by writes against a scored session.
	ErrSessionCompleted = fmt.Errorf("%w: session already completed", ErrConflict)
	// ErrSessionNotCompleted guards operations that need a scored session.
	ErrSessionNotCompleted = fmt.Errorf("%w: session is not completed", ErrConflict)
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token revoked")
)

// ValidationError reports a rejected input field with a message the caller
// can act on. It matches ErrValidation under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
