package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals an unknown session, segment, journal, or enrollment id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState signals an operation disallowed by the session's current
	// status, e.g. appending to a terminal session.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation signals malformed input rejected at the boundary.
	ErrValidation = errors.New("validation error")
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// ExternalServiceError marks a collaborator (summarization, feature decode)
// as unreachable or erroring. Callers retry with bounded backoff; if retries
// exhaust during synthesis the session proceeds to failed-purge semantics.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// IsExternalServiceError reports whether err is an ExternalServiceError.
func IsExternalServiceError(err error) bool {
	var ese *ExternalServiceError
	return errors.As(err, &ese)
}

// PurgeError is fatal: segment deletion failed after termination began, so
// persisted conversational text may still exist. The session is held in a
// manual-intervention state rather than silently marked terminal.
type PurgeError struct {
	SessionID string
	Err       error
}

func (e *PurgeError) Error() string {
	return fmt.Sprintf("purge failed for session %s: %v", e.SessionID, e.Err)
}

func (e *PurgeError) Unwrap() error { return e.Err }

// IsPurgeError reports whether err is a PurgeError.
func IsPurgeError(err error) bool {
	var pe *PurgeError
	return errors.As(err, &pe)
}
