package application

import (
	"errors"

	"github.com/example/team-calendar/internal/sanitize"
)

var (
	// ErrForbidden is returned when the acting principal does not own the
	// targeted resource, or when an update attempts to rewrite an immutable
	// field such as an id or owner reference.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: resource does not exist")
	// ErrAlreadyExists is returned when a uniqueness rule would be violated.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrStorageFailed is returned when a well-formed request could not be
	// completed because the storage layer reported a failure.
	ErrStorageFailed = errors.New("application: storage operation failed")
	// ErrInvalidCredentials is returned when password verification fails.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
)

// ValidationError captures malformed-input failures: unsafe identifiers,
// invalid dates, unknown recursion rules, bad color formats. It is a distinct
// channel from the sentinel errors above, which describe state-dependent
// outcomes on well-formed requests.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// invalidField builds a single-field validation error.
func invalidField(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// requireSafeID rejects identifiers carrying characters outside the safe
// alphabet. The rejection travels on the validation channel so malformed
// input never reaches a repository.
func requireSafeID(field, id string) *ValidationError {
	if id == "" {
		return invalidField(field, "identifier is required")
	}
	if sanitize.IsUnsafe(id) {
		return invalidField(field, "identifier contains unsafe characters")
	}
	return nil
}
