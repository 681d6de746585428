package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned across a service boundary matches at
// most one of these through errors.Is; anything else is unexpected.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("constraint violation")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("authentication required")
)

// ValidationError reports malformed or out-of-range input for one field.
type ValidationError struct {
	Field string
	Err   error
}

// Invalid wraps err as a ValidationError on field.
func Invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConstraintViolation is a rejected write that clashed with a uniqueness
// rule. Message is safe to show to the user.
type ConstraintViolation struct {
	Message string
}

func (e *ConstraintViolation) Error() string { return e.Message }

func (e *ConstraintViolation) Is(target error) bool { return target == ErrConflict }

// Conflictf builds a ConstraintViolation with a formatted message.
func Conflictf(format string, args ...any) *ConstraintViolation {
	return &ConstraintViolation{Message: fmt.Sprintf(format, args...)}
}

// Kind returns the sentinel matching err, or nil when err is unexpected.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrUnauthenticated} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
