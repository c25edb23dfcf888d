package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
)

// Routing and persistence failure kinds.
var (
	ErrConfigUnavailable = errors.New("configuration unavailable")
	ErrReloadFailed      = errors.New("configuration reload failed")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrThrottled         = errors.New("throttled")
	ErrUnknownHandler    = errors.New("unknown handler")
	ErrHandlerFailed     = errors.New("handler failed")
	ErrStoreAppendFailed = errors.New("event store append failed")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// ImplicationCycleError reports a cycle in the permission implication graph.
// Path lists permission ids along the cycle; the first id is repeated at the end.
type ImplicationCycleError struct {
	Path []int32
}

func (e *ImplicationCycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = strconv.Itoa(int(id))
	}
	return "permission implication cycle: " + strings.Join(parts, " -> ")
}

func (e *ImplicationCycleError) Unwrap() error { return ErrValidation }
