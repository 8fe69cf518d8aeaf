// Package apperror defines the error kinds that the address book surfaces to its callers.
//
// Every expected failure is an *AppError wrapping one of the sentinel errors below, so callers
// can branch with errors.Is and still show a readable message. Anything that is not an
// *AppError is treated as a storage failure by the HTTP layer.
package apperror

import (
	"errors"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrConflict        = errors.New("conflict")
)

// FieldError describes one violated field constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is an expected failure with a human-readable message.
type AppError struct {
	Err     error        // one of the sentinels above
	Message string       // safe to show to the client
	Fields  []FieldError // only set for validation errors
}

func (e *AppError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing resource. The message never says whether the resource exists
// for somebody else.
func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: resource + " not found",
	}
}

// ValidationFailed reports one or more violated field constraints.
func ValidationFailed(fields ...FieldError) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "validation failed",
		Fields:  fields,
	}
}

// Invalid is a shortcut for a validation error on a single field.
func Invalid(field, message string) *AppError {
	return ValidationFailed(FieldError{Field: field, Message: message})
}

func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}
