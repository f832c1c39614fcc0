package schema

import (
	"errors"
	"fmt"
)

// Sentinel kinds for field errors. Use errors.Is to classify a failure:
//
//	if errors.Is(err, schema.ErrRequired) { ... }
var (
	ErrRequired   = errors.New("required field missing")
	ErrValidation = errors.New("validator rejected value")
	ErrCast       = errors.New("cast failed")
	ErrStrict     = errors.New("field not in schema")
)

// FieldError reports a validation failure for a single field.
type FieldError struct {
	Kind    error  // One of the sentinel kinds above
	Field   string // Offending field name
	Message string // Human readable description
	Err     error  // Underlying cause, if any
}

// Error implements the error interface
func (e *FieldError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Kind)
}

// Is matches the error's kind sentinel.
func (e *FieldError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause for error chain compatibility
func (e *FieldError) Unwrap() error {
	return e.Err
}

// NewRequiredError reports a required field without a value.
func NewRequiredError(field string) *FieldError {
	return &FieldError{
		Kind:    ErrRequired,
		Field:   field,
		Message: fmt.Sprintf("%s is required", field),
	}
}

// NewMissingRequiredError reports a required schema field absent from a full
// document.
func NewMissingRequiredError(field string) *FieldError {
	return &FieldError{
		Kind:    ErrRequired,
		Field:   field,
		Message: fmt.Sprintf("%s is missing but required", field),
	}
}

// NewValidationError reports a value rejected by the field's validator.
func NewValidationError(field, message string) *FieldError {
	return &FieldError{
		Kind:    ErrValidation,
		Field:   field,
		Message: message,
	}
}

// NewCastError reports a caster failure.
func NewCastError(field string, cause error) *FieldError {
	return &FieldError{
		Kind:    ErrCast,
		Field:   field,
		Message: fmt.Sprintf("could not cast %s: %v", field, cause),
		Err:     cause,
	}
}

// NewStrictError reports a field outside the schema under strict mode.
func NewStrictError(field string) *FieldError {
	return &FieldError{
		Kind:    ErrStrict,
		Field:   field,
		Message: fmt.Sprintf("STRICT: %s is not in the schema", field),
	}
}

// AsFieldError extracts a *FieldError from err.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
