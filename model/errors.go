package model

import (
	"errors"
	"fmt"
)

// Sentinel kinds for model errors. Field-level validation failures are
// *schema.FieldError values and match the schema package sentinels.
var (
	ErrUniqueness         = errors.New("uniqueness violation")
	ErrNoIdentity         = errors.New("document has no identity")
	ErrRelationshipConfig = errors.New("invalid relationship")
	ErrUnknownSchema      = errors.New("unknown schema")
	ErrDeleted            = errors.New("document was deleted")
)

// ModelError reports a document-level failure.
type ModelError struct {
	Kind    error  // One of the sentinel kinds above
	Field   string // Field or relationship name, when relevant
	Message string // Human readable description
	Err     error  // Underlying cause, if any
}

// Error implements the error interface
func (e *ModelError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

// Is matches the error's kind sentinel.
func (e *ModelError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause for error chain compatibility
func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewUniquenessError reports a unique field whose value is already stored.
func NewUniquenessError(field string, value any) *ModelError {
	return &ModelError{
		Kind:    ErrUniqueness,
		Field:   field,
		Message: fmt.Sprintf("%s must be unique: %v already exists", field, value),
	}
}

// NewNoIdentityError reports an operation that needs a persisted document.
func NewNoIdentityError(operation string) *ModelError {
	return &ModelError{
		Kind:    ErrNoIdentity,
		Message: fmt.Sprintf("cannot %s: document has no identity", operation),
	}
}

// NewRelationshipConfigError reports an undeclared or misdeclared
// relationship.
func NewRelationshipConfigError(name, issue string) *ModelError {
	return &ModelError{
		Kind:    ErrRelationshipConfig,
		Field:   name,
		Message: fmt.Sprintf("relationship %q %s", name, issue),
	}
}

func newUnknownSchemaError(name string) *ModelError {
	return &ModelError{
		Kind:    ErrUnknownSchema,
		Field:   name,
		Message: fmt.Sprintf("schema %q is not registered", name),
	}
}

func newDeletedError(operation string) *ModelError {
	return &ModelError{
		Kind:    ErrDeleted,
		Message: fmt.Sprintf("cannot %s: document was deleted", operation),
	}
}
