package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/nanomodel/model"
	"github.com/arthur-debert/nanomodel/schema"
	"github.com/arthur-debert/nanomodel/store"
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "save", "find")
	Cause       string   // The underlying cause (e.g., "document not found")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Underlying  error    // Original error for debugging
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}
	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}
	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}
	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}
	return msg.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewInputError reports an unparsable argument.
func NewInputError(operation, what string, err error) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid %s", what),
		Details:     err.Error(),
		Suggestions: []string{"Pass documents and queries as JSON objects, e.g. '{\"name\": \"alice\"}'"},
		Underlying:  err,
	}
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation, issue string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %s", issue),
		Suggestions: suggestions,
	}
}

// NewModelNotFoundError reports an unknown model name.
func NewModelNotFoundError(operation, name string, available []string) *CLIError {
	suggestions := []string{"Run 'nanomodel models' to see the declared models"}
	if len(available) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Available models: %s", strings.Join(available, ", ")))
	}
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("unknown model %q", name),
		Suggestions: suggestions,
	}
}

// WrapError wraps an existing error with CLI-friendly context
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}

	e := &CLIError{Operation: operation, Cause: err.Error(), Underlying: err}
	if fe, ok := schema.AsFieldError(err); ok {
		e.Cause = "invalid document"
		e.Details = fe.Error()
		e.Suggestions = []string{"Run 'nanomodel models' to see the schema of each model"}
		return e
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		e.Cause = "document not found"
		e.Suggestions = []string{"Verify the document ID exists (try 'find' first)"}
	case errors.Is(err, model.ErrUniqueness):
		e.Cause = "duplicate value"
		e.Details = err.Error()
	case errors.Is(err, model.ErrRelationshipConfig):
		e.Cause = "relationship error"
		e.Details = err.Error()
		e.Suggestions = []string{"Check the relationships declared in the definitions file"}
	case strings.Contains(strings.ToLower(err.Error()), "lock"):
		e.Cause = "database is currently locked by another process"
		e.Details = err.Error()
	}
	return e
}
