package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")

	ErrMissingCredential  = errors.New("access denied: token missing")
	ErrInvalidCredential  = errors.New("access denied: invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownIdentity    = errors.New("access denied: user not found")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("validation: %d errors (%s)", len(e.Errors), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// collector accumulates field errors while validating an input.
type collector []FieldError

func (c *collector) add(field, message string) {
	*c = append(*c, FieldError{Field: field, Message: message})
}

func (c collector) err() error {
	if len(c) == 0 {
		return nil
	}
	return &ValidationError{Errors: c}
}
