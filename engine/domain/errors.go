package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrNameRequired     = errors.New("food name is required")
	ErrNameTooShort     = errors.New("food name too short")
	ErrNameTooLong      = errors.New("food name too long")
	ErrQueryRequired    = errors.New("query is required")
	ErrQueryTooShort    = errors.New("query too short")
	ErrQueryTooLong     = errors.New("query too long")
	ErrQuantityNotPositive = errors.New("quantity must be positive")
	ErrQuantityTooLarge    = errors.New("quantity too large")
	ErrTextTooLong         = errors.New("text too long")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
