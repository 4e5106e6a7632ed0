package config

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch indicates a setting holds a value of the wrong type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrValidationFailed indicates a setting holds an unacceptable value.
	ErrValidationFailed = errors.New("validation failed")
)

// TypeError is returned when a setting cannot be converted.
type TypeError struct {
	Path     string
	Expected string
	Actual   any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error for %s: expected %s, got %T", e.Path, e.Expected, e.Actual)
}

// Is matches ErrTypeMismatch.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// ValidationError describes a setting that failed validation.
type ValidationError struct {
	Path    string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Path, e.Message, e.Value)
}

// Is matches ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
