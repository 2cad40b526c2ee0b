package core

import (
	"errors"
	"fmt"
)

// Error categories. Callers wrap these with fmt.Errorf("...: %w", ...) and
// the HTTP layer maps them to status codes with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("service unavailable")
	ErrUpstream        = errors.New("upstream failure")
)

// Field-level validation errors used by more than one package.
var (
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidMonth     = fmt.Errorf("%w: invalid month", ErrValidation)
	ErrInvalidThreshold = fmt.Errorf("%w: alert threshold must be between 50 and 100", ErrValidation)
	ErrEmptyName        = fmt.Errorf("%w: name is required", ErrValidation)
	ErrEmptyCategory    = fmt.Errorf("%w: category_id is required", ErrValidation)
	ErrInvalidColor     = fmt.Errorf("%w: color must be #RRGGBB", ErrValidation)
)

// Invalidf builds a validation error with a caller supplied message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Forbiddenf builds an authorization error.
func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// NotFoundf builds a not-found error naming the missing entity.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf builds a conflict error.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// ParseError describes a single field of an imported row that could not be
// converted. It is recovered into the import's skipped list and never
// aborts the whole import.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
