package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a resource that is already there, e.g. an index.
	ErrAlreadyExists = errors.New("already exists")
	// ErrModelNotFound signals an unknown model type.
	ErrModelNotFound = errors.New("model not found")
	// ErrInvalidFilter signals a filter that cannot be compiled.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidPage signals a non-positive page number or page size.
	ErrInvalidPage = errors.New("invalid page")
	// ErrUnknownDriver signals an engine driver that is not registered.
	ErrUnknownDriver = errors.New("unknown engine driver")
	// ErrNotSupported signals an operation the backend cannot perform.
	ErrNotSupported = errors.New("not supported by backend")
	// ErrPredicate signals a failing per-model hook.
	ErrPredicate = errors.New("model predicate failed")
)

// FilterError wraps ErrInvalidFilter with the offending field.
type FilterError struct {
	Field  string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", ErrInvalidFilter.Error(), e.Field, e.Reason)
}

func (e *FilterError) Unwrap() error { return ErrInvalidFilter }

// NewFilterError creates an invalid filter error for field.
func NewFilterError(field, reason string) error {
	return &FilterError{Field: field, Reason: reason}
}
