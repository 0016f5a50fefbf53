// Package errors provides the small set of structured error
// constructors used across the pipeline, so callers can distinguish
// configuration mistakes, per-item skips, and upstream failures
// without string-matching error messages (aside from the one
// documented exception in internal/retry, see its doc comment).
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Category is a stable, machine-checkable error class.
type Category string

const (
	CategoryInvalidInput    Category = "invalid_input"
	CategoryExternalService Category = "external_service"
	CategoryInternal        Category = "internal"
	CategorySkip            Category = "skip"
)

// Error wraps an underlying cause with a Category, enabling
// errors.Is/As-based dispatch at the process boundary (choosing an
// exit code, or deciding whether a failure is a per-item skip).
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Category,
// supporting errors.Is(err, &errors.Error{Category: CategoryInvalidInput}).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Category == e.Category
	}
	return false
}

// NewInvalidInputError builds a fatal configuration/argument error.
func NewInvalidInputError(format string, args ...any) error {
	return &Error{Category: CategoryInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// NewExternalServiceError builds an error for a failed call to an
// upstream collaborator (listing API, file download, chat completion,
// publisher transport).
func NewExternalServiceError(format string, args ...any) error {
	return &Error{Category: CategoryExternal(), Message: fmt.Sprintf(format, args...)}
}

// CategoryExternal exists only so NewExternalServiceError reads
// naturally above; it always returns CategoryExternalService.
func CategoryExternal() Category { return CategoryExternalService }

// NewSkipError builds a per-item skip: a condition that drops the
// current item but must never abort the Scanner or Worker loop (no
// file-id, empty DOCX body, URL regex rejection).
func NewSkipError(format string, args ...any) error {
	return &Error{Category: CategorySkip, Message: fmt.Sprintf(format, args...)}
}

// WrapInternal wraps an unexpected error (a bug, an invariant
// violation) with context. ctx is accepted for parity with the
// teacher's signature and future cancellation-aware logging; it is not
// currently inspected.
func WrapInternal(_ context.Context, err error, format string, args ...any) error {
	return &Error{Category: CategoryInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsSkip reports whether err (or a wrapped cause) is a per-item skip.
func IsSkip(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Category == CategorySkip
}

// IsInvalidInput reports whether err (or a wrapped cause) is a
// configuration/argument error.
func IsInvalidInput(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Category == CategoryInvalidInput
}

// IsExternalService reports whether err (or a wrapped cause) came from
// a failed call to an external collaborator.
func IsExternalService(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Category == CategoryExternalService
}
