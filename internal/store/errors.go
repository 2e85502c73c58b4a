package store

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	// ErrNotFound means a lookup matched nothing. Absence is an expected
	// outcome, callers check for it with errors.Is.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is the authoritative uniqueness-violation signal,
	// raised by the backing store's unique index.
	ErrDuplicate = errors.New("record already exists")
	// ErrConversion means a document did not match the expected record
	// shape. Not retryable.
	ErrConversion = errors.New("document conversion failed")
	// ErrUnavailable means the backing store could not be reached or the
	// connection dropped mid-operation. Retryable.
	ErrUnavailable = errors.New("backing store unavailable")
)

// FieldError names the document field that could not be decoded.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrConversion
}

func backendError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, multierr.Append(ErrUnavailable, err))
}
