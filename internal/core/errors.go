package core

import (
	"errors"
	"fmt"
)

// Structural failures. Per-row outcomes are never returned as errors; they
// are counted in the summary.
var (
	// ErrUnauthorized means the caller has no identity.
	ErrUnauthorized = errors.New("unauthorized: user not authenticated")

	// ErrForbidden means the caller is unknown or not an administrator.
	ErrForbidden = errors.New("forbidden: admin access required")

	// ErrNoFile means no upload stream was supplied.
	ErrNoFile = errors.New("no file provided")

	// ErrParse means the stream is not well-formed delimited text.
	ErrParse = errors.New("invalid csv")

	// ErrStoreUnavailable means a store call failed at the transport level.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrAborted means the caller went away before the stream was exhausted.
	// The summary returned alongside it covers the batches that completed.
	ErrAborted = errors.New("upload cancelled")
)

// RowFormatError reports a record that could not be parsed as CSV.
type RowFormatError struct {
	Line int
	Err  error
}

func (e *RowFormatError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowFormatError) Unwrap() error { return e.Err }

// Unavailable wraps err with ErrStoreUnavailable, keeping the cause.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
