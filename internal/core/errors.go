package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for lookup and uniqueness failures. Services wrap
// these with fmt.Errorf("%w: ...") so callers can classify with
// errors.Is while logs keep the detail.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// ValidationError reports client input that fails a semantic check the
// request decoder cannot express, such as deleting a primary domain.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a mail control plane failure. The upstream
// message is preserved verbatim for admin responses; user-facing
// responses replace it with a generic message.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Err: err}
}

// IsNotFound reports whether err is a missing-row failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a uniqueness failure.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
