package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every structured error below matches exactly one of these
// with errors.Is.
var (
	ErrArgumentValidation = errors.New("argument validation failed")
	ErrResponseValidation = errors.New("response validation failed")
	ErrNotFound           = errors.New("entity not found")
	ErrTransport          = errors.New("transport error")
)

// Declaration errors.
var (
	ErrInvalidShape    = errors.New("invalid shape")
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	ErrInvalidKey      = errors.New("invalid primary key")
)

// ArgumentValidationError reports input that failed its declared shape.
// Index is the position of the failing item in a bulk call, -1 otherwise.
type ArgumentValidationError struct {
	Endpoint string
	Index    int
	Issues   []Issue
}

func (e *ArgumentValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: item %d: %s %s", e.Endpoint, e.Index, ErrArgumentValidation, formatIssues(e.Issues))
	}
	return fmt.Sprintf("%s: %s %s", e.Endpoint, ErrArgumentValidation, formatIssues(e.Issues))
}

// Is matches ErrArgumentValidation.
func (e *ArgumentValidationError) Is(target error) bool {
	return target == ErrArgumentValidation
}

// ResponseValidationError reports a backend response that failed the
// declared return shape even though the transport call succeeded.
type ResponseValidationError struct {
	Endpoint string
	Issues   []Issue
}

func (e *ResponseValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Endpoint, ErrResponseValidation, formatIssues(e.Issues))
}

// Is matches ErrResponseValidation.
func (e *ResponseValidationError) Is(target error) bool {
	return target == ErrResponseValidation
}

// NotFoundError reports that no row matched a primary key.
type NotFoundError struct {
	Endpoint string
	Key      any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s: key %v", e.Endpoint, ErrNotFound, e.Key)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TransportError wraps a failure reported by the backend transport. The
// cause is propagated verbatim; the core never retries.
type TransportError struct {
	Endpoint string
	Op       string
	Cause    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Endpoint, ErrTransport, e.Op, e.Cause)
}

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Unwrap returns the transport's own error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IssuesOf returns the issues carried by a validation error, or nil.
func IssuesOf(err error) []Issue {
	var av *ArgumentValidationError
	if errors.As(err, &av) {
		return av.Issues
	}
	var rv *ResponseValidationError
	if errors.As(err, &rv) {
		return rv.Issues
	}
	return nil
}
