// Package common - error taxonomy and shared records for box suppression.
package common

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidBox matches every InvalidBoxError via errors.Is.
	ErrInvalidBox = errors.New("invalid box")
	// ErrInvalidArgument matches every InvalidArgumentError via errors.Is.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrBackendUnavailable matches every BackendUnavailableError via errors.Is.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// InvalidBoxError reports malformed geometry: a negative size, or a NaN or
// infinite coordinate.
type InvalidBoxError struct {
	// Index is the position of the offending box in its collection.
	Index int
	// Reason describes what is wrong with the box.
	Reason string
}

// Error implements the error interface.
func (e *InvalidBoxError) Error() string {
	return fmt.Sprintf("invalid box %d: %s", e.Index, e.Reason)
}

// Is reports whether target is ErrInvalidBox.
func (e *InvalidBoxError) Is(target error) bool {
	return target == ErrInvalidBox
}

// InvalidArgumentError reports a bad call: threshold out of range, mismatched
// lengths, NaN scores, unsupported encodings and misconfigured backends.
type InvalidArgumentError struct {
	// Field names the argument that failed validation.
	Field string
	// Reason describes the failure.
	Reason string
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// BackendUnavailableError reports that a requested execution backend can not
// serve a request. It is recovered by falling back to the CPU backend.
type BackendUnavailableError struct {
	Backend string
	Reason  string
}

// Error implements the error interface.
func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend %q unavailable: %s", e.Backend, e.Reason)
}

// Is reports whether target is ErrBackendUnavailable.
func (e *BackendUnavailableError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

// NewInvalidBox returns an InvalidBoxError for the box at index.
func NewInvalidBox(index int, format string, args ...interface{}) error {
	return &InvalidBoxError{Index: index, Reason: fmt.Sprintf(format, args...)}
}

// NewInvalidArgument returns an InvalidArgumentError for field.
func NewInvalidArgument(field, format string, args ...interface{}) error {
	return &InvalidArgumentError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NewBackendUnavailable returns a BackendUnavailableError for backend.
func NewBackendUnavailable(backend, format string, args ...interface{}) error {
	return &BackendUnavailableError{Backend: backend, Reason: fmt.Sprintf(format, args...)}
}
