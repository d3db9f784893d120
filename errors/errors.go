// Package errors provides error types and handling for attachment transfer
// operations.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error represents an attachment operation error with context about the
// operation that failed. It wraps the underlying error with additional
// context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g. "upload", "download", "persist")
	Op string

	// Key is the storage key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("attach.%s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("attach.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithKey adds storage key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// Sentinel errors for attachment transfer failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("attach: invalid input")

	// ErrValidation indicates the file failed type, size, or extension policy
	ErrValidation = errors.New("attach: file validation failed")

	// ErrAuthExpired indicates missing or expired session credentials
	ErrAuthExpired = errors.New("attach: session expired")

	// ErrStorageTransfer indicates the object store rejected the transfer
	ErrStorageTransfer = errors.New("attach: storage transfer failed")

	// ErrMetadataPersist indicates the backend rejected or failed to store
	// the file metadata
	ErrMetadataPersist = errors.New("attach: metadata persistence failed")

	// ErrRetrieval indicates a download or URL fetch failure
	ErrRetrieval = errors.New("attach: retrieval failed")

	// ErrRetryExhausted indicates all retry attempts were consumed
	ErrRetryExhausted = errors.New("attach: retry attempts exhausted")

	// ErrCancelled indicates a user-initiated abort
	ErrCancelled = errors.New("attach: operation cancelled")
)

// IsValidation checks if an error indicates a policy validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsAuthExpired checks if an error indicates expired session credentials.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// IsCancelled checks if an error indicates a user-initiated abort.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsRetryExhausted checks if an error indicates the retry budget ran out.
func IsRetryExhausted(err error) bool {
	return errors.Is(err, ErrRetryExhausted)
}

// IsRetryable reports whether an error is worth retrying. Only transport and
// backend-availability failures qualify; validation, authentication, and
// cancellation are terminal and retrying them would never succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrStorageTransfer) ||
		errors.Is(err, ErrMetadataPersist) ||
		errors.Is(err, ErrRetrieval)
}
