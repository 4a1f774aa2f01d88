// Package errors provides standardized domain errors that express failure intent
// rather than infrastructure details. Remote-call errors are classified here so the
// dispatcher can decide between retrying and failing an item, and storage or mapping
// errors can halt a sync cycle.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., an item already being synced).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransientRemote indicates a remote failure worth retrying (network, 5xx, rate limit).
	ErrTransientRemote = errors.New("transient remote error")

	// ErrRateLimited indicates the remote platform rejected the call because of an
	// account-wide rate limit. It is a transient error.
	ErrRateLimited = fmt.Errorf("rate limited: %w", ErrTransientRemote)

	// ErrPermanentRemote indicates the remote platform rejected the call in a way that
	// retrying cannot fix (4xx validation errors).
	ErrPermanentRemote = errors.New("permanent remote error")

	// ErrStorage indicates the local store failed. It is fatal to the current cycle.
	ErrStorage = errors.New("storage error")

	// ErrMapping indicates the category mapping table is malformed. The process refuses to start.
	ErrMapping = errors.New("mapping error")
)

// RateLimitError carries the retry hint returned by a rate-limited platform.
type RateLimitError struct {
	Platform   string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Platform, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Platform)
}

// Unwrap makes errors.Is(err, ErrRateLimited) and errors.Is(err, ErrTransientRemote) hold.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message while preserving the error chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Storage wraps a persistence failure so it matches ErrStorage while keeping the
// driver error in the chain.
func Storage(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", message, ErrStorage, err)
}

// IsRetryable reports whether err is a remote failure the dispatcher may retry.
// Errors that are neither transient nor permanent are treated as transient since an
// unclassified failure is usually a network problem.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanentRemote) || errors.Is(err, ErrStorage) {
		return false
	}
	return true
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
