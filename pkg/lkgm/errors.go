// Package lkgm manages the lifecycle of LKGM build candidates: deriving the
// next candidate to test, marking it in-flight, aggregating builder statuses
// from the shared manifest store, and promoting passing candidates to the
// canonical LKGM pointer.
package lkgm

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a failure for the retry loops.
type ErrorClass string

const (
	// ErrorClassConflict indicates the shared store rejected an operation,
	// typically a push racing with a concurrent writer. Retried after resync.
	ErrorClassConflict ErrorClass = "conflict"

	// ErrorClassTransient indicates a command or I/O failure that may
	// succeed on retry.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassPermanent indicates a non-recoverable failure: malformed
	// versions, violated preconditions, bad configuration. Never retried.
	ErrorClassPermanent ErrorClass = "permanent"
)

// CoordinationError is a classified failure from the shared store or the
// underlying command runner.
type CoordinationError struct {
	Class     ErrorClass
	Message   string
	Operation string
	Err       error
}

func (e *CoordinationError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation=%s): %s", e.Class, e.Message, e.Operation, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *CoordinationError) Unwrap() error {
	return e.Err
}

func (e *CoordinationError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// WithOperation adds operation context to the error.
func (e *CoordinationError) WithOperation(op string) *CoordinationError {
	e.Operation = op
	return e
}

// NewConflictError creates a conflict-class coordination error.
func NewConflictError(message string, err error) *CoordinationError {
	return &CoordinationError{Class: ErrorClassConflict, Message: message, Err: err}
}

// NewTransientError creates a transient-class coordination error.
func NewTransientError(message string, err error) *CoordinationError {
	return &CoordinationError{Class: ErrorClassTransient, Message: message, Err: err}
}

// NewPermanentError creates a permanent-class coordination error.
func NewPermanentError(message string, err error) *CoordinationError {
	return &CoordinationError{Class: ErrorClassPermanent, Message: message, Err: err}
}

// IsRetryable reports whether the error may succeed on a retry after a
// resync. Conflict and transient failures are retryable, permanent failures
// and unclassified errors are not.
func IsRetryable(err error) bool {
	var ce *CoordinationError
	if errors.As(err, &ce) {
		return ce.Class == ErrorClassConflict || ce.Class == ErrorClassTransient
	}
	return false
}

// IsPermanent reports whether the error is classified as permanent.
func IsPermanent(err error) bool {
	var ce *CoordinationError
	if errors.As(err, &ce) {
		return ce.Class == ErrorClassPermanent
	}
	return false
}

// GenerateBuildSpecError is raised by the candidate manager after exhausting
// its retries, or on an unrecoverable failure, while deriving or marking a
// candidate. It carries the last underlying error.
type GenerateBuildSpecError struct {
	Message string
	Err     error
}

func (e *GenerateBuildSpecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GenerateBuildSpecError) Unwrap() error { return e.Err }

// PromoteCandidateError is raised by the promotion coordinator after all
// promote attempts failed. It carries the last underlying error and is the
// only error produced by promotion exhaustion.
type PromoteCandidateError struct {
	Message  string
	Attempts int
	Err      error
}

func (e *PromoteCandidateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s after %d attempts: %v", e.Message, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s after %d attempts", e.Message, e.Attempts)
}

func (e *PromoteCandidateError) Unwrap() error { return e.Err }
