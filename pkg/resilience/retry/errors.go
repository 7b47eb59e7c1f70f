package retry

import (
	"errors"
	"fmt"
	"time"
)

// ErrAttemptTimeout is the sentinel matched by AttemptTimeoutError.
var ErrAttemptTimeout = errors.New("attempt timed out")

// ErrExhausted is the sentinel matched by ExhaustedError.
var ErrExhausted = errors.New("retries exhausted")

// AttemptTimeoutError is returned when a single attempt exceeds its deadline.
type AttemptTimeoutError struct {
	// After is the per-attempt deadline that was exceeded.
	After time.Duration

	// Cause is the error the operation returned after its context expired,
	// if it returned at all before the executor gave up on it.
	Cause error
}

// Error implements the error interface.
func (e *AttemptTimeoutError) Error() string {
	return fmt.Sprintf("attempt timed out after %s", e.After)
}

// Unwrap returns the underlying cause.
func (e *AttemptTimeoutError) Unwrap() error {
	return e.Cause
}

// Is enables errors.Is(err, ErrAttemptTimeout).
func (e *AttemptTimeoutError) Is(target error) bool {
	return target == ErrAttemptTimeout
}

// Timeout reports true so net.Error-style checks classify it as a timeout.
func (e *AttemptTimeoutError) Timeout() bool {
	return true
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	// Attempts is the number of attempts made, including the first.
	Attempts int

	// Last is the error from the final attempt.
	Last error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Is enables errors.Is(err, ErrExhausted).
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}
