package routing

import (
	"errors"
	"fmt"
	"strings"
)

// Common routing errors that can be checked with errors.Is().
var (
	// ErrAllProvidersFailed is returned when every provider in the failover
	// list was skipped or failed.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrNoProvidersConfigured is returned when no providers are available.
	ErrNoProvidersConfigured = errors.New("no providers configured")
)

// AllProvidersFailedError is returned when all fallback attempts have been
// exhausted and no provider could successfully handle the request.
//
// It unwraps to every per-provider error, so errors.Is(err, breaker.ErrOpen)
// reports whether any provider was skipped by an open circuit.
type AllProvidersFailedError struct {
	// Attempts lists every provider in failover order with its outcome.
	Attempts []Attempt

	// Model is the requested model.
	Model string
}

// Error implements the error interface.
func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	if e.Model == "" {
		return fmt.Sprintf("all providers failed (%s)", strings.Join(parts, "; "))
	}
	return fmt.Sprintf("all providers failed for model %q (%s)", e.Model, strings.Join(parts, "; "))
}

// Is implements error matching for errors.Is().
func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

// Unwrap returns the per-provider errors for error chain traversal.
func (e *AllProvidersFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// AttemptedProviders returns the provider names in the order they were tried.
func (e *AllProvidersFailedError) AttemptedProviders() []string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Provider
	}
	return names
}

// LastError returns the error from the last provider tried.
func (e *AllProvidersFailedError) LastError() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}
