package limits

import (
	"errors"
	"fmt"

	"mercator-hq/bulwark/pkg/limits/ratelimit"
	"mercator-hq/bulwark/pkg/limits/storage"
)

// ErrUnknownClass is returned for request classes without a policy.
var ErrUnknownClass = errors.New("unknown request class")

// ClassError names the request class that had no policy.
type ClassError struct {
	Class string
}

// Error implements the error interface.
func (e *ClassError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownClass, e.Class)
}

// Is enables errors.Is(err, ErrUnknownClass).
func (e *ClassError) Is(target error) bool {
	return target == ErrUnknownClass
}

// Status is a snapshot of the admission layer for health reporting.
type Status struct {
	// StoreMode is the counter store's current backend.
	StoreMode storage.Mode `json:"store_mode"`

	// Policies lists the configured request classes.
	Policies []ratelimit.Policy `json:"policies"`
}
