package quota

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when no account exists for the user.
	ErrUserNotFound = errors.New("quota account not found")

	// ErrQuotaExceeded is matched by *ExceededError.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrUnknownAction is returned for actions without a cost.
	ErrUnknownAction = errors.New("unknown metered action")

	// ErrAccountExists is returned when creating a duplicate account.
	ErrAccountExists = errors.New("quota account already exists")

	// ErrInvalidCost is returned for non-positive costs.
	ErrInvalidCost = errors.New("reservation cost must be positive")
)

// ExceededError describes a denied reservation.
type ExceededError struct {
	Decision Decision
}

// Error implements the error interface.
func (e *ExceededError) Error() string {
	return fmt.Sprintf("%d tokens required, %d remaining", e.Decision.Cost, e.Decision.Remaining)
}

// Is implements error matching for errors.Is().
func (e *ExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
