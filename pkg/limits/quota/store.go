package quota

import (
	"context"
	"time"
)

// AccountStore persists quota accounts. Reserve must be atomic per user:
// the rollover check, the limit comparison and the increment happen as one
// step so concurrent reservations never both pass a check that only one of
// them can satisfy.
type AccountStore interface {
	// Reserve charges cost to userID at instant now. A denied reservation
	// returns a Decision with Allowed=false and a nil error. Missing users
	// return ErrUserNotFound.
	Reserve(ctx context.Context, userID string, cost int64, now time.Time) (Decision, error)

	// GetAccount returns the stored account without rolling it over.
	GetAccount(ctx context.Context, userID string) (*Account, error)

	// CreateAccount inserts a new account. Duplicate users return
	// ErrAccountExists.
	CreateAccount(ctx context.Context, acct Account) error

	// Close releases the store's resources.
	Close() error
}
