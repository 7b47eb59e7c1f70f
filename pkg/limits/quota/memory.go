package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MemoryAccountStore keeps accounts in a process-local map. Reservations
// are serialized by a mutex, which makes them atomic within one process.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

// NewMemoryAccountStore creates an empty store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts: make(map[string]*Account),
	}
}

// Reserve charges cost to userID.
func (m *MemoryAccountStore) Reserve(ctx context.Context, userID string, cost int64, now time.Time) (Decision, error) {
	if cost <= 0 {
		return Decision{}, ErrInvalidCost
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return Decision{}, ErrUserNotFound
	}

	updated, decision := evaluate(*acct, cost, now)
	*acct = updated
	return decision, nil
}

// GetAccount returns a copy of the stored account.
func (m *MemoryAccountStore) GetAccount(ctx context.Context, userID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *acct
	return &cp, nil
}

// CreateAccount inserts acct. Zero PeriodResetAt and CreatedAt are filled
// from the current time.
func (m *MemoryAccountStore) CreateAccount(ctx context.Context, acct Account) error {
	if err := prepareAccount(&acct, time.Now()); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[acct.UserID]; ok {
		return ErrAccountExists
	}
	m.accounts[acct.UserID] = &acct
	return nil
}

// Close is a no-op.
func (m *MemoryAccountStore) Close() error {
	return nil
}

func prepareAccount(acct *Account, now time.Time) error {
	if acct.UserID == "" {
		return errors.New("user id cannot be empty")
	}
	if acct.Tier == "" {
		acct.Tier = TierFree
	}
	if _, err := ParseTier(string(acct.Tier)); err != nil {
		return err
	}
	if acct.TokensUsed < 0 {
		acct.TokensUsed = 0
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = now.UTC()
	}
	if acct.PeriodResetAt.IsZero() {
		acct.PeriodResetAt = FirstPeriodReset(acct.CreatedAt)
	}
	if acct.PeriodAnchorDay == 0 {
		acct.PeriodAnchorDay = acct.PeriodResetAt.UTC().Day()
	}
	if acct.PeriodAnchorDay < 1 || acct.PeriodAnchorDay > 31 {
		return fmt.Errorf("period anchor day %d out of range", acct.PeriodAnchorDay)
	}
	return nil
}
