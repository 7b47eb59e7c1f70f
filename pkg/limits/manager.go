package limits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"mercator-hq/bulwark/pkg/limits/quota"
	"mercator-hq/bulwark/pkg/limits/ratelimit"
	"mercator-hq/bulwark/pkg/limits/storage"
)

// Manager owns the admission layer: one rate limiter per request class over
// a shared counter store, and the token quota ledger.
//
// The Manager is constructed once at startup and passed to the middleware
// and admin handlers.
//
// # Example
//
//	store := storage.NewStore(ctx, storage.Config{RedisURL: url})
//	ledger := quota.NewLedger(quota.NewMemoryAccountStore())
//	manager, err := limits.NewManager(store, ledger, ratelimit.DefaultPolicies()...)
//
//	limiter, _ := manager.Limiter(ratelimit.ClassAuth)
//	result, err := limiter.Allow(ctx, clientIP)
type Manager struct {
	store    storage.Store
	ledger   *quota.Ledger
	limiters map[string]*ratelimit.Limiter
	logger   *slog.Logger
}

// NewManager creates a manager with one limiter per policy. With no
// policies the default table is used. Duplicate policy names are rejected.
func NewManager(store storage.Store, ledger *quota.Ledger, policies ...ratelimit.Policy) (*Manager, error) {
	if store == nil {
		return nil, errors.New("counter store cannot be nil")
	}
	if ledger == nil {
		return nil, errors.New("quota ledger cannot be nil")
	}
	if len(policies) == 0 {
		policies = ratelimit.DefaultPolicies()
	}

	m := &Manager{
		store:    store,
		ledger:   ledger,
		limiters: make(map[string]*ratelimit.Limiter, len(policies)),
		logger:   slog.Default().With("component", "limits"),
	}

	for _, p := range policies {
		if _, dup := m.limiters[p.Name]; dup {
			return nil, fmt.Errorf("duplicate rate limit policy %q", p.Name)
		}
		l, err := ratelimit.NewLimiter(store, p)
		if err != nil {
			return nil, fmt.Errorf("failed to create limiter: %w", err)
		}
		m.limiters[p.Name] = l
	}

	m.logger.Info("admission layer initialized",
		"store_mode", storage.ModeOf(store),
		"classes", m.Classes(),
	)

	return m, nil
}

// Limiter returns the limiter for class.
func (m *Manager) Limiter(class string) (*ratelimit.Limiter, error) {
	l, ok := m.limiters[class]
	if !ok {
		return nil, &ClassError{Class: class}
	}
	return l, nil
}

// Classes returns the configured request classes, sorted.
func (m *Manager) Classes() []string {
	out := make([]string, 0, len(m.limiters))
	for name := range m.limiters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Ledger returns the token quota ledger.
func (m *Manager) Ledger() *quota.Ledger {
	return m.ledger
}

// Store returns the counter store.
func (m *Manager) Store() storage.Store {
	return m.store
}

// ResetClient clears client's window for class.
func (m *Manager) ResetClient(ctx context.Context, class, client string) error {
	l, err := m.Limiter(class)
	if err != nil {
		return err
	}
	if err := l.Reset(ctx, client); err != nil {
		return fmt.Errorf("failed to reset %s window for %s: %w", class, client, err)
	}
	m.logger.Info("rate limit window reset", "class", class, "client", client)
	return nil
}

// PeekClient reports client's window for class without counting a hit.
func (m *Manager) PeekClient(ctx context.Context, class, client string) (*ratelimit.Result, error) {
	l, err := m.Limiter(class)
	if err != nil {
		return nil, err
	}
	return l.Peek(ctx, client)
}

// Status reports the store mode and configured policies.
func (m *Manager) Status() Status {
	st := Status{StoreMode: storage.ModeOf(m.store)}
	for _, class := range m.Classes() {
		st.Policies = append(st.Policies, m.limiters[class].Policy())
	}
	return st
}

// Close releases the counter store and the account store.
func (m *Manager) Close() error {
	return errors.Join(
		m.store.Close(),
		m.ledger.Store().Close(),
	)
}
