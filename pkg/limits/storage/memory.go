package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using process-local counters.
// Each key holds a count and the instant its window ends. The window opens
// on the first hit after the previous one expired.
//
// MemoryStore is thread-safe. A background goroutine sweeps expired keys
// so idle clients do not accumulate.
type MemoryStore struct {
	// windows maps counter key to its current window.
	windows map[string]*window

	// mu protects access to windows.
	mu sync.Mutex

	// now returns the current time.
	now func() time.Time

	// sweepInterval is how often expired keys are removed.
	sweepInterval time.Duration

	// done signals the sweep goroutine to stop.
	done      chan struct{}
	closeOnce sync.Once
}

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStoreConfig configures the memory store.
type MemoryStoreConfig struct {
	// SweepInterval is how often expired keys are removed.
	// Default: 1 minute
	SweepInterval time.Duration

	// Now overrides the clock. Default: time.Now
	Now func() time.Time
}

// NewMemoryStore creates a memory store with default settings.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(MemoryStoreConfig{})
}

// NewMemoryStoreWithConfig creates a memory store with custom configuration.
func NewMemoryStoreWithConfig(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &MemoryStore{
		windows:       make(map[string]*window),
		now:           cfg.Now,
		sweepInterval: cfg.SweepInterval,
		done:          make(chan struct{}),
	}

	go m.sweepLoop()

	return m
}

// Increment records a hit against key.
func (m *MemoryStore) Increment(ctx context.Context, key string, win time.Duration) (Counter, error) {
	if err := validate(key, win); err != nil {
		return Counter{}, err
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(win)}
		m.windows[key] = w
	}
	w.count++

	return Counter{Total: w.count, ResetAt: w.resetAt}, nil
}

// Get returns the current window for key.
func (m *MemoryStore) Get(ctx context.Context, key string) (Counter, error) {
	if key == "" {
		return Counter{}, ErrEmptyKey
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		return Counter{}, nil
	}
	return Counter{Total: w.count, ResetAt: w.resetAt}, nil
}

// Reset removes key.
func (m *MemoryStore) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.windows, key)
	return nil
}

// Sweep removes every expired key and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked keys, expired or not.
// This is useful for monitoring and testing.
func (m *MemoryStore) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Mode reports ModeMemory.
func (m *MemoryStore) Mode() Mode {
	return ModeMemory
}

// Close stops the sweep goroutine.
// Close is idempotent and safe to call multiple times.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	return nil
}

// sweepLoop runs periodic removal of expired keys.
func (m *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.done:
			return
		}
	}
}
