package storage

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// FallbackStore routes to a shared primary store and falls back to a local
// memory store whenever the primary fails. Requests are never rejected
// because the shared store is down.
//
// Counters are not migrated between backends. While degraded, each replica
// enforces limits on its own traffic only.
type FallbackStore struct {
	primary  Store
	fallback *MemoryStore
	logger   *slog.Logger

	degraded     atomic.Bool
	onModeChange func(Mode)
}

// FallbackOption configures a FallbackStore.
type FallbackOption func(*FallbackStore)

// WithLogger sets the logger used for degradation warnings.
func WithLogger(logger *slog.Logger) FallbackOption {
	return func(f *FallbackStore) {
		f.logger = logger
	}
}

// WithModeChangeHook registers a callback invoked on every transition
// between ModeShared and ModeDegraded.
func WithModeChangeHook(fn func(Mode)) FallbackOption {
	return func(f *FallbackStore) {
		f.onModeChange = fn
	}
}

// NewFallbackStore creates a store that prefers primary and uses fallback
// while primary is failing.
func NewFallbackStore(primary Store, fallback *MemoryStore, opts ...FallbackOption) *FallbackStore {
	f := &FallbackStore{
		primary:  primary,
		fallback: fallback,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Increment records a hit against key.
func (f *FallbackStore) Increment(ctx context.Context, key string, win time.Duration) (Counter, error) {
	c, err := f.primary.Increment(ctx, key, win)
	if err == nil {
		f.recover()
		return c, nil
	}
	if ctx.Err() != nil {
		return Counter{}, ctx.Err()
	}
	f.degrade("increment", err)
	return f.fallback.Increment(ctx, key, win)
}

// Get returns the current window for key.
func (f *FallbackStore) Get(ctx context.Context, key string) (Counter, error) {
	c, err := f.primary.Get(ctx, key)
	if err == nil {
		f.recover()
		return c, nil
	}
	if ctx.Err() != nil {
		return Counter{}, ctx.Err()
	}
	f.degrade("get", err)
	return f.fallback.Get(ctx, key)
}

// Reset removes key from both backends.
func (f *FallbackStore) Reset(ctx context.Context, key string) error {
	_ = f.fallback.Reset(ctx, key)
	if err := f.primary.Reset(ctx, key); err != nil {
		f.degrade("reset", err)
	}
	return nil
}

// Mode reports ModeShared or ModeDegraded.
func (f *FallbackStore) Mode() Mode {
	if f.degraded.Load() {
		return ModeDegraded
	}
	return ModeShared
}

// Close closes both backends.
func (f *FallbackStore) Close() error {
	ferr := f.fallback.Close()
	if err := f.primary.Close(); err != nil {
		return err
	}
	return ferr
}

func (f *FallbackStore) degrade(op string, err error) {
	if f.degraded.CompareAndSwap(false, true) {
		f.logger.Warn("shared rate limit store unavailable, using in-memory fallback",
			"operation", op,
			"error", err,
		)
		if f.onModeChange != nil {
			f.onModeChange(ModeDegraded)
		}
		return
	}
	f.logger.Debug("shared rate limit store still unavailable",
		"operation", op,
		"error", err,
	)
}

func (f *FallbackStore) recover() {
	if f.degraded.CompareAndSwap(true, false) {
		f.logger.Info("shared rate limit store recovered")
		if f.onModeChange != nil {
			f.onModeChange(ModeShared)
		}
	}
}
