package storage

import (
	"context"
	"log/slog"
	"time"
)

// Config selects and tunes the counter store.
type Config struct {
	// RedisURL is the shared store address. Empty selects memory only.
	RedisURL string

	// SweepInterval is how often the memory store drops expired keys.
	SweepInterval time.Duration

	// Logger receives connection and degradation messages.
	Logger *slog.Logger

	// OnModeChange is called when the shared store goes down or recovers.
	OnModeChange func(Mode)
}

// NewStore builds the counter store described by cfg.
//
// Without a RedisURL a MemoryStore is returned. With one, NewStore pings
// Redis; if that fails the returned FallbackStore starts degraded and
// switches back to shared mode on the first call Redis answers. Startup
// never fails because Redis is down. An unparsable URL keeps the store
// degraded for the life of the process.
func NewStore(ctx context.Context, cfg Config) Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mem := NewMemoryStoreWithConfig(MemoryStoreConfig{SweepInterval: cfg.SweepInterval})
	if cfg.RedisURL == "" {
		logger.Info("rate limit store initialized", "mode", ModeMemory)
		return mem
	}

	opts := []FallbackOption{WithLogger(logger)}
	if cfg.OnModeChange != nil {
		opts = append(opts, WithModeChangeHook(cfg.OnModeChange))
	}

	client, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		fb := NewFallbackStore(unavailableStore{err: err}, mem, opts...)
		fb.degrade("configure", err)
		return fb
	}

	fb := NewFallbackStore(NewRedisStore(client, RedisStoreConfig{}), mem, opts...)
	if err := client.Ping(ctx).Err(); err != nil {
		fb.degrade("connect", err)
		return fb
	}

	logger.Info("rate limit store initialized", "mode", ModeShared)
	return fb
}

// unavailableStore stands in for a shared store whose URL is invalid.
type unavailableStore struct {
	err error
}

func (u unavailableStore) Increment(context.Context, string, time.Duration) (Counter, error) {
	return Counter{}, u.err
}

func (u unavailableStore) Get(context.Context, string) (Counter, error) {
	return Counter{}, u.err
}

func (u unavailableStore) Reset(context.Context, string) error {
	return u.err
}

func (u unavailableStore) Close() error {
	return nil
}
