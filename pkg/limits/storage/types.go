package storage

import (
	"context"
	"errors"
	"time"
)

// Store is the shared counter abstraction behind every rate limit policy.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// Increment records one hit against key and returns the window state
	// after the hit. The returned Total includes the hit just recorded.
	Increment(ctx context.Context, key string, window time.Duration) (Counter, error)

	// Get returns the current window state for key without recording a hit.
	// A missing or expired key yields a zero Counter.
	Get(ctx context.Context, key string) (Counter, error)

	// Reset removes all state for key.
	Reset(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// Counter is a snapshot of a single key's window.
type Counter struct {
	// Total is the number of hits counted in the current window.
	Total int64

	// ResetAt is when the window frees capacity again.
	ResetAt time.Time
}

// Mode describes which backend is answering requests.
type Mode string

const (
	// ModeMemory means the store is process-local only.
	ModeMemory Mode = "memory"

	// ModeShared means counters live in the shared network store.
	ModeShared Mode = "shared"

	// ModeDegraded means the shared store is unreachable and the
	// process-local fallback is answering.
	ModeDegraded Mode = "degraded"
)

// ModeReporter is implemented by stores that can report their backend mode.
type ModeReporter interface {
	Mode() Mode
}

// ErrEmptyKey is returned when a store operation receives an empty key.
var ErrEmptyKey = errors.New("storage: key cannot be empty")

// ErrInvalidWindow is returned when Increment receives a non-positive window.
var ErrInvalidWindow = errors.New("storage: window must be positive")

// ModeOf returns the mode of st, or ModeMemory when st does not report one.
func ModeOf(st Store) Mode {
	if r, ok := st.(ModeReporter); ok {
		return r.Mode()
	}
	return ModeMemory
}

func validate(key string, window time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if window <= 0 {
		return ErrInvalidWindow
	}
	return nil
}
