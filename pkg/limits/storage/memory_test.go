package storage

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for deterministic window tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStore_IncrementCountsWithinWindow(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStoreWithConfig(MemoryStoreConfig{Now: clock.Now})
	defer store.Close()

	ctx := context.Background()
	start := clock.Now()

	for i := int64(1); i <= 3; i++ {
		c, err := store.Increment(ctx, "auth:1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if c.Total != i {
			t.Errorf("Expected total %d, got %d", i, c.Total)
		}
		if !c.ResetAt.Equal(start.Add(time.Minute)) {
			t.Errorf("Expected resetAt %v, got %v", start.Add(time.Minute), c.ResetAt)
		}
		clock.Advance(10 * time.Second)
	}
}

func TestMemoryStore_WindowExpiry(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStoreWithConfig(MemoryStoreConfig{Now: clock.Now})
	defer store.Close()

	ctx := context.Background()

	if _, err := store.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if _, err := store.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	// Exactly at resetAt the old window is gone.
	clock.Advance(time.Minute)

	c, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c.Total != 0 {
		t.Errorf("Expected expired window to report 0, got %d", c.Total)
	}

	c, err = store.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if c.Total != 1 {
		t.Errorf("Expected fresh window count 1, got %d", c.Total)
	}
	if !c.ResetAt.Equal(clock.Now().Add(time.Minute)) {
		t.Errorf("Expected new resetAt, got %v", c.ResetAt)
	}
}

func TestMemoryStore_Reset(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := store.Increment(ctx, "k", time.Hour); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}

	if err := store.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	c, _ := store.Get(ctx, "k")
	if c.Total != 0 {
		t.Errorf("Expected 0 after reset, got %d", c.Total)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStoreWithConfig(MemoryStoreConfig{Now: clock.Now, SweepInterval: time.Hour})
	defer store.Close()

	ctx := context.Background()
	store.Increment(ctx, "short", time.Second)
	store.Increment(ctx, "long", time.Hour)

	clock.Advance(2 * time.Second)

	if removed := store.Sweep(); removed != 1 {
		t.Errorf("Expected 1 key swept, got %d", removed)
	}
	if size := store.Size(); size != 1 {
		t.Errorf("Expected 1 key remaining, got %d", size)
	}
}

func TestMemoryStore_Validation(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()

	if _, err := store.Increment(ctx, "", time.Second); err != ErrEmptyKey {
		t.Errorf("Expected ErrEmptyKey, got %v", err)
	}
	if _, err := store.Increment(ctx, "k", 0); err != ErrInvalidWindow {
		t.Errorf("Expected ErrInvalidWindow, got %v", err)
	}
}

func TestMemoryStore_ConcurrentIncrements(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Increment(ctx, "k", time.Hour)
		}()
	}
	wg.Wait()

	c, _ := store.Get(ctx, "k")
	if c.Total != 50 {
		t.Errorf("Expected 50 hits, got %d", c.Total)
	}
}

func TestMemoryStore_CloseIdempotent(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Close(); err != nil {
		t.Fatalf("First close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}
}
