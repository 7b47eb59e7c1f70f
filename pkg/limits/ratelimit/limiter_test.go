package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/bulwark/pkg/limits/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newTestLimiter(t *testing.T, policy Policy) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := storage.NewMemoryStoreWithConfig(storage.MemoryStoreConfig{Now: clock.Now})
	t.Cleanup(func() { store.Close() })

	limiter, err := NewLimiter(store, policy)
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}
	limiter.now = clock.Now
	return limiter, clock
}

func TestLimiter_AuthPolicy(t *testing.T) {
	limiter, clock := newTestLimiter(t, DefaultPolicies()[0])
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		res, err := limiter.Allow(ctx, "203.0.113.7")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("Expected request %d to be allowed", i)
		}
		if res.Remaining != 5-i {
			t.Errorf("Request %d: expected remaining %d, got %d", i, 5-i, res.Remaining)
		}
		if res.Limit != 5 {
			t.Errorf("Expected limit 5, got %d", res.Limit)
		}
	}

	res, err := limiter.Allow(ctx, "203.0.113.7")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if res.Allowed {
		t.Fatal("Expected 6th request to be denied")
	}
	if res.Remaining != 0 {
		t.Errorf("Expected remaining 0, got %d", res.Remaining)
	}
	if res.RetryAfter != 15*time.Minute {
		t.Errorf("Expected retry after 15m, got %v", res.RetryAfter)
	}
	if !errors.Is(res.Err(), ErrLimitExceeded) {
		t.Errorf("Expected ErrLimitExceeded, got %v", res.Err())
	}

	// After the window passes the client is admitted again.
	clock.Advance(15 * time.Minute)
	res, _ = limiter.Allow(ctx, "203.0.113.7")
	if !res.Allowed {
		t.Error("Expected request to be allowed after window reset")
	}
}

func TestLimiter_PoliciesDoNotShareCounts(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := storage.NewMemoryStoreWithConfig(storage.MemoryStoreConfig{Now: clock.Now})
	defer store.Close()

	policies := DefaultPolicies()
	auth, _ := NewLimiter(store, policies[0])
	general, _ := NewLimiter(store, policies[2])

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		auth.Allow(ctx, "client")
	}

	res, err := general.Allow(ctx, "client")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !res.Allowed || res.Remaining != 99 {
		t.Errorf("Expected general to be unaffected, got allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}
}

func TestLimiter_ClientsAreIsolated(t *testing.T) {
	limiter, _ := newTestLimiter(t, Policy{Name: "ai", Window: time.Hour, Limit: 1})
	ctx := context.Background()

	if res, _ := limiter.Allow(ctx, "a"); !res.Allowed {
		t.Error("Expected client a to be allowed")
	}
	if res, _ := limiter.Allow(ctx, "b"); !res.Allowed {
		t.Error("Expected client b to be allowed")
	}
	if res, _ := limiter.Allow(ctx, "a"); res.Allowed {
		t.Error("Expected client a to be denied")
	}
}

func TestLimiter_PeekAndReset(t *testing.T) {
	limiter, _ := newTestLimiter(t, Policy{Name: "general", Window: time.Minute, Limit: 2})
	ctx := context.Background()

	limiter.Allow(ctx, "c")
	limiter.Allow(ctx, "c")

	res, err := limiter.Peek(ctx, "c")
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if res.Allowed || res.Remaining != 0 {
		t.Errorf("Expected exhausted window, got allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}

	if err := limiter.Reset(ctx, "c"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	res, _ = limiter.Peek(ctx, "c")
	if !res.Allowed || res.Remaining != 2 {
		t.Errorf("Expected fresh window, got allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}
}

func TestLimiter_ConcurrentAdmissionNeverExceedsLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, Policy{Name: "ai", Window: time.Hour, Limit: 10})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Allow(ctx, "u")
			if err != nil {
				t.Errorf("Allow failed: %v", err)
				return
			}
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("Expected exactly 10 admitted, got %d", allowed)
	}
}

func TestResult_RetryAfterSeconds(t *testing.T) {
	tests := []struct {
		name  string
		after time.Duration
		want  int64
	}{
		{"zero", 0, 0},
		{"rounds up", 1500 * time.Millisecond, 2},
		{"whole", 3 * time.Second, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Result{RetryAfter: tt.after}
			if got := r.RetryAfterSeconds(); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestNewLimiter_Validation(t *testing.T) {
	store := storage.NewMemoryStore()
	defer store.Close()

	if _, err := NewLimiter(nil, DefaultPolicies()[0]); err == nil {
		t.Error("Expected error for nil store")
	}
	if _, err := NewLimiter(store, Policy{Name: "x", Window: time.Minute}); err == nil {
		t.Error("Expected error for zero limit")
	}
	if _, err := NewLimiter(store, Policy{Window: time.Minute, Limit: 1}); err == nil {
		t.Error("Expected error for empty name")
	}
}
