package storage

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestFallbackStore_DegradesWhenRedisStops(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{
		Addr:        mr.Addr(),
		DialTimeout: 100 * time.Millisecond,
	})

	var (
		mu    sync.Mutex
		modes []Mode
	)
	store := NewFallbackStore(
		NewRedisStore(client, RedisStoreConfig{}),
		NewMemoryStore(),
		WithModeChangeHook(func(m Mode) {
			mu.Lock()
			defer mu.Unlock()
			modes = append(modes, m)
		}),
	)
	defer store.Close()

	ctx := context.Background()

	c, err := store.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if c.Total != 1 {
		t.Errorf("Expected 1, got %d", c.Total)
	}
	if store.Mode() != ModeShared {
		t.Errorf("Expected shared mode, got %s", store.Mode())
	}

	mr.Close()

	c, err = store.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Expected fallback to absorb outage, got %v", err)
	}
	// Counters are not migrated, so the local window starts fresh.
	if c.Total != 1 {
		t.Errorf("Expected fresh local count 1, got %d", c.Total)
	}
	if store.Mode() != ModeDegraded {
		t.Errorf("Expected degraded mode, got %s", store.Mode())
	}

	if err := mr.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if _, err := store.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Increment after recovery failed: %v", err)
	}
	if store.Mode() != ModeShared {
		t.Errorf("Expected shared mode after recovery, got %s", store.Mode())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(modes) != 2 || modes[0] != ModeDegraded || modes[1] != ModeShared {
		t.Errorf("Expected [degraded shared] transitions, got %v", modes)
	}
}

func TestNewStore_MemoryWithoutURL(t *testing.T) {
	store := NewStore(context.Background(), Config{})
	defer store.Close()

	if ModeOf(store) != ModeMemory {
		t.Errorf("Expected memory mode, got %s", ModeOf(store))
	}
}

func TestNewStore_UnreachableRedisRecovers(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	var (
		mu    sync.Mutex
		modes []Mode
	)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	store := NewStore(ctx, Config{
		RedisURL: "redis://" + addr,
		Logger:   logger,
		OnModeChange: func(m Mode) {
			mu.Lock()
			defer mu.Unlock()
			modes = append(modes, m)
		},
	})
	defer store.Close()

	if ModeOf(store) != ModeDegraded {
		t.Fatalf("Expected degraded mode, got %s", ModeOf(store))
	}
	if n := strings.Count(logs.String(), `"level":"WARN"`); n != 1 {
		t.Errorf("Expected one startup warning, got %d:\n%s", n, logs.String())
	}

	c, err := store.Increment(context.Background(), "k", time.Minute)
	if err != nil {
		t.Fatalf("Expected degraded store to admit, got %v", err)
	}
	if c.Total != 1 {
		t.Errorf("Expected 1, got %d", c.Total)
	}

	revived := miniredis.NewMiniRedis()
	if err := revived.StartAddr(addr); err != nil {
		t.Fatalf("StartAddr(%s) failed: %v", addr, err)
	}
	defer revived.Close()

	deadline := time.Now().Add(3 * time.Second)
	for ModeOf(store) != ModeShared && time.Now().Before(deadline) {
		if _, err := store.Increment(context.Background(), "k", time.Minute); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if ModeOf(store) != ModeShared {
		t.Fatalf("Expected shared mode once redis is back, got %s", ModeOf(store))
	}
	if len(revived.Keys()) == 0 {
		t.Error("Expected counters in redis after recovery")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(modes) != 2 || modes[0] != ModeDegraded || modes[1] != ModeShared {
		t.Errorf("Expected [degraded shared] transitions, got %v", modes)
	}
}

func TestNewStore_InvalidURLStaysDegraded(t *testing.T) {
	store := NewStore(context.Background(), Config{RedisURL: "://bad"})
	defer store.Close()

	if ModeOf(store) != ModeDegraded {
		t.Fatalf("Expected degraded mode, got %s", ModeOf(store))
	}
	if _, err := store.Increment(context.Background(), "k", time.Minute); err != nil {
		t.Fatalf("Expected fallback to admit, got %v", err)
	}
	if ModeOf(store) != ModeDegraded {
		t.Errorf("Expected mode to stay degraded, got %s", ModeOf(store))
	}
}

func TestNewStore_SharedWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	store := NewStore(context.Background(), Config{RedisURL: "redis://" + mr.Addr()})
	defer store.Close()

	if ModeOf(store) != ModeShared {
		t.Errorf("Expected shared mode, got %s", ModeOf(store))
	}
}
