package routing

import (
	"sync"
	"sync/atomic"
	"time"
)

// AtomicRoutingStats implements thread-safe routing statistics using atomic operations.
type AtomicRoutingStats struct {
	totalRequests atomic.Int64

	// map[string]*atomic.Int64
	servedPerProvider  sync.Map
	skippedPerProvider sync.Map

	fallbackCount atomic.Int64
	errors        atomic.Int64

	// mu protects lastResetTime
	mu            sync.RWMutex
	lastResetTime time.Time
}

// NewAtomicRoutingStats creates a new atomic routing statistics tracker.
func NewAtomicRoutingStats() *AtomicRoutingStats {
	return &AtomicRoutingStats{
		lastResetTime: time.Now(),
	}
}

// IncrementTotal increments the total request counter.
func (s *AtomicRoutingStats) IncrementTotal() {
	s.totalRequests.Add(1)
}

// IncrementServed records that providerName served a request.
func (s *AtomicRoutingStats) IncrementServed(providerName string) {
	increment(&s.servedPerProvider, providerName)
}

// IncrementSkipped records that providerName failed or was skipped.
func (s *AtomicRoutingStats) IncrementSkipped(providerName string) {
	increment(&s.skippedPerProvider, providerName)
}

// IncrementFallback increments the fallback counter.
func (s *AtomicRoutingStats) IncrementFallback() {
	s.fallbackCount.Add(1)
}

// IncrementErrors increments the error counter.
func (s *AtomicRoutingStats) IncrementErrors() {
	s.errors.Add(1)
}

// Snapshot returns a point-in-time snapshot of the statistics.
func (s *AtomicRoutingStats) Snapshot() *RoutingStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &RoutingStats{
		TotalRequests:      s.totalRequests.Load(),
		ServedPerProvider:  collect(&s.servedPerProvider),
		SkippedPerProvider: collect(&s.skippedPerProvider),
		FallbackCount:      s.fallbackCount.Load(),
		Errors:             s.errors.Load(),
		LastResetTime:      s.lastResetTime,
	}
}

// Reset resets all statistics to zero.
func (s *AtomicRoutingStats) Reset() {
	s.totalRequests.Store(0)
	s.fallbackCount.Store(0)
	s.errors.Store(0)
	s.servedPerProvider.Clear()
	s.skippedPerProvider.Clear()

	s.mu.Lock()
	s.lastResetTime = time.Now()
	s.mu.Unlock()
}

func increment(m *sync.Map, key string) {
	val, _ := m.LoadOrStore(key, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

func collect(m *sync.Map) map[string]int64 {
	out := make(map[string]int64)
	m.Range(func(key, value any) bool {
		out[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return out
}
