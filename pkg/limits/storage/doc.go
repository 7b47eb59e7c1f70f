// Package storage provides the counter stores used by the rate limiter.
//
// # Overview
//
// Every rate limit policy counts hits per key inside a time window. The
// storage package defines that counter abstraction and provides three
// implementations:
//
//   - Memory: process-local counters with a periodic sweep of expired keys
//   - Redis: a sorted-set sliding window shared by every replica
//   - Fallback: Redis first, falling back to memory when Redis is unreachable
//
// # Usage
//
//	st, err := storage.NewStore(ctx, storage.Config{RedisURL: os.Getenv("REDIS_URL")})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	c, err := st.Increment(ctx, "auth:203.0.113.7", 15*time.Minute)
//
// # Degraded mode
//
// When a shared store is configured but cannot be reached, the fallback
// store keeps admitting requests using local counters and logs a warning.
// Mode reports which backend is currently answering so health endpoints
// can surface it.
package storage
