// Package ratelimit provides per-class request admission over sliding windows.
//
// # Overview
//
// A Limiter pairs a Policy (name, window, limit) with a storage.Store.
// Each incoming request increments the counter for "<policy>:<client>"
// and is admitted while the window count stays at or below the limit.
//
// The built-in classes are:
//
//	auth     5 requests per 15 minutes
//	ai       10 requests per hour
//	general  100 requests per 15 minutes
//
// # Usage
//
//	store := storage.NewMemoryStore()
//	limiter, err := ratelimit.NewLimiter(store, ratelimit.DefaultPolicies()[0])
//
//	res, err := limiter.Allow(ctx, clientIP)
//	if err != nil {
//	    return err
//	}
//	if !res.Allowed {
//	    // reject with 429, Retry-After: res.RetryAfterSeconds()
//	}
//
// # Thread Safety
//
// Limiter holds no mutable state of its own. Concurrency guarantees come
// from the underlying store.
package ratelimit
