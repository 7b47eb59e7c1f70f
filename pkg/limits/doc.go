// Package limits is the admission layer: per-client sliding-window rate
// limits and per-user token quotas.
//
// # Architecture
//
// The package is organized into sub-packages:
//
//   - storage: shared counter store (Redis with in-memory fallback)
//   - ratelimit: sliding-window limiter, one per request class
//   - quota: token ledger with atomic reservation and monthly rollover
//
// Manager ties them together and Metrics exports their behaviour to
// Prometheus.
//
// # Usage
//
//	store := storage.NewStore(ctx, storage.Config{
//	    RedisURL:     cfg.Limits.RedisURL,
//	    OnModeChange: metrics.SetStoreMode,
//	})
//	ledger := quota.NewLedger(accounts, quota.WithObserver(metrics))
//	manager, err := limits.NewManager(store, ledger)
//
// # Thread Safety
//
// All types are safe for concurrent use. Every mutation of shared state is
// a single atomic operation in the backing store.
package limits
