package ratelimit

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/bulwark/pkg/limits/storage"
)

// Limiter enforces a single Policy against a shared counter store.
//
// Every check records a hit, including checks that end up denied, and the
// decision is made from the post-increment count. Two limiters with
// different policy names never share a counter, even for the same client.
type Limiter struct {
	store  storage.Store
	policy Policy
	now    func() time.Time
}

// NewLimiter creates a limiter for policy backed by store.
func NewLimiter(store storage.Store, policy Policy) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{
		store:  store,
		policy: policy,
		now:    time.Now,
	}, nil
}

// Allow records a request from client and reports whether it is admitted.
//
// Store errors are returned as-is. A FallbackStore never fails because the
// shared store is down, so in practice an error means a bad key or a
// cancelled context.
func (l *Limiter) Allow(ctx context.Context, client string) (*Result, error) {
	c, err := l.store.Increment(ctx, l.Key(client), l.policy.Window)
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", l.policy.Name, err)
	}

	return l.result(c), nil
}

// Peek reports the current state for client without recording a hit.
func (l *Limiter) Peek(ctx context.Context, client string) (*Result, error) {
	c, err := l.store.Get(ctx, l.Key(client))
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", l.policy.Name, err)
	}
	if c.ResetAt.IsZero() {
		c.ResetAt = l.now().Add(l.policy.Window)
	}
	r := l.result(c)
	r.Allowed = c.Total < l.policy.Limit
	return r, nil
}

// Reset clears the counter for client.
func (l *Limiter) Reset(ctx context.Context, client string) error {
	return l.store.Reset(ctx, l.Key(client))
}

// Policy returns the enforced policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Key returns the counter key for client.
func (l *Limiter) Key(client string) string {
	return l.policy.Name + ":" + client
}

func (l *Limiter) result(c storage.Counter) *Result {
	remaining := l.policy.Limit - c.Total
	if remaining < 0 {
		remaining = 0
	}

	allowed := c.Total <= l.policy.Limit
	r := &Result{
		Policy:    l.policy.Name,
		Allowed:   allowed,
		Limit:     l.policy.Limit,
		Remaining: remaining,
		ResetAt:   c.ResetAt,
	}
	if !allowed {
		r.RetryAfter = c.ResetAt.Sub(l.now())
		if r.RetryAfter < time.Second {
			r.RetryAfter = time.Second
		}
	}
	return r
}
