package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Policy is a named request budget over a sliding window.
type Policy struct {
	// Name identifies the request class (auth, ai, general). It also
	// namespaces counter keys, so policies never share counts.
	Name string `yaml:"name"`

	// Window is the length of the counting window.
	Window time.Duration `yaml:"window"`

	// Limit is the maximum number of requests admitted per window.
	Limit int64 `yaml:"limit"`
}

// Built-in request classes.
const (
	ClassAuth    = "auth"
	ClassAI      = "ai"
	ClassGeneral = "general"
)

// DefaultPolicies returns the built-in policy table.
func DefaultPolicies() []Policy {
	return []Policy{
		{Name: ClassAuth, Window: 15 * time.Minute, Limit: 5},
		{Name: ClassAI, Window: time.Hour, Limit: 10},
		{Name: ClassGeneral, Window: 15 * time.Minute, Limit: 100},
	}
}

// Validate checks the policy for usable values.
func (p Policy) Validate() error {
	if p.Name == "" {
		return errors.New("policy name cannot be empty")
	}
	if p.Window <= 0 {
		return fmt.Errorf("policy %q: window must be positive", p.Name)
	}
	if p.Limit <= 0 {
		return fmt.Errorf("policy %q: limit must be positive", p.Name)
	}
	return nil
}

// Result contains the outcome of a rate limit check.
type Result struct {
	// Policy is the name of the policy that was evaluated.
	Policy string

	// Allowed indicates if the request is permitted.
	Allowed bool

	// Limit is the configured limit value.
	Limit int64

	// Remaining is how many requests remain in the window, never negative.
	Remaining int64

	// ResetAt is when the window frees capacity again.
	ResetAt time.Time

	// RetryAfter suggests how long to wait before retrying.
	RetryAfter time.Duration
}

// ResetUnix returns ResetAt as Unix seconds.
func (r *Result) ResetUnix() int64 {
	return r.ResetAt.Unix()
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds.
func (r *Result) RetryAfterSeconds() int64 {
	if r.RetryAfter <= 0 {
		return 0
	}
	return int64(math.Ceil(r.RetryAfter.Seconds()))
}

// ErrLimitExceeded is the sentinel matched by ExceededError.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// ExceededError reports a denied request.
type ExceededError struct {
	Policy     string
	Limit      int64
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: limit %d, retry after %s",
		e.Policy, e.Limit, e.RetryAfter)
}

// Is enables errors.Is(err, ErrLimitExceeded).
func (e *ExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// Err returns an *ExceededError when the request was denied, nil otherwise.
func (r *Result) Err() error {
	if r.Allowed {
		return nil
	}
	return &ExceededError{Policy: r.Policy, Limit: r.Limit, RetryAfter: r.RetryAfter}
}
