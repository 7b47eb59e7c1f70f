package retry

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// Options configures the retry executor.
type Options struct {
	// MaxRetries is the number of retries after the first attempt.
	// Total attempts are MaxRetries+1. Zero disables retrying.
	MaxRetries int

	// BaseDelay is the delay before the first retry. Later retries
	// double it up to MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// Jitter adds up to 10% random variance to each delay.
	Jitter bool

	// AttemptTimeout bounds each attempt. Zero means no per-attempt limit.
	AttemptTimeout time.Duration

	// ShouldRetry classifies failed attempts. Default: DefaultShouldRetry.
	ShouldRetry Predicate
}

// DefaultOptions returns the executor defaults.
func DefaultOptions() Options {
	return Options{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		Jitter:         true,
		AttemptTimeout: 30 * time.Second,
		ShouldRetry:    DefaultShouldRetry,
	}
}

func normalize(opts Options) Options {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = opts.BaseDelay
	}
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = DefaultShouldRetry
	}
	return opts
}

// Do runs op until it succeeds, fails with a non-retryable error, or
// exhausts its retries.
//
// A non-retryable error is returned unchanged after its first occurrence.
// When every attempt failed with a retryable error, Do returns an
// *ExhaustedError carrying the last one. Cancelling ctx stops both the
// running attempt and any pending backoff.
func Do(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	_, err := Get(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts)
	return err
}

// Get is Do for operations that produce a value.
func Get[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	opts = normalize(opts)

	builder := retrypolicy.NewBuilder[T]().
		HandleIf(func(_ T, err error) bool {
			return err != nil && opts.ShouldRetry(err)
		}).
		WithMaxRetries(opts.MaxRetries).
		WithBackoff(opts.BaseDelay, opts.MaxDelay)
	if opts.Jitter {
		builder = builder.WithJitterFactor(0.1)
	}
	policy := builder.Build()

	var (
		attempts int
		lastErr  error
	)
	result, err := failsafe.With(policy).WithContext(ctx).Get(func() (T, error) {
		attempts++
		v, err := runAttempt(ctx, opts.AttemptTimeout, op)
		lastErr = err
		return v, err
	})
	if err == nil {
		return result, nil
	}

	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil {
		if lastErr != nil && !errors.Is(lastErr, ctxErr) {
			return zero, errors.Join(ctxErr, lastErr)
		}
		return zero, ctxErr
	}
	if lastErr == nil {
		return zero, err
	}
	if opts.ShouldRetry(lastErr) && attempts > opts.MaxRetries {
		return zero, &ExhaustedError{Attempts: attempts, Last: lastErr}
	}
	return zero, lastErr
}

// runAttempt calls op under an optional deadline. The executor stops
// waiting when the deadline passes even if op ignores its context.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := op(attemptCtx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return out.val, &AttemptTimeoutError{After: timeout, Cause: out.err}
		}
		return out.val, out.err
	case <-attemptCtx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, &AttemptTimeoutError{After: timeout}
	}
}
