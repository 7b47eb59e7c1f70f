package routing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/bulwark/pkg/providers"
	"mercator-hq/bulwark/pkg/resilience/breaker"
	"mercator-hq/bulwark/pkg/resilience/retry"
	"mercator-hq/bulwark/pkg/telemetry/tracing"
)

// Observer receives one call per provider attempt. The telemetry metrics
// collector implements it.
type Observer interface {
	ObserveProviderAttempt(provider string, outcome string, duration time.Duration)
}

// Options configures an Orchestrator.
type Options struct {
	// Retry configures the per-provider retry executor. ShouldRetry is
	// wrapped with retry.SkipRateLimited so a throttled provider is left
	// immediately for the next one.
	Retry retry.Options

	// Logger receives failover messages. Default: slog.Default()
	Logger *slog.Logger

	// Observer receives per-attempt outcomes. Optional.
	Observer Observer

	// Tracer starts one span per provider attempt. Default: noop
	Tracer trace.Tracer
}

// Orchestrator sends completion requests through an ordered list of
// interchangeable providers. Each provider is called through its own
// circuit breaker, and inside the breaker through the retry executor:
//
//	breaker.Call(retry.Do(provider.SendCompletion))
//
// Any failure moves on to the next provider. Only when every provider has
// failed or been skipped does Complete return an *AllProvidersFailedError.
//
// Orchestrator is safe for concurrent use. The provider list is fixed at
// construction.
type Orchestrator struct {
	providers []providers.Provider
	breakers  *breaker.Registry
	retryOpts retry.Options
	stats     *AtomicRoutingStats
	observer  Observer
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator over list in failover order.
// Breakers are taken from the registry by provider name.
func NewOrchestrator(list []providers.Provider, breakers *breaker.Registry, opts Options) (*Orchestrator, error) {
	if len(list) == 0 {
		return nil, ErrNoProvidersConfigured
	}
	if breakers == nil {
		breakers = breaker.NewRegistry(breaker.DefaultConfig())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("")
	}

	retryOpts := opts.Retry
	next := retryOpts.ShouldRetry
	if next == nil {
		next = retry.DefaultShouldRetry
	}
	retryOpts.ShouldRetry = retry.SkipRateLimited(next)

	// Create breakers eagerly so they show up in stats before first use.
	for _, p := range list {
		breakers.Get(p.GetName())
	}

	return &Orchestrator{
		providers: list,
		breakers:  breakers,
		retryOpts: retryOpts,
		stats:     NewAtomicRoutingStats(),
		observer:  opts.Observer,
		tracer:    opts.Tracer,
		logger:    opts.Logger.With("component", "routing"),
	}, nil
}

// Complete sends req to the first provider that can serve it.
//
// Context cancellation stops the failover loop and is returned as is.
func (o *Orchestrator) Complete(ctx context.Context, req *providers.CompletionRequest) (*Result, error) {
	o.stats.IncrementTotal()

	attempts := make([]Attempt, 0, len(o.providers))
	for i, p := range o.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := p.GetName()
		attempt, resp, err := o.attempt(ctx, i, p, req)
		attempts = append(attempts, attempt)
		o.observe(attempt)

		if err == nil {
			o.stats.IncrementServed(name)
			if i > 0 {
				o.stats.IncrementFallback()
				o.logger.Info("request served by fallback provider",
					"provider", name,
					"skipped", len(attempts)-1,
				)
			}
			return &Result{
				Response:   resp,
				Provider:   name,
				Attempts:   attempts,
				IsFallback: i > 0,
			}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		o.stats.IncrementSkipped(name)
		level := slog.LevelWarn
		if attempt.Outcome == OutcomeCircuitOpen {
			level = slog.LevelDebug
		}
		o.logger.Log(ctx, level, "provider failed, trying next",
			"provider", name,
			"outcome", string(attempt.Outcome),
			"error", err,
		)
	}

	o.stats.IncrementErrors()
	o.logger.Error("all providers failed", "providers", len(attempts))
	return nil, &AllProvidersFailedError{Attempts: attempts, Model: req.Model}
}

// Providers returns the provider names in failover order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.GetName()
	}
	return names
}

// GetStats returns current routing statistics.
func (o *Orchestrator) GetStats() *RoutingStats {
	return o.stats.Snapshot()
}

// ResetStats resets routing statistics to zero.
func (o *Orchestrator) ResetStats() {
	o.stats.Reset()
}

// Breakers returns the breaker registry guarding the providers.
func (o *Orchestrator) Breakers() *breaker.Registry {
	return o.breakers
}

// attempt calls one provider through its breaker and retry loop
// inside a client span.
func (o *Orchestrator) attempt(ctx context.Context, index int, p providers.Provider, req *providers.CompletionRequest) (Attempt, *providers.CompletionResponse, error) {
	name := p.GetName()
	ctx, span := o.tracer.Start(ctx, "provider.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrProvider, name),
			attribute.Int(tracing.AttrProviderAttempt, index),
		),
	)
	if req != nil && req.Model != "" {
		span.SetAttributes(attribute.String(tracing.AttrModel, req.Model))
	}

	start := time.Now()
	resp, err := breaker.Execute(ctx, o.breakers.Get(name), func(ctx context.Context) (*providers.CompletionResponse, error) {
		return retry.Get(ctx, func(ctx context.Context) (*providers.CompletionResponse, error) {
			return p.SendCompletion(ctx, req)
		}, o.retryOpts)
	})
	a := Attempt{
		Provider: name,
		Outcome:  classify(err),
		Err:      err,
		Duration: time.Since(start),
	}

	span.SetAttributes(attribute.String(tracing.AttrOutcome, string(a.Outcome)))
	tracing.End(span, err)
	return a, resp, err
}

func (o *Orchestrator) observe(a Attempt) {
	if o.observer != nil {
		o.observer.ObserveProviderAttempt(a.Provider, string(a.Outcome), a.Duration)
	}
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeServed
	case errors.Is(err, breaker.ErrOpen):
		return OutcomeCircuitOpen
	case retry.IsRateLimited(err):
		return OutcomeRateLimited
	case errors.Is(err, retry.ErrExhausted):
		return OutcomeExhausted
	default:
		return OutcomeRejected
	}
}
