package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/bulwark/pkg/telemetry/tracing"
)

// Observer receives the outcome of every reservation. The limits metrics
// implement it.
type Observer interface {
	RecordReservation(tier string, action string, allowed bool, wasReset bool)
}

// Ledger meters per-user token consumption against tier allowances.
//
// All state lives in the AccountStore; the ledger adds cost lookup,
// logging and observation. It is safe for concurrent use.
type Ledger struct {
	store    AccountStore
	now      func() time.Time
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock overrides the clock used for rollover decisions.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLogger sets the ledger's logger.
func WithLogger(logger *slog.Logger) LedgerOption {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithObserver registers a reservation observer.
func WithObserver(o Observer) LedgerOption {
	return func(l *Ledger) {
		l.observer = o
	}
}

// WithTracer records a span around every reservation.
func WithTracer(t trace.Tracer) LedgerOption {
	return func(l *Ledger) {
		l.tracer = t
	}
}

// NewLedger creates a ledger over store.
func NewLedger(store AccountStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.tracer == nil {
		l.tracer = noop.NewTracerProvider().Tracer("quota")
	}
	l.logger = l.logger.With("component", "quota")
	return l
}

// Reserve charges cost tokens to userID.
//
// A denied reservation is not an error: the Decision carries Allowed=false
// and the current balance. Use Decision.Err to turn it into an
// *ExceededError.
func (l *Ledger) Reserve(ctx context.Context, userID string, cost int64) (Decision, error) {
	return l.reserve(ctx, userID, cost, "")
}

// ReserveAction charges the cost of action to userID.
func (l *Ledger) ReserveAction(ctx context.Context, userID string, action Action) (Decision, error) {
	cost, err := action.Cost()
	if err != nil {
		return Decision{}, err
	}
	return l.reserve(ctx, userID, cost, string(action))
}

// Account returns the stored account for userID.
func (l *Ledger) Account(ctx context.Context, userID string) (*Account, error) {
	return l.store.GetAccount(ctx, userID)
}

// Store returns the underlying account store.
func (l *Ledger) Store() AccountStore {
	return l.store
}

func (l *Ledger) reserve(ctx context.Context, userID string, cost int64, action string) (decision Decision, err error) {
	ctx, span := l.tracer.Start(ctx, "quota.reserve",
		trace.WithAttributes(
			attribute.String(tracing.AttrUser, userID),
			attribute.Int64(tracing.AttrQuotaCost, cost),
		),
	)
	if action != "" {
		span.SetAttributes(attribute.String(tracing.AttrQuotaAction, action))
	}
	defer func() {
		if err == nil {
			span.SetAttributes(
				attribute.Bool(tracing.AttrAllowed, decision.Allowed),
				attribute.Bool(tracing.AttrQuotaWasReset, decision.WasReset),
				attribute.String(tracing.AttrQuotaTier, string(decision.Tier)),
				attribute.Int64(tracing.AttrQuotaUsed, decision.TokensUsed),
			)
		}
		tracing.End(span, err)
	}()

	decision, err = l.store.Reserve(ctx, userID, cost, l.now())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			l.logger.Error("quota account missing for authenticated user",
				"user", userID,
				"action", action,
			)
		}
		return Decision{}, err
	}

	if decision.WasReset {
		l.logger.Info("quota period rolled over",
			"user", userID,
			"tier", string(decision.Tier),
			"period_reset_at", decision.PeriodResetAt,
		)
	}
	if !decision.Allowed {
		l.logger.Info("quota exceeded",
			"user", userID,
			"action", action,
			"cost", cost,
			"tokens_used", decision.TokensUsed,
			"token_limit", decision.TokenLimit,
		)
	}

	if l.observer != nil {
		l.observer.RecordReservation(string(decision.Tier), action, decision.Allowed, decision.WasReset)
	}

	return decision, nil
}
