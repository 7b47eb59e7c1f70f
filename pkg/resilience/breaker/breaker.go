package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

// State represents the state of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// MarshalText renders the state as its name in JSON and logs.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrOpen is the sentinel matched by OpenError.
var ErrOpen = errors.New("circuit breaker open")

// ErrUnknownBreaker is returned when resetting a name that was never registered.
var ErrUnknownBreaker = errors.New("unknown circuit breaker")

// OpenError is returned by Call while the circuit is open.
type OpenError struct {
	Name     string
	OpenedAt time.Time
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.Name)
}

// Is enables errors.Is(err, ErrOpen).
func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}

// Config configures a circuit breaker.
type Config struct {
	// Name identifies the protected dependency in logs and metrics.
	Name string

	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a single
	// trial call is let through. Default: 60 seconds
	ResetTimeout time.Duration

	// Logger for state change notifications. Default: slog.Default()
	Logger *slog.Logger

	// OnStateChange is invoked after every state transition.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns the breaker defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
	}
}

// Stats is a point-in-time snapshot of a breaker.
type Stats struct {
	Name     string    `json:"name"`
	State    State     `json:"state"`
	Failures int       `json:"failures"`
	OpenedAt time.Time `json:"opened_at,omitzero"`
}

// CircuitBreaker guards calls to one dependency.
//
// Transitions follow the classic three-state machine: Closed opens after
// FailureThreshold consecutive failures, Open rejects calls without running
// them until ResetTimeout has elapsed, and HalfOpen admits exactly one
// trial call whose outcome closes or re-opens the circuit.
type CircuitBreaker struct {
	cb     circuitbreaker.CircuitBreaker[any]
	name   string
	logger *slog.Logger

	mu       sync.Mutex
	failures int
	openedAt time.Time
	onChange func(name string, from, to State)
}

// New creates a circuit breaker with the given configuration.
func New(cfg Config) *CircuitBreaker {
	if cfg.Name == "" {
		cfg.Name = "circuit-breaker"
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	b := &CircuitBreaker{
		name:     cfg.Name,
		logger:   cfg.Logger.With("component", "breaker", "breaker", cfg.Name),
		onChange: cfg.OnStateChange,
	}

	b.cb = circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(uint(cfg.FailureThreshold)).
		WithDelay(cfg.ResetTimeout).
		WithSuccessThreshold(1).
		HandleIf(func(_ any, err error) bool {
			var gone *callerGoneError
			return err != nil && !errors.As(err, &gone)
		}).
		OnStateChanged(b.stateChanged).
		Build()

	return b
}

// Call runs op through the breaker. When the circuit is open op is not
// invoked and an *OpenError is returned.
func (b *CircuitBreaker) Call(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Execute(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Execute is Call for operations that produce a value.
//
// An operation that ends because the caller's own context was canceled or
// hit its deadline says nothing about the dependency. It is not counted as a
// failure; like a success it ends the current failure streak.
func Execute[T any](ctx context.Context, b *CircuitBreaker, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		ran    bool
	)
	_, err := failsafe.With(b.cb).WithContext(ctx).Get(func() (any, error) {
		ran = true
		v, err := op(ctx)
		result = v
		if callerGone(ctx, err) {
			b.record(nil)
			return nil, &callerGoneError{err: err}
		}
		b.record(err)
		return nil, err
	})

	var gone *callerGoneError
	if errors.As(err, &gone) {
		return result, gone.err
	}
	if err != nil && !ran && errors.Is(err, circuitbreaker.ErrOpen) {
		var zero T
		return zero, &OpenError{Name: b.name, OpenedAt: b.Stats().OpenedAt}
	}
	return result, err
}

// callerGone reports whether err is the caller's context ending rather than
// a dependency failure. A deadline set inside op (per-attempt timeouts)
// leaves ctx alive and still counts.
func callerGone(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// callerGoneError carries a caller cancellation through the failsafe
// executor so the failure predicate can skip it.
type callerGoneError struct {
	err error
}

func (e *callerGoneError) Error() string { return e.err.Error() }

func (e *callerGoneError) Unwrap() error { return e.err }

// Stats returns a snapshot of the breaker.
func (b *CircuitBreaker) Stats() Stats {
	state := convertState(b.cb.State())

	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Name:     b.name,
		State:    state,
		Failures: b.failures,
		OpenedAt: b.openedAt,
	}
}

// State returns the current state.
func (b *CircuitBreaker) State() State {
	return convertState(b.cb.State())
}

// Name returns the breaker name.
func (b *CircuitBreaker) Name() string {
	return b.name
}

// Reset forces the breaker closed and clears its counters.
func (b *CircuitBreaker) Reset() {
	b.cb.Close()

	b.mu.Lock()
	b.failures = 0
	b.openedAt = time.Time{}
	b.mu.Unlock()

	b.logger.Info("circuit breaker reset")
}

func (b *CircuitBreaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
}

func (b *CircuitBreaker) stateChanged(event circuitbreaker.StateChangedEvent) {
	from := convertState(event.OldState)
	to := convertState(event.NewState)

	b.mu.Lock()
	switch to {
	case StateOpen:
		b.openedAt = time.Now()
	case StateClosed:
		b.openedAt = time.Time{}
		b.failures = 0
	}
	failures := b.failures
	b.mu.Unlock()

	level := slog.LevelInfo
	if to == StateOpen {
		level = slog.LevelWarn
	}
	b.logger.Log(context.Background(), level, "circuit breaker state change",
		"from_state", from.String(),
		"to_state", to.String(),
		"failures", failures,
	)

	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}

func convertState(state circuitbreaker.State) State {
	switch state {
	case circuitbreaker.ClosedState:
		return StateClosed
	case circuitbreaker.HalfOpenState:
		return StateHalfOpen
	case circuitbreaker.OpenState:
		return StateOpen
	default:
		return StateClosed
	}
}
