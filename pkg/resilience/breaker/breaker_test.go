package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing(ctx context.Context) error { return errBoom }
func passing(ctx context.Context) error { return nil }

func trip(t *testing.T, b *CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := b.Call(context.Background(), failing); !errors.Is(err, errBoom) {
			t.Fatalf("Expected errBoom on call %d, got %v", i+1, err)
		}
	}
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	b := New(Config{Name: "svc"})

	stats := b.Stats()
	if stats.State != StateClosed {
		t.Errorf("Expected closed, got %s", stats.State)
	}
	if stats.Failures != 0 || !stats.OpenedAt.IsZero() {
		t.Errorf("Expected clean stats, got %+v", stats)
	}
	if stats.Name != "svc" {
		t.Errorf("Expected name svc, got %q", stats.Name)
	}
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	b := New(Config{Name: "svc", FailureThreshold: 3, ResetTimeout: time.Minute})

	trip(t, b, 2)
	if b.State() != StateClosed {
		t.Fatalf("Expected closed below threshold, got %s", b.State())
	}
	if b.Stats().Failures != 2 {
		t.Errorf("Expected 2 failures, got %d", b.Stats().Failures)
	}

	trip(t, b, 1)
	stats := b.Stats()
	if stats.State != StateOpen {
		t.Fatalf("Expected open at threshold, got %s", stats.State)
	}
	if stats.OpenedAt.IsZero() {
		t.Error("Expected openedAt to be recorded")
	}
}

func TestCircuitBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	b := New(Config{Name: "svc", FailureThreshold: 3, ResetTimeout: time.Minute})

	trip(t, b, 2)
	if err := b.Call(context.Background(), passing); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if b.Stats().Failures != 0 {
		t.Errorf("Expected failures reset, got %d", b.Stats().Failures)
	}

	trip(t, b, 2)
	if b.State() != StateClosed {
		t.Errorf("Expected closed after non-consecutive failures, got %s", b.State())
	}
}

func TestCircuitBreaker_OpenRejectsWithoutInvoking(t *testing.T) {
	b := New(Config{Name: "svc", FailureThreshold: 1, ResetTimeout: time.Minute})
	trip(t, b, 1)

	var invoked atomic.Bool
	err := b.Call(context.Background(), func(ctx context.Context) error {
		invoked.Store(true)
		return nil
	})

	if invoked.Load() {
		t.Error("Operation must not run while open")
	}
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("Expected ErrOpen, got %v", err)
	}
	var openErr *OpenError
	if !errors.As(err, &openErr) || openErr.Name != "svc" {
		t.Errorf("Expected OpenError naming svc, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b := New(Config{Name: "svc", FailureThreshold: 2, ResetTimeout: 30 * time.Millisecond})
	trip(t, b, 2)

	time.Sleep(50 * time.Millisecond)

	if err := b.Call(context.Background(), passing); err != nil {
		t.Fatalf("Expected trial call to succeed, got %v", err)
	}
	stats := b.Stats()
	if stats.State != StateClosed {
		t.Errorf("Expected closed after trial success, got %s", stats.State)
	}
	if stats.Failures != 0 || !stats.OpenedAt.IsZero() {
		t.Errorf("Expected stats cleared, got %+v", stats)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := New(Config{Name: "svc", FailureThreshold: 2, ResetTimeout: 30 * time.Millisecond})
	trip(t, b, 2)
	firstOpen := b.Stats().OpenedAt

	time.Sleep(50 * time.Millisecond)

	if err := b.Call(context.Background(), failing); !errors.Is(err, errBoom) {
		t.Fatalf("Expected trial call to run and fail, got %v", err)
	}
	stats := b.Stats()
	if stats.State != StateOpen {
		t.Fatalf("Expected re-opened, got %s", stats.State)
	}
	if !stats.OpenedAt.After(firstOpen) {
		t.Error("Expected openedAt to be refreshed")
	}
}

func TestCircuitBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	b := New(Config{Name: "svc", FailureThreshold: 1, ResetTimeout: 20 * time.Millisecond})
	trip(t, b, 1)
	time.Sleep(40 * time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{})
	var trialErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		trialErr = b.Call(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	err := b.Call(context.Background(), passing)
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Expected concurrent call to be rejected during trial, got %v", err)
	}

	close(release)
	wg.Wait()
	if trialErr != nil {
		t.Errorf("Expected trial to succeed, got %v", trialErr)
	}
	if b.State() != StateClosed {
		t.Errorf("Expected closed after trial, got %s", b.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	b := New(Config{Name: "svc", FailureThreshold: 1, ResetTimeout: time.Hour})
	trip(t, b, 1)

	b.Reset()

	stats := b.Stats()
	if stats.State != StateClosed || stats.Failures != 0 || !stats.OpenedAt.IsZero() {
		t.Errorf("Expected clean closed breaker, got %+v", stats)
	}
	if err := b.Call(context.Background(), passing); err != nil {
		t.Errorf("Expected call after reset to run, got %v", err)
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []string
	)
	b := New(Config{
		Name:             "svc",
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	trip(t, b, 1)
	b.Reset()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"svc:closed->open", "svc:open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("Expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("Transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestExecute_ReturnsValue(t *testing.T) {
	b := New(Config{Name: "svc"})
	v, err := Execute(context.Background(), b, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Errorf("Expected 42, got %d (%v)", v, err)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(Config{FailureThreshold: 1, ResetTimeout: time.Hour})

	a := reg.Get("alpha")
	if reg.Get("alpha") != a {
		t.Error("Expected Get to return the same breaker")
	}
	reg.Get("beta")

	trip(t, a, 1)

	stats := reg.Stats()
	if len(stats) != 2 {
		t.Fatalf("Expected 2 breakers, got %d", len(stats))
	}
	if stats[0].Name != "alpha" || stats[0].State != StateOpen {
		t.Errorf("Expected alpha open first, got %+v", stats[0])
	}
	if stats[1].Name != "beta" || stats[1].State != StateClosed {
		t.Errorf("Expected beta closed, got %+v", stats[1])
	}

	if err := reg.Reset("alpha"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if a.State() != StateClosed {
		t.Error("Expected alpha closed after reset")
	}

	if err := reg.Reset("missing"); !errors.Is(err, ErrUnknownBreaker) {
		t.Errorf("Expected ErrUnknownBreaker, got %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateHalfOpen, "half-open"},
		{StateOpen, "open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("Expected %s, got %s", tt.want, got)
		}
	}
}

func TestCircuitBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	b := New(Config{Name: "primary", FailureThreshold: 3, ResetTimeout: time.Minute})

	slow := func(ctx context.Context) error {
		select {
		case <-time.After(50 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		err := b.Call(ctx, slow)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("call %d: expected caller deadline, got %v", i, err)
		}
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Call(canceled, slow); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	stats := b.Stats()
	if stats.State != StateClosed || stats.Failures != 0 {
		t.Errorf("Expected closed with 0 failures, got %+v", stats)
	}
	if err := b.Call(context.Background(), slow); err != nil {
		t.Errorf("patient caller rejected: %v", err)
	}
}

func TestCircuitBreaker_DependencyDeadlineCounts(t *testing.T) {
	b := New(Config{Name: "primary", FailureThreshold: 2, ResetTimeout: time.Minute})

	// The operation's own deadline expired while the caller is still waiting.
	timedOut := func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, time.Millisecond)
		defer cancel()
		<-attemptCtx.Done()
		return attemptCtx.Err()
	}

	for i := 0; i < 2; i++ {
		if err := b.Call(context.Background(), timedOut); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("call %d: expected deadline error, got %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Errorf("Expected open after dependency timeouts, got %s", b.State())
	}
}
