// Package providertest provides test doubles for the providers package: a
// scripted in-process Provider and an httptest-backed upstream.
package providertest

import (
	"context"
	"sync"
	"time"

	"mercator-hq/bulwark/pkg/providers"
)

// Step is one scripted outcome of a SendCompletion call.
type Step struct {
	// Err is returned when non-nil.
	Err error

	// Content is the response content on success.
	Content string

	// Hang blocks until the call's context is done.
	Hang bool

	// Delay is slept before answering, honoring the context.
	Delay time.Duration
}

// FakeProvider is a Provider whose calls follow a script. When the script
// runs out the last step repeats; an empty script always succeeds.
type FakeProvider struct {
	name  string
	mu    sync.Mutex
	steps []Step
	calls int
}

// NewFakeProvider creates a fake provider with the given script.
func NewFakeProvider(name string, steps ...Step) *FakeProvider {
	return &FakeProvider{name: name, steps: steps}
}

// Failing returns a fake provider that always fails with err.
func Failing(name string, err error) *FakeProvider {
	return NewFakeProvider(name, Step{Err: err})
}

// SendCompletion plays the next scripted step.
func (f *FakeProvider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	f.mu.Lock()
	step := Step{Content: "response from " + f.name}
	if len(f.steps) > 0 {
		i := f.calls
		if i >= len(f.steps) {
			i = len(f.steps) - 1
		}
		step = f.steps[i]
	}
	f.calls++
	f.mu.Unlock()

	if step.Hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if step.Err != nil {
		return nil, step.Err
	}

	content := step.Content
	if content == "" {
		content = "response from " + f.name
	}
	model := ""
	if req != nil {
		model = req.Model
	}
	return &providers.CompletionResponse{
		ID:           f.name + "-resp",
		Model:        model,
		Content:      content,
		FinishReason: providers.FinishReasonStop,
		Created:      time.Now().Unix(),
	}, nil
}

// Calls returns how many times SendCompletion was invoked.
func (f *FakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// GetName returns the provider name.
func (f *FakeProvider) GetName() string {
	return f.name
}

// GetType returns "fake".
func (f *FakeProvider) GetType() string {
	return "fake"
}

// Close is a no-op.
func (f *FakeProvider) Close() error {
	return nil
}
