package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"mercator-hq/bulwark/pkg/providers"
	"mercator-hq/bulwark/pkg/providers/providertest"
)

func newTestProvider(t *testing.T, server *providertest.MockServer) *Provider {
	t.Helper()
	p, err := NewProvider(providers.ProviderConfig{
		Name:    "openai",
		BaseURL: server.URL(),
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestNewProvider_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  providers.ProviderConfig
		wantErr bool
	}{
		{"valid", providers.ProviderConfig{Name: "openai", APIKey: "k"}, false},
		{"missing name", providers.ProviderConfig{APIKey: "k"}, true},
		{"missing key", providers.ProviderConfig{Name: "openai"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var cfgErr *providers.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("expected *ConfigError, got %T", err)
				}
				return
			}
			if p.GetConfig().BaseURL != DefaultBaseURL {
				t.Errorf("BaseURL = %q, want default", p.GetConfig().BaseURL)
			}
			if p.GetType() != providers.TypeOpenAI {
				t.Errorf("GetType() = %q", p.GetType())
			}
		})
	}
}

func TestSendCompletion_Success(t *testing.T) {
	server := providertest.NewMockServer()
	defer server.Close()
	server.SetResponse("/chat/completions", providertest.MockResponse{
		StatusCode: http.StatusOK,
		Body:       providertest.OpenAIResponse("Hello there", "gpt-4o-mini"),
	})

	p := newTestProvider(t, server)
	resp, err := p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("SendCompletion() error = %v", err)
	}

	if resp.Content != "Hello there" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("TotalTokens = %d, want 30", resp.Usage.TotalTokens)
	}
	if resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}

	req, body := server.LastRequest()
	if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("Authorization = %q", got)
	}
	var sent chatRequest
	if err := json.Unmarshal(body, &sent); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if sent.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want default from config", sent.Model)
	}
}

func TestSendCompletion_Errors(t *testing.T) {
	tests := []struct {
		name     string
		response providertest.MockResponse
		check    func(error) bool
	}{
		{
			name:     "auth",
			response: providertest.ErrorResponse(http.StatusUnauthorized, "bad key"),
			check: func(err error) bool {
				var e *providers.AuthError
				return errors.As(err, &e)
			},
		},
		{
			name:     "rate limit",
			response: providertest.RateLimitResponse(3),
			check: func(err error) bool {
				var e *providers.RateLimitError
				return errors.As(err, &e) && e.RetryAfter == 3*time.Second
			},
		},
		{
			name:     "server error",
			response: providertest.ErrorResponse(http.StatusInternalServerError, "boom"),
			check: func(err error) bool {
				var e *providers.ProviderError
				return errors.As(err, &e) && e.StatusCode == http.StatusInternalServerError
			},
		},
		{
			name:     "no choices",
			response: providertest.MockResponse{StatusCode: http.StatusOK, Body: map[string]any{"id": "x", "choices": []any{}}},
			check: func(err error) bool {
				var e *providers.ParseError
				return errors.As(err, &e)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := providertest.NewMockServer()
			defer server.Close()
			server.SetResponse("/chat/completions", tt.response)

			p := newTestProvider(t, server)
			_, err := p.SendCompletion(context.Background(), &providers.CompletionRequest{
				Messages: []providers.Message{{Role: providers.RoleUser, Content: "Hi"}},
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error %T: %v", err, err)
			}
			if server.RequestCount() != 1 {
				t.Errorf("requests = %d, want exactly 1 (no internal retries)", server.RequestCount())
			}
		})
	}
}

func TestSendCompletion_RejectsEmptyMessages(t *testing.T) {
	server := providertest.NewMockServer()
	defer server.Close()

	p := newTestProvider(t, server)
	_, err := p.SendCompletion(context.Background(), &providers.CompletionRequest{})

	var valErr *providers.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if server.RequestCount() != 0 {
		t.Errorf("requests = %d, want 0", server.RequestCount())
	}
}

func TestFromChatResponse(t *testing.T) {
	tests := []struct {
		name       string
		resp       chatResponse
		wantErr    error
		wantTotal  int
		wantFinish string
	}{
		{
			name:    "no choices",
			resp:    chatResponse{ID: "x"},
			wantErr: errNoChoices,
		},
		{
			name: "total derived",
			resp: chatResponse{
				Choices: []chatChoice{{Message: chatMessage{Content: "a"}, FinishReason: "length"}},
				Usage:   &chatUsage{PromptTokens: 4, CompletionTokens: 6},
			},
			wantTotal:  10,
			wantFinish: providers.FinishReasonLength,
		},
		{
			name: "usage missing",
			resp: chatResponse{
				Choices: []chatChoice{{Message: chatMessage{Content: "a"}, FinishReason: "tool_calls"}},
			},
			wantFinish: providers.FinishReasonStop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fromChatResponse(&tt.resp)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.Usage.TotalTokens != tt.wantTotal {
				t.Errorf("TotalTokens = %d, want %d", got.Usage.TotalTokens, tt.wantTotal)
			}
			if got.FinishReason != tt.wantFinish {
				t.Errorf("FinishReason = %q, want %q", got.FinishReason, tt.wantFinish)
			}
		})
	}
}
