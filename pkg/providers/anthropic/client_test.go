package anthropic

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

func TestSendCompletion(t *testing.T) {
	server := providertest.NewMockServer()
	defer server.Close()
	server.SetResponse("/v1/messages", providertest.MockResponse{
		StatusCode: http.StatusOK,
		Body:       providertest.AnthropicResponse("Bonjour", "claude-test"),
	})

	p, err := NewProvider(providers.ProviderConfig{
		Name:    "anthropic",
		BaseURL: server.URL(),
		APIKey:  "secret",
		Model:   "claude-test",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer p.Close()

	resp, err := p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "Be brief."},
			{Role: providers.RoleUser, Content: "Hello"},
		},
	})
	if err != nil {
		t.Fatalf("SendCompletion() error = %v", err)
	}

	if resp.Content != "Bonjour" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("TotalTokens = %d", resp.Usage.TotalTokens)
	}

	req, body := server.LastRequest()
	if req.Header.Get("x-api-key") != "secret" {
		t.Errorf("x-api-key = %q", req.Header.Get("x-api-key"))
	}
	if req.Header.Get("anthropic-version") != DefaultAnthropicVersion {
		t.Errorf("anthropic-version = %q", req.Header.Get("anthropic-version"))
	}

	var sent AnthropicRequest
	if err := json.Unmarshal(body, &sent); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if sent.System != "Be brief." {
		t.Errorf("system = %q", sent.System)
	}
	if len(sent.Messages) != 1 || sent.Messages[0].Role != providers.RoleUser {
		t.Errorf("messages = %+v", sent.Messages)
	}
	if sent.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", sent.MaxTokens, defaultMaxTokens)
	}
}

func TestNewProvider_RequiresModel(t *testing.T) {
	_, err := NewProvider(providers.ProviderConfig{Name: "anthropic", APIKey: "k"})
	var cfgErr *providers.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "model" {
		t.Fatalf("expected model ConfigError, got %v", err)
	}
}

func TestTransformRequest_Validation(t *testing.T) {
	tests := []struct {
		name     string
		messages []providers.Message
		wantErr  bool
	}{
		{
			name:     "user first",
			messages: []providers.Message{{Role: "user", Content: "a"}},
		},
		{
			name: "alternating",
			messages: []providers.Message{
				{Role: "user", Content: "a"},
				{Role: "assistant", Content: "b"},
				{Role: "user", Content: "c"},
			},
		},
		{
			name:     "only system",
			messages: []providers.Message{{Role: "system", Content: "a"}},
			wantErr:  true,
		},
		{
			name:     "assistant first",
			messages: []providers.Message{{Role: "assistant", Content: "a"}},
			wantErr:  true,
		},
		{
			name: "consecutive users",
			messages: []providers.Message{
				{Role: "user", Content: "a"},
				{Role: "user", Content: "b"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transformRequest(&providers.CompletionRequest{Messages: tt.messages}, "m")
			if (err != nil) != tt.wantErr {
				t.Fatalf("transformRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var valErr *providers.ValidationError
				if !errors.As(err, &valErr) {
					t.Errorf("expected *ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestNormalizeStopReason(t *testing.T) {
	tests := map[string]string{
		"end_turn":      providers.FinishReasonStop,
		"stop_sequence": providers.FinishReasonStop,
		"max_tokens":    providers.FinishReasonLength,
		"refusal":       "refusal",
	}
	for in, want := range tests {
		if got := normalizeStopReason(in); got != want {
			t.Errorf("normalizeStopReason(%q) = %q, want %q", in, got, want)
		}
	}
}
