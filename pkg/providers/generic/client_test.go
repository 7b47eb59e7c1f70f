package generic

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"mercator-hq/bulwark/pkg/providers"
	"mercator-hq/bulwark/pkg/providers/providertest"
)

func TestNewProvider_RequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		config    providers.ProviderConfig
		wantField string
	}{
		{"missing name", providers.ProviderConfig{BaseURL: "http://x", Model: "m"}, "name"},
		{"missing base_url", providers.ProviderConfig{Name: "local", Model: "m"}, "base_url"},
		{"missing model", providers.ProviderConfig{Name: "local", BaseURL: "http://x"}, "model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.config)
			var cfgErr *providers.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestSendCompletion_WithoutAPIKey(t *testing.T) {
	server := providertest.NewMockServer()
	defer server.Close()
	server.SetResponse("/chat/completions", providertest.MockResponse{
		StatusCode: http.StatusOK,
		Body:       providertest.OpenAIResponse("local answer", "llama3"),
	})

	p, err := NewProvider(providers.ProviderConfig{
		Name:    "ollama",
		BaseURL: server.URL(),
		Model:   "llama3",
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer p.Close()

	if p.GetType() != providers.TypeGeneric {
		t.Errorf("GetType() = %q, want %q", p.GetType(), providers.TypeGeneric)
	}

	resp, err := p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("SendCompletion() error = %v", err)
	}
	if resp.Content != "local answer" {
		t.Errorf("Content = %q", resp.Content)
	}
}
