package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bulwark.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if cfg.Quota.Backend != "sqlite" || cfg.Quota.SQLite.Path != DefaultQuotaSQLitePath {
		t.Errorf("quota = %+v", cfg.Quota)
	}
	if cfg.Resilience.FailureThreshold != 5 || cfg.Resilience.ResetTimeout != time.Minute {
		t.Errorf("resilience = %+v", cfg.Resilience)
	}
	if cfg.Resilience.MaxRetries != 3 || cfg.Resilience.BaseDelay != time.Second || cfg.Resilience.MaxDelay != 30*time.Second {
		t.Errorf("retry defaults = %+v", cfg.Resilience)
	}
	if cfg.Secrets.EnvPrefix != "BULWARK_SECRET_" || cfg.Secrets.CacheTTL != 5*time.Minute || cfg.Secrets.Dir != "" {
		t.Errorf("secrets = %+v", cfg.Secrets)
	}
	if !cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("metrics should be enabled by default")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{Providers: []ProviderConfig{{Name: "openai"}}}
	ApplyDefaults(cfg)
	first := *cfg
	ApplyDefaults(cfg)

	if !reflect.DeepEqual(cfg.Server, first.Server) || cfg.Resilience != first.Resilience {
		t.Error("ApplyDefaults is not idempotent")
	}
	if cfg.Providers[0].Timeout != DefaultProviderTimeout {
		t.Errorf("provider timeout = %v, want %v", cfg.Providers[0].Timeout, DefaultProviderTimeout)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: "10s"
limits:
  redis_url: "redis://localhost:6379/0"
quota:
  backend: memory
resilience:
  failure_threshold: 2
  max_retries: -1
providers:
  - name: openai
    base_url: "https://api.openai.com/v1"
    api_key: "sk-test"
    model: "gpt-4o-mini"
  - name: local
    type: generic
    base_url: "http://localhost:11434/v1"
telemetry:
  logging:
    level: debug
    format: text
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" || cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("WriteTimeout default not applied: %v", cfg.Server.WriteTimeout)
	}
	if cfg.Limits.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.Limits.RedisURL)
	}
	if cfg.Resilience.FailureThreshold != 2 || cfg.Resilience.MaxRetries != -1 {
		t.Errorf("resilience = %+v", cfg.Resilience)
	}
	if len(cfg.Providers) != 2 || cfg.Providers[0].Name != "openai" || cfg.Providers[1].Type != "generic" {
		t.Errorf("providers = %+v", cfg.Providers)
	}
	if cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("metrics.enabled: false was ignored")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"invalid yaml", "server: [unclosed", "failed to parse"},
		{"invalid backend", "quota:\n  backend: postgres\n", "quota.backend"},
		{"invalid cron", "quota:\n  retention:\n    prune_schedule: \"every day\"\n", "quota.retention.prune_schedule"},
		{"duplicate provider", "providers:\n  - name: a\n  - name: a\n", "duplicate provider"},
		{"bad redis url", "limits:\n  redis_url: \"http://localhost\"\n", "limits.redis_url"},
		{"api key without user", "server:\n  api_keys:\n    - key: k1\n", "server.api_keys[0].user_id"},
		{"duplicate api key", "server:\n  api_keys:\n    - key: k1\n      user_id: a\n    - key: k1\n      user_id: b\n", "server.api_keys[1].key"},
		{"tracing without endpoint", "telemetry:\n  tracing:\n    enabled: true\n", "telemetry.tracing.endpoint"},
		{"unknown sampler", "telemetry:\n  tracing:\n    sampler: sometimes\n", "telemetry.tracing.sampler"},
		{"sample ratio out of range", "telemetry:\n  tracing:\n    sample_ratio: 1.5\n", "telemetry.tracing.sample_ratio"},
		{"unsupported exporter", "telemetry:\n  tracing:\n    exporter: zipkin\n", "telemetry.tracing.exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantMsg)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: open-ai
    base_url: "https://api.openai.com/v1"
`)

	t.Setenv("BULWARK_SERVER_LISTEN_ADDRESS", "0.0.0.0:7000")
	t.Setenv("BULWARK_LIMITS_REDIS_URL", "redis://cache:6379")
	t.Setenv("BULWARK_RESILIENCE_RESET_TIMEOUT", "5s")
	t.Setenv("BULWARK_RESILIENCE_DISABLE_JITTER", "true")
	t.Setenv("BULWARK_SERVER_TRUSTED_USER_HEADER", "true")
	t.Setenv("BULWARK_PROVIDERS_OPEN_AI_API_KEY", "sk-from-env")
	t.Setenv("BULWARK_TELEMETRY_METRICS_ENABLED", "false")
	t.Setenv("BULWARK_QUOTA_RETENTION_DAYS", "not-a-number")
	t.Setenv("BULWARK_TELEMETRY_TRACING_ENABLED", "true")
	t.Setenv("BULWARK_TELEMETRY_TRACING_ENDPOINT", "otel-collector:4317")
	t.Setenv("BULWARK_TELEMETRY_TRACING_SAMPLE_RATIO", "0.2")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7000" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if !cfg.Server.TrustedUserHeader {
		t.Error("TrustedUserHeader override ignored")
	}
	if cfg.Limits.RedisURL != "redis://cache:6379" {
		t.Errorf("RedisURL = %q", cfg.Limits.RedisURL)
	}
	if cfg.Resilience.ResetTimeout != 5*time.Second || !cfg.Resilience.DisableJitter {
		t.Errorf("resilience = %+v", cfg.Resilience)
	}
	if cfg.Providers[0].APIKey != "sk-from-env" {
		t.Errorf("provider APIKey = %q", cfg.Providers[0].APIKey)
	}
	if cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("metrics should be disabled by env")
	}
	if cfg.Quota.Retention.Days != DefaultRetentionDays {
		t.Errorf("unparsable override changed RetentionDays to %d", cfg.Quota.Retention.Days)
	}
	tr := cfg.Telemetry.Tracing
	if !tr.Enabled || tr.Endpoint != "otel-collector:4317" || tr.SampleRatio != 0.2 {
		t.Errorf("tracing = %+v", tr)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("BULWARK_QUOTA_BACKEND", "memory")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides(\"\") error = %v", err)
	}
	if cfg.Quota.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Quota.Backend)
	}

	t.Setenv("BULWARK_TELEMETRY_LOGGING_LEVEL", "chatty")
	if _, err := LoadConfigWithEnvOverrides(""); err == nil {
		t.Error("expected validation error after invalid override")
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := NewDefault()
	cfg.Server.ListenAddress = "no-port"
	cfg.Resilience.FailureThreshold = -1
	cfg.Resilience.MaxDelay = time.Millisecond
	cfg.Providers = []ProviderConfig{{Name: "", Type: "bedrock", BaseURL: "::bad"}}
	cfg.Secrets.Watch = true

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	fields := make(map[string]bool)
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	for _, want := range []string{
		"server.listen_address",
		"resilience.failure_threshold",
		"resilience.max_delay",
		"providers[0].name",
		"providers[0].type",
		"providers[0].base_url",
		"secrets.watch",
	} {
		if !fields[want] {
			t.Errorf("missing error for %s; got %v", want, verr.Errors)
		}
	}
	if !strings.Contains(verr.Error(), "errors:") {
		t.Errorf("multi-error message = %q", verr.Error())
	}
}
