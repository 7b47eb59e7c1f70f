package config

import "time"

// Config is the root configuration structure for Bulwark.
// It contains all configuration sections for the HTTP server, admission
// limits, the quota ledger, upstream resilience, providers and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Limits contains configuration for the shared counter store used by
	// the rate limiter.
	Limits LimitsConfig `yaml:"limits"`

	// Quota contains configuration for the token quota ledger and its
	// account store.
	Quota QuotaConfig `yaml:"quota"`

	// Resilience contains retry and circuit breaker settings applied to
	// every upstream provider call.
	Resilience ResilienceConfig `yaml:"resilience"`

	// Providers is the ordered failover list. The first entry is the
	// primary provider.
	Providers []ProviderConfig `yaml:"providers"`

	// Secrets configures resolution of ${secret:name} references in
	// provider API keys, the Redis URL and the admin token.
	Secrets SecretsConfig `yaml:"secrets"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must cover the slowest failover sequence.
	// Default: 120s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// AdminToken protects the /admin endpoints with a bearer token.
	// Empty disables the admin endpoints.
	AdminToken string `yaml:"admin_token"`

	// APIKeys authenticate callers of the metered /v1 routes. Each key is
	// bound to the user whose quota it charges. Keys may be
	// ${secret:name} references.
	APIKeys []APIKeyConfig `yaml:"api_keys"`

	// TrustedUserHeader accepts the X-User-ID header as the caller's
	// identity when a request carries no API key. Enable only behind a
	// gateway that authenticates users and strips the header from client
	// traffic.
	// Default: false
	TrustedUserHeader bool `yaml:"trusted_user_header"`
}

// APIKeyConfig binds an API key to a quota account.
type APIKeyConfig struct {
	Key      string `yaml:"key"`
	UserID   string `yaml:"user_id"`
	Disabled bool   `yaml:"disabled"`
}

// LimitsConfig contains configuration for the rate limit counter store.
type LimitsConfig struct {
	// RedisURL is the shared counter store. Empty means every process keeps
	// its own in-memory counters.
	// Example: "redis://localhost:6379/0"
	RedisURL string `yaml:"redis_url"`

	// SweepInterval is how often expired in-memory windows are dropped.
	// Default: 1m
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// QuotaConfig contains configuration for the token quota ledger.
type QuotaConfig struct {
	// Backend selects the account store.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite account store.
	SQLite QuotaSQLiteConfig `yaml:"sqlite"`

	// Retention configures pruning of the reservation history.
	Retention RetentionConfig `yaml:"retention"`
}

// QuotaSQLiteConfig contains SQLite account store settings.
type QuotaSQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/quota.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long a writer waits for the database lock.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// RetentionConfig contains reservation history retention settings.
type RetentionConfig struct {
	// Days is how long reservation history is kept. 0 keeps it forever.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for the pruning job.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// ResilienceConfig contains retry and circuit breaker settings.
type ResilienceConfig struct {
	// FailureThreshold is the number of consecutive failed calls that opens
	// a provider's circuit.
	// Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// ResetTimeout is how long an open circuit waits before a trial call.
	// Default: 60s
	ResetTimeout time.Duration `yaml:"reset_timeout"`

	// MaxRetries is the number of retries after the first attempt.
	// A negative value disables retrying.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// BaseDelay is the first backoff delay.
	// Default: 1s
	BaseDelay time.Duration `yaml:"base_delay"`

	// MaxDelay caps the backoff delay.
	// Default: 30s
	MaxDelay time.Duration `yaml:"max_delay"`

	// AttemptTimeout bounds each provider attempt.
	// Default: 30s
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// DisableJitter turns off the random variance added to delays.
	// Default: false
	DisableJitter bool `yaml:"disable_jitter"`
}

// ProviderConfig contains configuration for a single upstream AI provider.
type ProviderConfig struct {
	// Name identifies the provider in logs, metrics and breaker state.
	Name string `yaml:"name"`

	// Type selects the adapter.
	// Options: "openai", "anthropic", "generic"
	// Default: inferred from the name
	Type string `yaml:"type"`

	// BaseURL is the base URL for the provider's API endpoint.
	// Example: "https://api.openai.com/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey is the authentication key for the provider.
	// This should typically be loaded from an environment variable.
	APIKey string `yaml:"api_key"`

	// Model is used when a request does not name one.
	Model string `yaml:"model"`

	// Timeout is the HTTP client timeout for this provider.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`
}

// SecretsConfig contains secret resolution settings.
type SecretsConfig struct {
	// Dir is a directory holding one file per secret, checked before the
	// environment. Empty disables file secrets.
	// Example: "/run/secrets/bulwark"
	Dir string `yaml:"dir"`

	// Watch reloads file secrets when the directory changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// EnvPrefix namespaces secret environment variables.
	// Default: "BULWARK_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// CacheTTL is how long a resolved secret is reused.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector address.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "bulwark"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the collector connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks credentials in log fields.
	// Default: false
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true when the section is omitted
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "bulwark"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets defines histogram buckets for request duration (seconds).
	// Default: [0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// IsEnabled reports whether metrics are enabled.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}
