package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "BULWARK_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention BULWARK_SECTION_FIELD (e.g., BULWARK_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
// An empty path starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefault()
	} else {
		var err error
		if cfg, err = parseFile(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format BULWARK_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	setString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	setString("SERVER_ADMIN_TOKEN", &cfg.Server.AdminToken)
	setBool("SERVER_TRUSTED_USER_HEADER", &cfg.Server.TrustedUserHeader)

	// Limits overrides
	setString("LIMITS_REDIS_URL", &cfg.Limits.RedisURL)
	setDuration("LIMITS_SWEEP_INTERVAL", &cfg.Limits.SweepInterval)

	// Quota overrides
	setString("QUOTA_BACKEND", &cfg.Quota.Backend)
	setString("QUOTA_SQLITE_PATH", &cfg.Quota.SQLite.Path)
	setInt("QUOTA_RETENTION_DAYS", &cfg.Quota.Retention.Days)
	setString("QUOTA_RETENTION_PRUNE_SCHEDULE", &cfg.Quota.Retention.PruneSchedule)

	// Resilience overrides
	setInt("RESILIENCE_FAILURE_THRESHOLD", &cfg.Resilience.FailureThreshold)
	setDuration("RESILIENCE_RESET_TIMEOUT", &cfg.Resilience.ResetTimeout)
	setInt("RESILIENCE_MAX_RETRIES", &cfg.Resilience.MaxRetries)
	setDuration("RESILIENCE_BASE_DELAY", &cfg.Resilience.BaseDelay)
	setDuration("RESILIENCE_MAX_DELAY", &cfg.Resilience.MaxDelay)
	setDuration("RESILIENCE_ATTEMPT_TIMEOUT", &cfg.Resilience.AttemptTimeout)
	setBool("RESILIENCE_DISABLE_JITTER", &cfg.Resilience.DisableJitter)

	// Provider overrides apply to providers already listed in the file
	for i := range cfg.Providers {
		applyProviderEnvOverrides(&cfg.Providers[i])
	}

	// Secrets overrides
	setString("SECRETS_DIR", &cfg.Secrets.Dir)
	setBool("SECRETS_WATCH", &cfg.Secrets.Watch)

	// Telemetry overrides
	setString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	setString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	setBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	setString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
}

// applyProviderEnvOverrides applies environment variable overrides for a specific provider.
// Provider environment variables follow the format BULWARK_PROVIDERS_<NAME>_<FIELD>
// where NAME is the uppercase provider name with dashes replaced by underscores.
func applyProviderEnvOverrides(p *ProviderConfig) {
	name := strings.ToUpper(strings.ReplaceAll(p.Name, "-", "_"))
	prefix := "PROVIDERS_" + name + "_"

	setString(prefix+"BASE_URL", &p.BaseURL)
	setString(prefix+"API_KEY", &p.APIKey)
	setString(prefix+"MODEL", &p.Model)
	setDuration(prefix+"TIMEOUT", &p.Timeout)
}

func setString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func setDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func setInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}
