// Package config provides configuration management for Bulwark.
//
// This package handles loading and validating configuration from YAML files
// with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("bulwark.yaml")
//
//  2. From a YAML file (or defaults) with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("bulwark.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention BULWARK_SECTION_FIELD.
// For example:
//
//   - BULWARK_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - BULWARK_LIMITS_REDIS_URL overrides limits.redis_url
//   - BULWARK_PROVIDERS_OPENAI_API_KEY overrides the api_key of the provider named "openai"
//   - BULWARK_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// The resulting *Config is passed explicitly to the components that need
// it; there is no package-level configuration state.
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//	limits:
//	  redis_url: "redis://localhost:6379/0"
//	quota:
//	  backend: sqlite
//	  sqlite:
//	    path: data/quota.db
//	resilience:
//	  failure_threshold: 5
//	  reset_timeout: 60s
//	providers:
//	  - name: openai
//	    base_url: https://api.openai.com/v1
//	    model: gpt-4o-mini
//	  - name: anthropic
//	    model: claude-3-5-haiku-latest
package config
