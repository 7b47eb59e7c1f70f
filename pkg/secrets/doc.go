// Package secrets resolves ${secret:name} references in configuration
// values.
//
// Two providers are built in:
//
//   - FileProvider reads one file per secret from a directory, such as a
//     mounted Kubernetes secret volume, and can watch it for rotation.
//   - EnvProvider reads BULWARK_SECRET_<NAME> environment variables.
//
// A Resolver tries its providers in order and caches hits for a TTL.
// Provider API keys and the Redis URL are resolved once at startup; the
// admin token is resolved per request through Resolver.Source so a
// rotated file takes effect without a restart:
//
//	server:
//	  admin_token: ${secret:admin-token}
//	providers:
//	  - name: openai
//	    api_key: ${secret:openai-api-key}
package secrets
