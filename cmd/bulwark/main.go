// Bulwark is an admission-control and resilience proxy for AI-backed APIs.
//
// It sits in front of an application's AI routes and provides:
//   - Sliding-window rate limits per client and request class
//   - Monthly token quotas per user and subscription tier
//   - Retries with backoff and per-provider circuit breakers
//   - Ordered failover across interchangeable AI providers
//
// Usage:
//
//	# Start the proxy with built-in defaults
//	bulwark run
//
//	# Start with a configuration file
//	bulwark run --config /etc/bulwark/config.yaml
//
//	# Check a configuration file
//	bulwark validate --config config.yaml
//
//	# Create and inspect quota accounts
//	bulwark quota create --user u-123 --tier pro
//	bulwark quota show --user u-123
//
//	# Show version information
//	bulwark version
package main

func main() {
	Execute()
}
