package tracing

// Span attribute keys. Standard keys follow OpenTelemetry semantic
// conventions; the rest use the bulwark.* namespace.
const (
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.response.status_code"

	AttrProvider        = "bulwark.provider"
	AttrProviderAttempt = "bulwark.provider.attempt"
	AttrOutcome         = "bulwark.outcome"
	AttrModel           = "bulwark.model"

	AttrUser      = "bulwark.user"
	AttrClass     = "bulwark.ratelimit.class"
	AttrRemaining = "bulwark.ratelimit.remaining"
	AttrAllowed   = "bulwark.allowed"

	AttrQuotaCost     = "bulwark.quota.cost"
	AttrQuotaAction   = "bulwark.quota.action"
	AttrQuotaTier     = "bulwark.quota.tier"
	AttrQuotaUsed     = "bulwark.quota.tokens_used"
	AttrQuotaWasReset = "bulwark.quota.was_reset"
)
