package types

// CompletionResponse is returned by the chat and generate endpoints.
type CompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content string `json:"content"`

	// Provider is the name of the provider that served the request.
	Provider string `json:"provider"`

	// Fallback is true when the primary provider was skipped.
	Fallback bool `json:"fallback"`

	Usage Usage `json:"usage"`

	// Quota is the caller's balance after this request was charged.
	Quota *QuotaStatus `json:"quota,omitempty"`

	// RateLimit is the caller's window after this request was counted.
	RateLimit *RateLimitStatus `json:"rateLimit,omitempty"`
}

// Usage reports provider token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// QuotaStatus reports a user's quota balance.
type QuotaStatus struct {
	Tier          string `json:"tier"`
	TokensUsed    int64  `json:"tokensUsed"`
	TokenLimit    int64  `json:"tokenLimit"`
	Remaining     int64  `json:"remaining"`
	PeriodResetAt string `json:"periodResetAt"`
}

// RateLimitStatus reports a client's sliding window for one class.
type RateLimitStatus struct {
	Policy    string `json:"policy"`
	Allowed   bool   `json:"allowed"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
	ResetAt   string `json:"resetAt"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
}
