package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/bulwark/pkg/limits/quota"
	"mercator-hq/bulwark/pkg/limits/ratelimit"
	"mercator-hq/bulwark/pkg/proxy/types"
	"mercator-hq/bulwark/pkg/routing"
)

// WriteJSONResponse writes data as JSON with the given status code.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an error response with the status its code
// maps to. A Retry-After header is added when the response carries one.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	if errResp.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(errResp.RetryAfter, 10))
	}
	return WriteJSONResponse(w, errResp.HTTPStatusCode(), errResp)
}

// QuotaExceeded builds the 403 body for a denied reservation.
func QuotaExceeded(action string, d quota.Decision) *types.QuotaExceededResponse {
	return &types.QuotaExceededResponse{
		ErrorResponse: types.ErrorResponse{
			Error: d.Err().Error(),
			Code:  types.CodeQuotaExceeded,
		},
		QuotaExceeded: true,
		ActionType:    action,
		Cost:          d.Cost,
		TokensUsed:    d.TokensUsed,
		TokenLimit:    d.TokenLimit,
		Remaining:     d.Remaining,
		Tier:          string(d.Tier),
	}
}

// QuotaStatusFromDecision reports the balance after a reservation.
func QuotaStatusFromDecision(d quota.Decision) *types.QuotaStatus {
	return &types.QuotaStatus{
		Tier:          string(d.Tier),
		TokensUsed:    d.TokensUsed,
		TokenLimit:    d.TokenLimit,
		Remaining:     d.Remaining,
		PeriodResetAt: d.PeriodResetAt.UTC().Format(time.RFC3339),
	}
}

// QuotaStatusFromAccount reports a stored account's balance.
func QuotaStatusFromAccount(a *quota.Account) *types.QuotaStatus {
	return &types.QuotaStatus{
		Tier:          string(a.Tier),
		TokensUsed:    a.TokensUsed,
		TokenLimit:    a.TokenLimit(),
		Remaining:     a.Remaining(),
		PeriodResetAt: a.PeriodResetAt.UTC().Format(time.RFC3339),
	}
}

// RateLimitStatusFromResult reports a limiter check.
func RateLimitStatusFromResult(r *ratelimit.Result) *types.RateLimitStatus {
	return &types.RateLimitStatus{
		Policy:    r.Policy,
		Allowed:   r.Allowed,
		Limit:     r.Limit,
		Remaining: r.Remaining,
		ResetAt:   r.ResetAt.UTC().Format(time.RFC3339),
	}
}

// FormatCompletionResponse converts an orchestrator result to the API
// response body.
func FormatCompletionResponse(result *routing.Result) *types.CompletionResponse {
	resp := result.Response
	return &types.CompletionResponse{
		ID:       resp.ID,
		Model:    resp.Model,
		Content:  resp.Content,
		Provider: result.Provider,
		Fallback: result.IsFallback,
		Usage: types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}
