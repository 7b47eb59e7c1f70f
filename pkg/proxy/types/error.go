package types

import "net/http"

// ErrorResponse is the JSON body of every error returned by the service:
//
//	{"error": "Too many AI requests, please slow down", "code": "AI_RATE_LIMIT_EXCEEDED"}
type ErrorResponse struct {
	// Error is a human-readable message.
	Error string `json:"error"`

	// Code is a stable machine-readable code.
	Code string `json:"code"`

	// RetryAfter is the suggested wait in seconds for throttled requests.
	RetryAfter int64 `json:"retryAfter,omitempty"`
}

// QuotaExceededResponse is returned with 403 when a metered action is
// denied by the quota ledger.
type QuotaExceededResponse struct {
	ErrorResponse

	QuotaExceeded bool   `json:"quotaExceeded"`
	ActionType    string `json:"actionType"`
	Cost          int64  `json:"cost"`
	TokensUsed    int64  `json:"tokensUsed"`
	TokenLimit    int64  `json:"tokenLimit"`
	Remaining     int64  `json:"remaining"`
	Tier          string `json:"tier"`
}

// Error codes.
const (
	CodeAuthRateLimitExceeded = "AUTH_RATE_LIMIT_EXCEEDED"
	CodeAIRateLimitExceeded   = "AI_RATE_LIMIT_EXCEEDED"
	CodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	CodeQuotaExceeded         = "QUOTA_EXCEEDED"
	CodeQuotaUnavailable      = "QUOTA_UNAVAILABLE"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodeAccountExists         = "ACCOUNT_EXISTS"
	CodeNotFound              = "NOT_FOUND"
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeRequestTooLarge       = "REQUEST_TOO_LARGE"
	CodeProvidersUnavailable  = "AI_PROVIDERS_UNAVAILABLE"
	CodeCircuitOpen           = "CIRCUIT_OPEN"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	CodeGatewayTimeout        = "GATEWAY_TIMEOUT"
	CodeInternalError         = "INTERNAL_ERROR"
)

var codeStatus = map[string]int{
	CodeAuthRateLimitExceeded: http.StatusTooManyRequests,
	CodeAIRateLimitExceeded:   http.StatusTooManyRequests,
	CodeRateLimitExceeded:     http.StatusTooManyRequests,
	CodeQuotaExceeded:         http.StatusForbidden,
	CodeQuotaUnavailable:      http.StatusServiceUnavailable,
	CodeUnauthorized:          http.StatusUnauthorized,
	CodeUserNotFound:          http.StatusNotFound,
	CodeAccountExists:         http.StatusConflict,
	CodeNotFound:              http.StatusNotFound,
	CodeInvalidRequest:        http.StatusBadRequest,
	CodeRequestTooLarge:       http.StatusRequestEntityTooLarge,
	CodeProvidersUnavailable:  http.StatusBadGateway,
	CodeCircuitOpen:           http.StatusServiceUnavailable,
	CodeServiceUnavailable:    http.StatusServiceUnavailable,
	CodeGatewayTimeout:        http.StatusGatewayTimeout,
	CodeInternalError:         http.StatusInternalServerError,
}

// NewErrorResponse creates an error response.
func NewErrorResponse(message, code string) *ErrorResponse {
	return &ErrorResponse{Error: message, Code: code}
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, CodeInternalError)
}

// NewInvalidRequestError creates an error response for malformed requests (400).
func NewInvalidRequestError(message string) *ErrorResponse {
	return NewErrorResponse(message, CodeInvalidRequest)
}

// HTTPStatusCode returns the HTTP status code for the error code.
func (e *ErrorResponse) HTTPStatusCode() int {
	if status, ok := codeStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
