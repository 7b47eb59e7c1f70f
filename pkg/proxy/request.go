package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mercator-hq/bulwark/pkg/proxy/types"
)

const (
	// DefaultMaxBodyBytes bounds request bodies when the server config does
	// not set a limit (1MB).
	DefaultMaxBodyBytes = 1 << 20

	// AuthorizationHeader carries the admin bearer token.
	AuthorizationHeader = "Authorization"

	// UserIDHeader is set by the upstream authentication layer.
	UserIDHeader = "X-User-ID"

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// Client identity headers, in order of precedence.
const (
	EdgeIPHeader       = "CF-Connecting-IP"
	RealIPHeader       = "X-Real-IP"
	ForwardedForHeader = "X-Forwarded-For"
)

// UnknownClient is the identity used when no trusted header is present.
const UnknownClient = "unknown"

// Validator is implemented by request bodies that can check themselves.
type Validator interface {
	Validate() error
}

// DecodeJSON reads a JSON body of at most maxBytes into v and validates it
// when v implements Validator. Failures are returned as *RequestError.
//
// Example usage:
//
//	var req types.ChatRequest
//	if err := DecodeJSON(w, r, maxBytes, &req); err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &RequestError{
				Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
				Code:    types.CodeRequestTooLarge,
			}
		}
		return &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidRequest,
		}
	}

	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			return &RequestError{Message: err.Error(), Code: types.CodeInvalidRequest}
		}
	}
	return nil
}

// ClientIP returns the client identity used for rate limiting. Headers set
// by the edge proxy take precedence over those set by the load balancer:
// CF-Connecting-IP, then X-Real-IP, then the first X-Forwarded-For entry.
// Requests carrying none of them share the UnknownClient identity.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(EdgeIPHeader)); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get(RealIPHeader)); ip != "" {
		return ip
	}
	if xff := r.Header.Get(ForwardedForHeader); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return UnknownClient
}

// ExtractBearerToken extracts the token from an "Authorization: Bearer"
// header. If the header is missing or malformed, an empty string is
// returned.
func ExtractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// ExtractUserID extracts the user ID from the X-User-ID header.
func ExtractUserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewErrorResponse(e.Message, e.Code)
}
