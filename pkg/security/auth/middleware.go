package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/bulwark/pkg/proxy"
	"mercator-hq/bulwark/pkg/proxy/types"
	"mercator-hq/bulwark/pkg/telemetry/logging"
)

// APIKeySource defines where to extract API keys from.
type APIKeySource struct {
	Type   string // header, query
	Name   string // Header name or query param
	Scheme string // "Bearer", etc. (optional)
}

// DefaultSources accepts "Authorization: Bearer <key>" and "X-API-Key: <key>".
var DefaultSources = []APIKeySource{
	{Type: "header", Name: "Authorization", Scheme: "Bearer"},
	{Type: "header", Name: "X-API-Key"},
}

// Options configures APIKeyMiddleware.
type Options struct {
	// Sources lists where keys are looked for, in order. Default: DefaultSources
	Sources []APIKeySource

	// TrustedUserHeader accepts the X-User-ID header as the caller identity
	// when the request carries no API key. Only safe behind a gateway that
	// authenticates users and strips the header from client traffic.
	TrustedUserHeader bool

	// Logger receives authentication failures. Default: slog.Default()
	Logger *slog.Logger
}

// APIKeyMiddleware is HTTP middleware for API key authentication. A
// request that passes carries the key's user in its context, which is
// where the quota middleware reads the identity it charges.
type APIKeyMiddleware struct {
	validator *APIKeyValidator
	opts      Options
	logger    *slog.Logger
}

// NewAPIKeyMiddleware creates a new API key authentication middleware.
func NewAPIKeyMiddleware(validator *APIKeyValidator, opts Options) *APIKeyMiddleware {
	if len(opts.Sources) == 0 {
		opts.Sources = DefaultSources
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyMiddleware{
		validator: validator,
		opts:      opts,
		logger:    logger.With("component", "auth"),
	}
}

// Handle wraps an HTTP handler with API key authentication.
//
// A presented key must be valid; the X-User-ID header is then ignored.
// Without a key the header is honoured only when TrustedUserHeader is set.
func (m *APIKeyMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		apiKey, found := m.extractAPIKey(r)
		if !found {
			if user := proxy.ExtractUserID(r); m.opts.TrustedUserHeader && user != "" {
				next.ServeHTTP(w, r.WithContext(logging.WithUser(ctx, user)))
				return
			}
			m.logger.WarnContext(ctx, "missing API key", "path", r.URL.Path)
			unauthorized(w, "Missing or invalid API key")
			return
		}

		keyInfo, err := m.validator.Validate(apiKey)
		if err != nil {
			m.logger.WarnContext(ctx, "invalid API key", "error", err, "path", r.URL.Path)
			unauthorized(w, "Invalid API key")
			return
		}

		m.logger.DebugContext(ctx, "API key authenticated", "user_id", keyInfo.UserID)

		ctx = context.WithValue(ctx, apiKeyInfoKey, keyInfo)
		ctx = logging.WithUser(ctx, keyInfo.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractAPIKey extracts the API key from the request using configured sources.
func (m *APIKeyMiddleware) extractAPIKey(r *http.Request) (string, bool) {
	for _, source := range m.opts.Sources {
		switch source.Type {
		case "header":
			value := r.Header.Get(source.Name)
			if value == "" {
				continue
			}
			if source.Scheme == "" {
				return value, true
			}
			if key, ok := strings.CutPrefix(value, source.Scheme+" "); ok && key != "" {
				return key, true
			}

		case "query":
			if value := r.URL.Query().Get(source.Name); value != "" {
				return value, true
			}
		}
	}
	return "", false
}

func unauthorized(w http.ResponseWriter, msg string) {
	_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(msg, types.CodeUnauthorized))
}

// Context key for API key info
type contextKey string

// #nosec G101 - This is a context key constant, not a credential
const apiKeyInfoKey contextKey = "api_key_info"

// GetAPIKeyInfo retrieves API key info from request context.
func GetAPIKeyInfo(ctx context.Context) (*APIKeyInfo, bool) {
	info, ok := ctx.Value(apiKeyInfoKey).(*APIKeyInfo)
	return info, ok
}
