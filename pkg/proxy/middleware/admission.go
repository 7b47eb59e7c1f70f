package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/bulwark/pkg/limits/quota"
	"mercator-hq/bulwark/pkg/limits/ratelimit"
	"mercator-hq/bulwark/pkg/proxy"
	"mercator-hq/bulwark/pkg/proxy/types"
	"mercator-hq/bulwark/pkg/telemetry/logging"
	"mercator-hq/bulwark/pkg/telemetry/tracing"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// LimiterSource resolves the limiter for a request class. *limits.Manager
// implements it.
type LimiterSource interface {
	Limiter(class string) (*ratelimit.Limiter, error)
}

// ClassFunc maps a request to its rate limit class.
type ClassFunc func(r *http.Request) string

// RateLimitObserver records admission checks. *limits.Metrics implements it.
type RateLimitObserver interface {
	RecordRateLimitCheck(class string, allowed bool)
}

// RejectionObserver records rejected requests by error code. The telemetry
// metrics collector implements it.
type RejectionObserver interface {
	RecordAdmissionRejection(code string)
}

// Options configures the admission middleware.
type Options struct {
	// Logger receives admission decisions. Default: slog.Default()
	Logger *slog.Logger

	// Checks is notified of every rate limit check. Optional.
	Checks RateLimitObserver

	// Rejections is notified of every rejected request. Optional.
	Rejections RejectionObserver

	// Tracer records a span per admission check. Default: no-op
	Tracer trace.Tracer
}

func (o Options) tracer() trace.Tracer {
	if o.Tracer == nil {
		return noop.NewTracerProvider().Tracer("admission")
	}
	return o.Tracer
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default().With("component", "admission")
	}
	return o.Logger.With("component", "admission")
}

func (o Options) rejected(code string) {
	if o.Rejections != nil {
		o.Rejections.RecordAdmissionRejection(code)
	}
}

// Class returns a ClassFunc that always yields class.
func Class(class string) ClassFunc {
	return func(*http.Request) string { return class }
}

// ClassByPath derives the class from the path: /auth/ routes are auth,
// /v1/ routes call AI providers, everything else is general.
func ClassByPath(r *http.Request) string {
	switch {
	case strings.HasPrefix(r.URL.Path, "/auth/"):
		return ratelimit.ClassAuth
	case strings.HasPrefix(r.URL.Path, "/v1/"):
		return ratelimit.ClassAI
	default:
		return ratelimit.ClassGeneral
	}
}

// RateLimit admits requests against the sliding window of their class,
// keyed by client identity. Every response carries the X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset headers; a rejection adds
// Retry-After and a 429 body with the class-specific code.
//
// A counter store error admits the request. The store already falls back
// to process-local counting when the shared backend is down, so an error
// here means a cancelled request or a misconfiguration.
//
// Example:
//
//	chat := RateLimit(manager, Class(ratelimit.ClassAI), opts)(chatHandler)
func RateLimit(source LimiterSource, classFn ClassFunc, opts Options) func(http.Handler) http.Handler {
	if classFn == nil {
		classFn = ClassByPath
	}
	logger := opts.logger()
	tracer := opts.tracer()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := classFn(r)
			ctx, span := tracer.Start(r.Context(), "admission.rate_limit",
				trace.WithAttributes(attribute.String(tracing.AttrClass, class)))
			defer span.End()

			limiter, err := source.Limiter(class)
			if err != nil {
				logger.ErrorContext(ctx, "no limiter for request class", "class", class, "error", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				_ = proxy.WriteErrorResponse(w, types.NewServerError("An internal error occurred. Please try again later."))
				return
			}

			client := logging.GetClientIP(ctx)
			if client == "" {
				client = proxy.ClientIP(r)
			}

			result, err := limiter.Allow(ctx, client)
			if err != nil {
				logger.WarnContext(ctx, "rate limit check failed, admitting request", "class", class, "error", err)
				span.RecordError(err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			span.SetAttributes(
				attribute.Bool(tracing.AttrAllowed, result.Allowed),
				attribute.Int64(tracing.AttrRemaining, result.Remaining),
			)

			if opts.Checks != nil {
				opts.Checks.RecordRateLimitCheck(class, result.Allowed)
			}
			setRateLimitHeaders(w, result)

			if !result.Allowed {
				code := proxy.RateLimitCode(class)
				opts.rejected(code)
				logger.WarnContext(ctx, "rate limit exceeded",
					"class", class,
					"limit", result.Limit,
					"retry_after_s", result.RetryAfterSeconds(),
				)

				resp := types.NewErrorResponse(proxy.RateLimitMessage(class), code)
				resp.RetryAfter = result.RetryAfterSeconds()
				_ = proxy.WriteErrorResponse(w, resp)
				return
			}

			ctx = WithRateLimitResult(ctx, result)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, result *ratelimit.Result) {
	h := w.Header()
	h.Set(HeaderRateLimitLimit, strconv.FormatInt(result.Limit, 10))
	h.Set(HeaderRateLimitRemaining, strconv.FormatInt(result.Remaining, 10))
	h.Set(HeaderRateLimitReset, strconv.FormatInt(result.ResetUnix(), 10))
	if !result.Allowed {
		h.Set(HeaderRetryAfter, strconv.FormatInt(result.RetryAfterSeconds(), 10))
	}
}

// ActionFunc maps a request to the metered action it performs.
type ActionFunc func(r *http.Request) (quota.Action, error)

// Quota charges the fixed cost of action to the authenticated user before
// the request reaches next.
func Quota(ledger *quota.Ledger, action quota.Action, opts Options) func(http.Handler) http.Handler {
	return QuotaFor(ledger, func(*http.Request) (quota.Action, error) { return action, nil }, opts)
}

// ActionFromPath reads the action from the {action} path wildcard.
func ActionFromPath(r *http.Request) (quota.Action, error) {
	return quota.ParseAction(r.PathValue("action"))
}

// QuotaFor reserves the cost of the request's action against the
// authenticated user's token allowance.
//
// The user is read from the request context, where the authentication
// middleware put it. Request headers are never consulted. Outcomes:
//   - no user: 401 UNAUTHORIZED
//   - unknown action: 404 NOT_FOUND
//   - no account: 404 USER_NOT_FOUND
//   - allowance exhausted: 403 QUOTA_EXCEEDED with the balance
//   - account store failure: 503 QUOTA_UNAVAILABLE
//
// On success the quota.Decision is stored in the request context.
func QuotaFor(ledger *quota.Ledger, actionFn ActionFunc, opts Options) func(http.Handler) http.Handler {
	logger := opts.logger()
	tracer := opts.tracer()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "admission.quota")
			defer span.End()

			userID := logging.GetUser(ctx)
			span.SetAttributes(attribute.String(tracing.AttrUser, userID))
			if userID == "" {
				opts.rejected(types.CodeUnauthorized)
				_ = proxy.WriteErrorResponse(w, types.NewErrorResponse("Authentication required", types.CodeUnauthorized))
				return
			}
			action, err := actionFn(r)
			if err != nil {
				_ = proxy.WriteErrorResponse(w, types.NewErrorResponse("Unknown action", types.CodeNotFound))
				return
			}
			span.SetAttributes(attribute.String(tracing.AttrQuotaAction, string(action)))

			decision, err := ledger.ReserveAction(ctx, userID, action)
			switch {
			case errors.Is(err, quota.ErrUserNotFound):
				opts.rejected(types.CodeUserNotFound)
				_ = proxy.WriteErrorResponse(w, types.NewErrorResponse("User not found", types.CodeUserNotFound))
				return
			case err != nil:
				opts.rejected(types.CodeQuotaUnavailable)
				logger.ErrorContext(ctx, "quota reservation failed", "action", string(action), "error", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(
					"Unable to verify token balance, please try again later",
					types.CodeQuotaUnavailable,
				))
				return
			}

			span.SetAttributes(attribute.Bool(tracing.AttrAllowed, decision.Allowed))
			if !decision.Allowed {
				opts.rejected(types.CodeQuotaExceeded)
				logger.InfoContext(ctx, "quota exceeded",
					"action", string(action),
					"cost", decision.Cost,
					"remaining", decision.Remaining,
					"tier", string(decision.Tier),
				)
				body := proxy.QuotaExceeded(string(action), decision)
				_ = proxy.WriteJSONResponse(w, body.HTTPStatusCode(), body)
				return
			}

			ctx = WithQuotaDecision(ctx, decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenSource returns the token RequireBearerFrom compares against. It is
// called on every request so rotated tokens take effect without a restart.
type TokenSource func(ctx context.Context) (string, error)

// RequireBearer admits only requests carrying "Authorization: Bearer
// <token>". An empty token rejects every request.
func RequireBearer(token string) func(http.Handler) http.Handler {
	return RequireBearerFrom(func(context.Context) (string, error) { return token, nil }, Options{})
}

// RequireBearerFrom is RequireBearer with a token looked up per request.
// A lookup failure answers 503 so a broken secret store never opens the
// admin API.
func RequireBearerFrom(source TokenSource, opts Options) func(http.Handler) http.Handler {
	logger := opts.logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := source(r.Context())
			if err != nil {
				logger.ErrorContext(r.Context(), "admin token lookup failed", "error", err)
				_ = proxy.WriteErrorResponse(w, types.NewErrorResponse("Admin authentication unavailable", types.CodeServiceUnavailable))
				return
			}
			got := proxy.ExtractBearerToken(r)
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				_ = proxy.WriteErrorResponse(w, types.NewErrorResponse("Authentication required", types.CodeUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares so the first one listed runs first.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
