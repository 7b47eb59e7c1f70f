package handlers

import (
	"log/slog"
	"net/http"

	"mercator-hq/bulwark/pkg/providers"
	"mercator-hq/bulwark/pkg/proxy"
	"mercator-hq/bulwark/pkg/proxy/middleware"
	"mercator-hq/bulwark/pkg/proxy/types"
	"mercator-hq/bulwark/pkg/telemetry/logging"
)

// Config holds the settings shared by the AI handlers.
type Config struct {
	// MaxBodyBytes bounds request bodies. Zero uses proxy.DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Logger receives handler errors. Default: slog.Default()
	Logger *slog.Logger

	// Fallbacks is told about fallback-served requests. Optional.
	Fallbacks FallbackObserver
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// ChatHandler serves POST /v1/chat. Admission (rate limit and the chatbot
// quota reservation) has already happened in middleware.
type ChatHandler struct {
	completer Completer
	cfg       Config
	logger    *slog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(completer Completer, cfg Config) *ChatHandler {
	return &ChatHandler{
		completer: completer,
		cfg:       cfg,
		logger:    cfg.logger().With("component", "chat"),
	}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := proxy.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	providerReq := &providers.CompletionRequest{
		Model:       req.Model,
		Messages:    make([]providers.Message, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		User:        logging.GetUser(r.Context()),
	}
	for i, msg := range req.Messages {
		providerReq.Messages[i] = providers.Message{Role: msg.Role, Content: msg.Content}
	}

	complete(w, r, h.completer, providerReq, h.cfg, h.logger)
}

// complete runs the request through the failover chain and writes the
// response, attaching the caller's quota balance and rate limit window
// when admission recorded them.
func complete(w http.ResponseWriter, r *http.Request, c Completer, req *providers.CompletionRequest, cfg Config, logger *slog.Logger) {
	ctx := r.Context()

	result, err := c.Complete(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "completion failed",
			"kind", string(proxy.Classify(err)),
			"error", err,
		)
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	if result.IsFallback {
		logger.InfoContext(logging.WithProvider(ctx, result.Provider), "served by fallback provider",
			"skipped", result.Skipped(),
		)
		if cfg.Fallbacks != nil {
			cfg.Fallbacks.RecordFallback(result.Provider)
		}
	}

	resp := proxy.FormatCompletionResponse(result)
	if d, ok := middleware.QuotaDecision(ctx); ok {
		resp.Quota = proxy.QuotaStatusFromDecision(d)
	}
	if rl, ok := middleware.RateLimitResult(ctx); ok {
		resp.RateLimit = proxy.RateLimitStatusFromResult(rl)
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		logger.WarnContext(ctx, "failed to write response", "error", err)
	}
}
