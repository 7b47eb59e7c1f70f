package handlers

import (
	"log/slog"
	"net/http"

	"mercator-hq/bulwark/pkg/limits/quota"
	"mercator-hq/bulwark/pkg/providers"
	"mercator-hq/bulwark/pkg/proxy"
	"mercator-hq/bulwark/pkg/proxy/types"
	"mercator-hq/bulwark/pkg/telemetry/logging"
)

// systemPrompts frames each metered generation action for the provider.
var systemPrompts = map[quota.Action]string{
	quota.ActionAnalysis:  "Analyze the user's description and summarize its main themes.",
	quota.ActionStorybook: "Write a short illustrated story with a title and numbered pages.",
	quota.ActionColoring:  "Describe a simple black-and-white coloring page with clear outlines.",
	quota.ActionChatbot:   "You are a friendly, concise assistant.",
}

// GenerateHandler serves POST /v1/generate/{action} for the metered
// generation actions.
type GenerateHandler struct {
	completer Completer
	cfg       Config
	logger    *slog.Logger
}

// NewGenerateHandler creates a generation handler.
func NewGenerateHandler(completer Completer, cfg Config) *GenerateHandler {
	return &GenerateHandler{
		completer: completer,
		cfg:       cfg,
		logger:    cfg.logger().With("component", "generate"),
	}
}

// ServeHTTP implements http.Handler.
func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action, err := quota.ParseAction(r.PathValue("action"))
	if err != nil {
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	var req types.GenerateRequest
	if err := proxy.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	providerReq := &providers.CompletionRequest{
		Model: req.Model,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: systemPrompts[action]},
			{Role: providers.RoleUser, Content: req.Prompt},
		},
		User: logging.GetUser(r.Context()),
	}

	complete(w, r, h.completer, providerReq, h.cfg, h.logger.With("action", string(action)))
}
