package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"mercator-hq/bulwark/pkg/limits"
	"mercator-hq/bulwark/pkg/limits/quota"
	"mercator-hq/bulwark/pkg/proxy"
	"mercator-hq/bulwark/pkg/proxy/types"
	"mercator-hq/bulwark/pkg/resilience/breaker"
	"mercator-hq/bulwark/pkg/routing"
)

// AdminHandler serves the operator endpoints:
//
//	GET    /admin/breakers                   breaker snapshots
//	POST   /admin/breakers/reset             force every breaker closed
//	POST   /admin/breakers/{name}/reset      force a breaker closed
//	GET    /admin/quota/{user}               account balance
//	POST   /admin/quota                      create an account
//	GET    /admin/ratelimit/{class}/{client} inspect a client's window
//	DELETE /admin/ratelimit/{class}/{client} clear a client's window
//	GET    /admin/routing/stats              failover counters
//	DELETE /admin/routing/stats              zero the failover counters
//
// The routing routes are only registered when WithRouting was called.
// Authentication is applied by the caller with middleware.RequireBearer.
type AdminHandler struct {
	manager  *limits.Manager
	breakers *breaker.Registry
	routing  RoutingStats
	logger   *slog.Logger
}

// RoutingStats exposes the failover counters of a routing.Orchestrator.
type RoutingStats interface {
	GetStats() *routing.RoutingStats
	ResetStats()
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(manager *limits.Manager, breakers *breaker.Registry, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		manager:  manager,
		breakers: breakers,
		logger:   logger.With("component", "admin"),
	}
}

// WithRouting enables the routing stats routes.
func (h *AdminHandler) WithRouting(stats RoutingStats) *AdminHandler {
	h.routing = stats
	return h
}

// Register adds the admin routes to mux, each wrapped by wrap.
func (h *AdminHandler) Register(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	routes := map[string]http.HandlerFunc{
		"GET /admin/breakers":                      h.ListBreakers,
		"POST /admin/breakers/reset":               h.ResetBreakers,
		"POST /admin/breakers/{name}/reset":        h.ResetBreaker,
		"GET /admin/quota/{user}":                  h.GetAccount,
		"POST /admin/quota":                        h.CreateAccount,
		"GET /admin/ratelimit/{class}/{client}":    h.PeekRateLimit,
		"DELETE /admin/ratelimit/{class}/{client}": h.ResetRateLimit,
	}
	if h.routing != nil {
		routes["GET /admin/routing/stats"] = h.RoutingStats
		routes["DELETE /admin/routing/stats"] = h.ResetRoutingStats
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, wrap(fn))
	}
}

// ListBreakers returns every breaker's state.
func (h *AdminHandler) ListBreakers(w http.ResponseWriter, r *http.Request) {
	_ = proxy.WriteJSONResponse(w, http.StatusOK, map[string]any{"breakers": h.breakers.Stats()})
}

// ResetBreakers forces every breaker closed.
func (h *AdminHandler) ResetBreakers(w http.ResponseWriter, r *http.Request) {
	h.breakers.ResetAll()
	h.logger.InfoContext(r.Context(), "all circuit breakers reset by operator")
	_ = proxy.WriteJSONResponse(w, http.StatusOK, map[string]any{"breakers": h.breakers.Stats()})
}

// ResetBreaker forces the named breaker closed.
func (h *AdminHandler) ResetBreaker(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.breakers.Reset(name); err != nil {
		if errors.Is(err, breaker.ErrUnknownBreaker) {
			_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(err.Error(), types.CodeNotFound))
			return
		}
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "circuit breaker reset by operator", "breaker", name)
	b, _ := h.breakers.Lookup(name)
	_ = proxy.WriteJSONResponse(w, http.StatusOK, b.Stats())
}

// GetAccount returns a user's quota balance.
func (h *AdminHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.manager.Ledger().Account(r.Context(), r.PathValue("user"))
	if err != nil {
		if !errors.Is(err, quota.ErrUserNotFound) {
			h.logger.ErrorContext(r.Context(), "account lookup failed", "error", err)
		}
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"userId": acct.UserID,
		"quota":  proxy.QuotaStatusFromAccount(acct),
	})
}

// CreateAccount creates a quota account with an empty balance.
func (h *AdminHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req types.CreateAccountRequest
	if err := proxy.DecodeJSON(w, r, 0, &req); err != nil {
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}
	if req.UserID == "" {
		_ = proxy.WriteErrorResponse(w, types.NewInvalidRequestError("userId is required"))
		return
	}
	tier, err := quota.ParseTier(req.Tier)
	if err != nil {
		_ = proxy.WriteErrorResponse(w, types.NewInvalidRequestError(err.Error()))
		return
	}

	ctx := r.Context()
	store := h.manager.Ledger().Store()
	if err := store.CreateAccount(ctx, quota.Account{UserID: req.UserID, Tier: tier}); err != nil {
		if errors.Is(err, quota.ErrAccountExists) {
			_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(err.Error(), types.CodeAccountExists))
			return
		}
		h.logger.ErrorContext(ctx, "account creation failed", "error", err)
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	acct, err := store.GetAccount(ctx, req.UserID)
	if err != nil {
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}
	h.logger.InfoContext(ctx, "quota account created", "user", acct.UserID, "tier", string(acct.Tier))
	_ = proxy.WriteJSONResponse(w, http.StatusCreated, map[string]any{
		"userId": acct.UserID,
		"quota":  proxy.QuotaStatusFromAccount(acct),
	})
}

// PeekRateLimit reports one client's window for one class without
// counting a hit against it.
func (h *AdminHandler) PeekRateLimit(w http.ResponseWriter, r *http.Request) {
	result, err := h.manager.PeekClient(r.Context(), r.PathValue("class"), r.PathValue("client"))
	if err != nil {
		if errors.Is(err, limits.ErrUnknownClass) {
			_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(err.Error(), types.CodeNotFound))
			return
		}
		h.logger.ErrorContext(r.Context(), "rate limit lookup failed", "error", err)
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, proxy.RateLimitStatusFromResult(result))
}

// ResetRateLimit clears one client's window for one class.
func (h *AdminHandler) ResetRateLimit(w http.ResponseWriter, r *http.Request) {
	err := h.manager.ResetClient(r.Context(), r.PathValue("class"), r.PathValue("client"))
	if err != nil {
		if errors.Is(err, limits.ErrUnknownClass) {
			_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(err.Error(), types.CodeNotFound))
			return
		}
		h.logger.ErrorContext(r.Context(), "rate limit reset failed", "error", err)
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RoutingStats returns the failover counters.
func (h *AdminHandler) RoutingStats(w http.ResponseWriter, r *http.Request) {
	_ = proxy.WriteJSONResponse(w, http.StatusOK, h.routing.GetStats())
}

// ResetRoutingStats zeroes the failover counters.
func (h *AdminHandler) ResetRoutingStats(w http.ResponseWriter, r *http.Request) {
	h.routing.ResetStats()
	h.logger.InfoContext(r.Context(), "routing stats reset by operator")
	w.WriteHeader(http.StatusNoContent)
}
