package handlers

import (
	"net/http"

	"mercator-hq/bulwark/pkg/proxy"
	"mercator-hq/bulwark/pkg/proxy/types"
)

// LoginHandler serves POST /auth/login. Credential verification belongs to
// the upstream identity service; this endpoint exists so login attempts pass
// through the auth rate limit class. It validates the body and acknowledges
// the attempt.
type LoginHandler struct {
	maxBodyBytes int64
}

// NewLoginHandler creates a login handler.
func NewLoginHandler(maxBodyBytes int64) *LoginHandler {
	return &LoginHandler{maxBodyBytes: maxBodyBytes}
}

// ServeHTTP implements http.Handler.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := proxy.DecodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, types.LoginResponse{Success: true, Email: req.Email})
}
