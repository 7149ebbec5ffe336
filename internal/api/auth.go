package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"worldconnector/internal/auth"
)

// authResponse carries a freshly minted session plus the namespace the client
// needs to address topics.
type authResponse struct {
	*auth.Session
	Namespace string `json:"namespace"`
}

// SignInAnonymous handles POST /api/auth/anonymous. It mints a fresh identity
// and a session token; no request body is required.
func (h *Handler) SignInAnonymous(w http.ResponseWriter, r *http.Request) {
	session, err := h.auth.SignInAnonymous()
	if err != nil {
		slog.Error("anonymous sign-in failed", "error", err)
		Error(w, http.StatusInternalServerError, "sign_in_failed")
		return
	}

	slog.Info("anonymous sign-in", "user_id", session.Identity)
	JSON(w, http.StatusOK, authResponse{Session: session, Namespace: h.namespace})
}

type exchangeRequest struct {
	Credential string `json:"credential"`
}

// ExchangeToken handles POST /api/auth/exchange. A valid bootstrap credential
// yields a session for the identity it names; anything else is 401.
func (h *Handler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request")
		return
	}

	session, err := h.auth.ExchangeToken(req.Credential)
	if err != nil {
		slog.Warn("credential exchange rejected", "error", err)
		Error(w, http.StatusUnauthorized, "invalid_credential")
		return
	}

	slog.Info("credential exchanged", "user_id", session.Identity)
	JSON(w, http.StatusOK, authResponse{Session: session, Namespace: h.namespace})
}
