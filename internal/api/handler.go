// Package api provides HTTP handlers for the World Connector API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"worldconnector/internal/auth"
	"worldconnector/internal/live"
	"worldconnector/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo      store.Repository
	hub       *live.Hub
	auth      *auth.Service
	namespace string
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, hub *live.Hub, authSvc *auth.Service, namespace string) *Handler {
	return &Handler{
		repo:      repo,
		hub:       hub,
		auth:      authSvc,
		namespace: namespace,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		Error(w, http.StatusServiceUnavailable, "store_unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
