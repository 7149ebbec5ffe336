package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"worldconnector/internal/auth"
	"worldconnector/internal/domain"
)

// GetMyProfile handles GET /api/profiles/me.
func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	profile, err := h.repo.GetProfile(r.Context(), h.namespace, identity)
	if err != nil {
		slog.Error("failed to load profile", "user_id", identity, "error", err)
		Error(w, http.StatusInternalServerError, "store_unavailable")
		return
	}
	if profile == nil {
		Error(w, http.StatusNotFound, "no_profile")
		return
	}

	JSON(w, http.StatusOK, profile)
}

// SaveMyProfile handles PUT /api/profiles/me. The body is a partial document:
// absent fields leave stored values untouched, present fields overwrite.
func (h *Handler) SaveMyProfile(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	var patch domain.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := h.repo.UpsertProfile(r.Context(), h.namespace, identity, patch); err != nil {
		slog.Error("failed to save profile", "user_id", identity, "error", err)
		Error(w, http.StatusInternalServerError, "store_unavailable")
		return
	}

	h.publishProfileChange(r.Context(), identity)

	profile, err := h.repo.GetProfile(r.Context(), h.namespace, identity)
	if err != nil {
		slog.Error("failed to reload saved profile", "user_id", identity, "error", err)
		Error(w, http.StatusInternalServerError, "store_unavailable")
		return
	}

	slog.Info("profile saved", "user_id", identity)
	JSON(w, http.StatusOK, profile)
}

// ListProfiles handles GET /api/profiles. The caller's own record is excluded
// server-side; the discover view never shows it.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	profiles, err := h.repo.ListProfiles(r.Context(), h.namespace)
	if err != nil {
		slog.Error("failed to list profiles", "user_id", identity, "error", err)
		Error(w, http.StatusInternalServerError, "store_unavailable")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"profiles": domain.ExcludeProfile(profiles, identity),
	})
}
