package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"worldconnector/internal/auth"
	"worldconnector/internal/domain"
)

// ListMessages handles GET /api/messages.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.repo.ListMessages(r.Context(), h.namespace)
	if err != nil {
		slog.Error("failed to list messages", "error", err)
		Error(w, http.StatusInternalServerError, "store_unavailable")
		return
	}

	if messages == nil {
		messages = []*domain.ChatMessage{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessage handles POST /api/messages. Blank text is rejected, and authors
// must have a profile; the display name is snapshotted into the message at
// append time, so later renames never rewrite history.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if domain.IsBlank(req.Text) {
		Error(w, http.StatusUnprocessableEntity, "empty_message")
		return
	}

	profile, err := h.repo.GetProfile(r.Context(), h.namespace, identity)
	if err != nil {
		slog.Error("failed to load author profile", "user_id", identity, "error", err)
		Error(w, http.StatusInternalServerError, "store_unavailable")
		return
	}
	if profile == nil {
		Error(w, http.StatusConflict, "no_profile")
		return
	}

	msg, err := h.repo.AppendMessage(r.Context(), h.namespace, identity, profile.NameOrFallback(), req.Text)
	if err != nil {
		slog.Error("failed to append message", "user_id", identity, "error", err)
		Error(w, http.StatusInternalServerError, "store_unavailable")
		return
	}

	h.publishMessagesChange(r.Context())

	slog.Info("message sent", "user_id", identity, "message_id", msg.MessageID)
	JSON(w, http.StatusCreated, msg)
}
