package api

import (
	"github.com/go-chi/chi/v5"

	"worldconnector/internal/auth"
)

// RegisterRoutes mounts the API surface on r. The sign-in endpoints are
// public; everything else sits behind the session middleware, including the
// sync socket.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/anonymous", h.SignInAnonymous)
		r.Post("/exchange", h.ExchangeToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.auth))

		r.Get("/api/profiles/me", h.GetMyProfile)
		r.Put("/api/profiles/me", h.SaveMyProfile)
		r.Get("/api/profiles", h.ListProfiles)
		r.Get("/api/messages", h.ListMessages)
		r.Post("/api/messages", h.SendMessage)
		r.Get("/ws/sync", h.Sync)
	})
}
