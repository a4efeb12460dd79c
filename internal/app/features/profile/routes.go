package profile

import "github.com/go-chi/chi/v5"

// MountRoutes registers the self-service account routes on r (mounted at
// /api/auth). Handlers check the identity themselves so payloads are
// validated first.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/profile", h.ServeProfile)
	r.Patch("/profile", h.HandleUpdate)
	r.Post("/change-password", h.HandleChangePassword)
}
