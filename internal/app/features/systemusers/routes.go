package systemusers

import "github.com/go-chi/chi/v5"

// MountRoutes registers the admin user routes on r (mounted at /api/auth).
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/users", h.ServeList)
	r.Patch("/users/{id}/role", h.HandleRoleChange)
}
