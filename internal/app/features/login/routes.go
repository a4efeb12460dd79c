package login

import (
	"net/http"

	"github.com/dalemusser/automationhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers register and login on r, which bootstrap mounts at
// /api/auth alongside the profile and user-management routes. A nil limiter
// disables rate limiting.
func MountRoutes(r chi.Router, h *Handler, limiter *ratelimit.Limiter) {
	r.Group(func(pr chi.Router) {
		if limiter != nil {
			pr.Use(limiter.Middleware("register", h.Log))
		}
		pr.Post("/register", h.HandleRegister)
	})

	r.Group(func(pr chi.Router) {
		if limiter != nil {
			pr.Use(limiter.Middleware("login", h.Log, func(req *http.Request) {
				h.AuditLog.LoginFailedRateLimit(req.Context(), req)
			}))
		}
		pr.Post("/login", h.HandleLogin)
	})
}
