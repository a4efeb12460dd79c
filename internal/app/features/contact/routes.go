package contact

import (
	"github.com/dalemusser/automationhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the contact API (at /api/contact). limiter guards the public
// form; nil disables limiting.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware("contact", h.Log))
		}
		r.Post("/submit", h.HandleSubmit)
	})

	r.Get("/submissions", h.ServeSubmissions)
	r.Get("/submissions/{id}", h.ServeSubmission)
	r.Patch("/submissions/{id}/status", h.HandleStatus)
	r.Post("/submissions/{id}/notes", h.HandleNote)
	r.Post("/submissions/{id}/reply", h.HandleReply)

	return r
}
