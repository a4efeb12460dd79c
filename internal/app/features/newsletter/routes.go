package newsletter

import (
	"github.com/dalemusser/automationhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the newsletter API (at /api/newsletter). limiter guards
// subscribe; nil disables limiting.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware("newsletter", h.Log))
		}
		r.Post("/subscribe", h.HandleSubscribe)
	})
	r.Get("/verify/{token}", h.HandleVerify)
	r.Post("/unsubscribe", h.HandleUnsubscribe)
	r.Patch("/preferences", h.HandlePreferences)

	r.Get("/subscribers", h.ServeSubscribers)
	r.Post("/send", h.HandleSend)

	return r
}
