package articles

import "github.com/go-chi/chi/v5"

// Routes mounts the article API (at /api/articles). Reads are public;
// write handlers check roles after validating the payload.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/category/{category}", h.ServeByCategory)
	r.Get("/tag/{tag}", h.ServeByTag)
	r.Get("/search/{query}", h.ServeSearch)
	r.Get("/{slug}", h.ServeBySlug)

	r.Post("/", h.HandleCreate)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	r.Post("/{id}/analytics", h.HandleAnalytics)

	return r
}
