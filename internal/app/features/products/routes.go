package products

import "github.com/go-chi/chi/v5"

// Routes mounts the product API (at /api/products).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/category/{category}", h.ServeByCategory)
	r.Get("/search/{query}", h.ServeSearch)
	r.Get("/{id}", h.ServeProduct)

	r.Post("/", h.HandleCreate)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)

	return r
}
