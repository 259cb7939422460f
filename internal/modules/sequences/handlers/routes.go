package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all sequence generation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sequences", func(r chi.Router) {
		r.Post("/generate", h.HandleGenerate)
		r.Post("/filter", h.HandleFilter)
		r.Get("/info", h.HandleGetInfo)
	})
}
