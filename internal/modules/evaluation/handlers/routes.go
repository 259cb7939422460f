package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes mounts the evaluation API under /api/v1
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)

		r.Group(func(r chi.Router) {
			// Large batches take a while
			r.Use(middleware.Timeout(120 * time.Second))

			r.Post("/evaluate/batch", h.HandleEvaluateBatch)
			r.Post("/evaluate/single", h.HandleEvaluateSingle)
			r.Post("/simulate/batch", h.HandleSimulateBatch)
		})
	})
}
