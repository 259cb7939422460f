package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all planning routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/planning", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Get("/best", h.HandleBest)
		r.Post("/batch", h.HandleBatch)

		// Single persisted configuration
		r.Get("/config", h.HandleGetConfig)
		r.Put("/config", h.HandleUpdateConfig)
		r.Delete("/config", h.HandleResetConfig)
		r.Post("/config/validate", h.HandleValidateConfig)

		r.Get("/stream", h.HandleStream)
	})
}
