package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analysis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analysis", func(r chi.Router) {
		r.Get("/{symbol}", h.HandleAnalyze)
		r.Post("/batch", h.HandleBatchAnalyze)
	})
	r.Route("/opportunities", func(r chi.Router) {
		r.Get("/{signal}", h.HandleOpportunities)
	})
}
