// Package handlers provides HTTP handlers for rebalancing operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kpetrou/signalfolio/internal/domain"
	"github.com/kpetrou/signalfolio/internal/modules/rebalancing"
)

// Handler handles rebalancing HTTP requests
type Handler struct {
	service *rebalancing.Service
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(
	service *rebalancing.Service,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

// HandleReport handles GET /api/rebalancing/report?profile=moderate
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	profile := domain.RiskProfile(strings.ToLower(r.URL.Query().Get("profile")))

	report, err := h.service.AnalyzeRebalancing(r.Context(), profile)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidConfiguration) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Rebalancing analysis failed")
		h.writeError(w, http.StatusInternalServerError, "rebalancing analysis failed")
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
