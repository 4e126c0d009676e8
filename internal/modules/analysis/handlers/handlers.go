// Package handlers provides HTTP handlers for analysis operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kpetrou/signalfolio/internal/domain"
	"github.com/kpetrou/signalfolio/internal/modules/analysis"
)

const defaultOpportunityLimit = 10

// Handler handles analysis HTTP requests
type Handler struct {
	service *analysis.Service
	log     zerolog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(
	service *analysis.Service,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// HandleAnalyze handles GET /api/analysis/{symbol}
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	result, err := h.service.Analyze(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Analysis failed")
		h.writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// batchRequest is the body of POST /api/analysis/batch
type batchRequest struct {
	Symbols []string `json:"symbols"`
}

// HandleBatchAnalyze handles POST /api/analysis/batch
func (h *Handler) HandleBatchAnalyze(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Symbols) == 0 {
		h.writeError(w, http.StatusBadRequest, "symbols list is required")
		return
	}

	symbols := make([]string, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	analyses := h.service.BatchAnalyze(r.Context(), symbols)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"requested": len(symbols),
		"analyzed":  len(analyses),
		"results":   analyses,
	})
}

// HandleOpportunities handles GET /api/opportunities/{signal}?symbols=A,B&limit=10
func (h *Handler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	signal := domain.Signal(strings.ToLower(chi.URLParam(r, "signal")))

	symbolsParam := r.URL.Query().Get("symbols")
	if symbolsParam == "" {
		h.writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}
	var symbols []string
	for _, s := range strings.Split(symbolsParam, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	limit := defaultOpportunityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	ranked, err := h.service.Opportunities(r.Context(), symbols, signal, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidConfiguration) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("signal", string(signal)).Msg("Opportunity scan failed")
		h.writeError(w, http.StatusInternalServerError, "opportunity scan failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"signal":        signal,
		"count":         len(ranked),
		"opportunities": ranked,
	})
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
