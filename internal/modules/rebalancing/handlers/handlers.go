// Package handlers provides HTTP handlers for rebalancing analysis.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/internal/modules/portfolio"
	"github.com/aristath/cryptofolio/internal/modules/rebalancing"
)

// Handler handles rebalancing HTTP requests
type Handler struct {
	portfolios *portfolio.Service
	analyzer   *rebalancing.Analyzer
	log        zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(portfolios *portfolio.Service, analyzer *rebalancing.Analyzer, log zerolog.Logger) *Handler {
	return &Handler{
		portfolios: portfolios,
		analyzer:   analyzer,
		log:        log.With().Str("handler", "rebalancing").Logger(),
	}
}

// RegisterRoutes registers rebalancing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/rebalancing", h.HandleAnalyze)
}

// HandleAnalyze handles GET /api/portfolios/{id}/rebalancing
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolios.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Portfolio not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to load portfolio")
		http.Error(w, "Failed to load portfolio", http.StatusInternalServerError)
		return
	}

	rec, err := h.analyzer.Analyze(*p, time.Now())
	if err != nil {
		h.log.Error().Err(err).Str("portfolio", p.ID).Msg("Rebalancing analysis failed")
		http.Error(w, "Rebalancing analysis failed", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": rec,
		"metadata": map[string]interface{}{
			"portfolio_id": p.ID,
			"profile":      p.Profile,
			"timestamp":    time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
