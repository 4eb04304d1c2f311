// Package handlers provides HTTP handlers for the opportunity scanner.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/internal/modules/opportunities"
	"github.com/aristath/cryptofolio/internal/modules/portfolio"
)

// MarketDataProvider supplies the candidate universe to scan.
type MarketDataProvider interface {
	TopMarkets(ctx context.Context) ([]domain.AssetSnapshot, error)
}

// Handler handles opportunity scan HTTP requests
type Handler struct {
	portfolios *portfolio.Service
	markets    MarketDataProvider
	scanner    *opportunities.Scanner
	log        zerolog.Logger
}

// NewHandler creates a new opportunities handler
func NewHandler(portfolios *portfolio.Service, markets MarketDataProvider, scanner *opportunities.Scanner, log zerolog.Logger) *Handler {
	return &Handler{
		portfolios: portfolios,
		markets:    markets,
		scanner:    scanner,
		log:        log.With().Str("handler", "opportunities").Logger(),
	}
}

// RegisterRoutes registers opportunity routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/opportunities", h.HandleScan)
}

// HandleScan handles GET /api/portfolios/{id}/opportunities
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
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

	candidates, err := h.markets.TopMarkets(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch markets")
		http.Error(w, "Market data unavailable", http.StatusBadGateway)
		return
	}

	found := h.scanner.Scan(candidates, *p)

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"opportunities": found,
			"count":         len(found),
		},
		"metadata": map[string]interface{}{
			"portfolio_id": p.ID,
			"profile":      p.Profile,
			"candidates":   len(candidates),
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
