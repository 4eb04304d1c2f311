// Package handlers provides HTTP handlers for market sentiment.
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
	"github.com/aristath/cryptofolio/internal/modules/sentiment"
)

// MarketDataProvider supplies the asset universe to score.
type MarketDataProvider interface {
	TopMarkets(ctx context.Context) ([]domain.AssetSnapshot, error)
}

// Handler handles sentiment HTTP requests
type Handler struct {
	markets MarketDataProvider
	scorer  *sentiment.Scorer
	log     zerolog.Logger
}

// NewHandler creates a new sentiment handler
func NewHandler(markets MarketDataProvider, scorer *sentiment.Scorer, log zerolog.Logger) *Handler {
	return &Handler{
		markets: markets,
		scorer:  scorer,
		log:     log.With().Str("handler", "sentiment").Logger(),
	}
}

// RegisterRoutes registers sentiment routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sentiment", h.HandleGetSentiment)
}

// HandleGetSentiment handles GET /api/sentiment
func (h *Handler) HandleGetSentiment(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.markets.TopMarkets(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch markets")
		http.Error(w, "Market data unavailable", http.StatusBadGateway)
		return
	}

	ms, err := h.scorer.Score(snaps)
	if err != nil {
		if errors.Is(err, domain.ErrMissingBenchmarkAsset) {
			h.log.Warn().Err(err).Msg("Universe missing benchmark assets")
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.log.Error().Err(err).Msg("Sentiment scoring failed")
		http.Error(w, "Sentiment scoring failed", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": ms,
		"metadata": map[string]interface{}{
			"assets":    len(snaps),
			"timestamp": time.Now().Format(time.RFC3339),
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
