// Package handlers provides HTTP handlers for allocation planning.
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
	"github.com/aristath/cryptofolio/internal/modules/allocation"
	"github.com/aristath/cryptofolio/internal/modules/sentiment"
)

// MarketDataProvider supplies the asset universe to allocate over.
type MarketDataProvider interface {
	TopMarkets(ctx context.Context) ([]domain.AssetSnapshot, error)
}

// Handler handles allocation HTTP requests
type Handler struct {
	markets MarketDataProvider
	scorer  *sentiment.Scorer
	engine  *allocation.Engine
	log     zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(markets MarketDataProvider, scorer *sentiment.Scorer, engine *allocation.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		markets: markets,
		scorer:  scorer,
		engine:  engine,
		log:     log.With().Str("handler", "allocation").Logger(),
	}
}

// RegisterRoutes registers allocation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/allocation/plan", h.HandleGetPlan)
}

// HandleGetPlan handles GET /api/allocation/plan?profile=balanced
func (h *Handler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	profile, err := domain.ParseRiskProfile(r.URL.Query().Get("profile"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snaps, err := h.markets.TopMarkets(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch markets")
		http.Error(w, "Market data unavailable", http.StatusBadGateway)
		return
	}

	ms, err := h.scorer.Score(snaps)
	if err != nil {
		if errors.Is(err, domain.ErrMissingBenchmarkAsset) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.log.Error().Err(err).Msg("Sentiment scoring failed")
		http.Error(w, "Sentiment scoring failed", http.StatusInternalServerError)
		return
	}

	plan, err := h.engine.BuildPlan(snaps, profile, ms)
	if err != nil {
		h.log.Error().Err(err).Str("profile", string(profile)).Msg("Failed to build allocation plan")
		http.Error(w, "Failed to build allocation plan", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": plan,
		"metadata": map[string]interface{}{
			"sentiment": ms.Overall,
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
