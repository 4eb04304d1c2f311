// Package handlers provides HTTP handlers for technical indicators.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/internal/modules/indicators"
)

// MarketDataProvider supplies the asset universe to analyze.
type MarketDataProvider interface {
	TopMarkets(ctx context.Context) ([]domain.AssetSnapshot, error)
}

// Handler handles indicator HTTP requests
type Handler struct {
	markets        MarketDataProvider
	indicators     *indicators.Service
	defaultCapital float64
	log            zerolog.Logger
}

// NewHandler creates a new indicators handler
func NewHandler(markets MarketDataProvider, ind *indicators.Service, defaultCapital float64, log zerolog.Logger) *Handler {
	return &Handler{
		markets:        markets,
		indicators:     ind,
		defaultCapital: defaultCapital,
		log:            log.With().Str("handler", "indicators").Logger(),
	}
}

// RegisterRoutes registers indicator routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/indicators", func(r chi.Router) {
		r.Get("/", h.HandleComputeAll)
		r.Get("/{assetID}", h.HandleComputeOne)
	})
}

// HandleComputeAll handles GET /api/indicators
func (h *Handler) HandleComputeAll(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.markets.TopMarkets(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch markets")
		http.Error(w, "Market data unavailable", http.StatusBadGateway)
		return
	}

	accountSize := h.accountSize(r)
	results := h.indicators.ComputeBatch(snaps, accountSize)

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"indicators": results,
			"count":      len(results),
		},
		"metadata": map[string]interface{}{
			"account_size": accountSize,
			"timestamp":    time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleComputeOne handles GET /api/indicators/{assetID}
func (h *Handler) HandleComputeOne(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")
	if assetID == "" {
		http.Error(w, "asset id is required", http.StatusBadRequest)
		return
	}

	snaps, err := h.markets.TopMarkets(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch markets")
		http.Error(w, "Market data unavailable", http.StatusBadGateway)
		return
	}

	for _, snap := range snaps {
		if snap.ID != assetID {
			continue
		}

		accountSize := h.accountSize(r)
		result := h.indicators.Compute(snap, accountSize)

		response := map[string]interface{}{
			"data": result,
			"metadata": map[string]interface{}{
				"account_size": accountSize,
				"timestamp":    time.Now().Format(time.RFC3339),
			},
		}
		h.writeJSON(w, http.StatusOK, response)
		return
	}

	http.Error(w, "asset not found in tracked universe", http.StatusNotFound)
}

// accountSize reads the optional account_size query parameter.
func (h *Handler) accountSize(r *http.Request) float64 {
	if raw := r.URL.Query().Get("account_size"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			return v
		}
	}
	return h.defaultCapital
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
