// Package handlers provides HTTP handlers for portfolio management.
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
)

// Handler handles portfolio HTTP requests
type Handler struct {
	portfolios *portfolio.Service
	log        zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(portfolios *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		portfolios: portfolios,
		log:        log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleGenerate)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleReset)
		r.Post("/{id}/refresh", h.HandleRefresh)
		r.Post("/{id}/convert", h.HandleConvert)
		r.Put("/{id}/holdings/{assetID}", h.HandleUpdateHolding)
	})
}

// GenerateRequest represents a request to build a new portfolio.
type GenerateRequest struct {
	Name    string  `json:"name"`
	Profile string  `json:"profile"`
	Capital float64 `json:"capital"`
}

// ConvertRequest represents a request to switch a portfolio's risk profile.
type ConvertRequest struct {
	Profile string `json:"profile"`
}

// UpdateHoldingRequest represents a manual position edit.
type UpdateHoldingRequest struct {
	Quantity float64 `json:"quantity"`
}

// HandleGenerate handles POST /api/portfolios
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Capital <= 0 {
		http.Error(w, "capital must be greater than 0", http.StatusBadRequest)
		return
	}
	profile, err := domain.ParseRiskProfile(req.Profile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.portfolios.Generate(r.Context(), req.Name, profile, req.Capital)
	if err != nil {
		h.log.Error().Err(err).Str("name", req.Name).Msg("Failed to generate portfolio")
		http.Error(w, "Failed to generate portfolio", http.StatusBadGateway)
		return
	}

	h.writePortfolio(w, http.StatusCreated, p)
}

// HandleList handles GET /api/portfolios
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.portfolios.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list portfolios")
		http.Error(w, "Failed to list portfolios", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"portfolios": portfolios,
			"count":      len(portfolios),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleGet handles GET /api/portfolios/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolios.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.notFoundOrError(w, err, "Failed to load portfolio")
		return
	}
	h.writePortfolio(w, http.StatusOK, p)
}

// HandleRefresh handles POST /api/portfolios/{id}/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolios.RefreshPrices(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.notFoundOrError(w, err, "Failed to refresh portfolio")
		return
	}
	h.writePortfolio(w, http.StatusOK, p)
}

// HandleConvert handles POST /api/portfolios/{id}/convert
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, err := domain.ParseRiskProfile(req.Profile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.portfolios.ConvertProfile(r.Context(), chi.URLParam(r, "id"), profile)
	if err != nil {
		h.notFoundOrError(w, err, "Failed to convert portfolio")
		return
	}
	h.writePortfolio(w, http.StatusOK, p)
}

// HandleUpdateHolding handles PUT /api/portfolios/{id}/holdings/{assetID}
func (h *Handler) HandleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	var req UpdateHoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity < 0 {
		http.Error(w, "quantity must be non-negative", http.StatusBadRequest)
		return
	}

	p, err := h.portfolios.UpdateHolding(chi.URLParam(r, "id"), chi.URLParam(r, "assetID"), req.Quantity)
	if err != nil {
		h.notFoundOrError(w, err, "Failed to update holding")
		return
	}
	h.writePortfolio(w, http.StatusOK, p)
}

// HandleReset handles DELETE /api/portfolios/{id}
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolios.Reset(chi.URLParam(r, "id")); err != nil {
		h.notFoundOrError(w, err, "Failed to reset portfolio")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writePortfolio(w http.ResponseWriter, status int, p *domain.Portfolio) {
	response := map[string]interface{}{
		"data": p,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, status, response)
}

func (h *Handler) notFoundOrError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, domain.ErrInvalidRiskProfile) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
