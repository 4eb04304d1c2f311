package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/internal/modules/allocation"
	"github.com/aristath/cryptofolio/internal/modules/portfolio"
	"github.com/aristath/cryptofolio/internal/modules/sentiment"
)

type fakeMarkets struct {
	universe []domain.AssetSnapshot
}

func (f *fakeMarkets) TopMarkets(_ context.Context) ([]domain.AssetSnapshot, error) {
	out := make([]domain.AssetSnapshot, len(f.universe))
	copy(out, f.universe)
	return out, nil
}

func testUniverse() []domain.AssetSnapshot {
	return []domain.AssetSnapshot{
		{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Price: 50000, Change24h: 1, Change7d: 2, MarketCap: 2000e9, Volume24h: 100e9},
		{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Price: 3000, Change24h: 2, Change7d: 3, MarketCap: 400e9, Volume24h: 50e9},
		{ID: "usd-coin", Symbol: "USDC", Name: "USD Coin", Price: 1, MarketCap: 40e9, Volume24h: 5e9},
	}
}

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := portfolio.NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.EnsureSchema())

	svc := portfolio.NewService(
		zerolog.Nop(),
		repo,
		&fakeMarkets{universe: testUniverse()},
		sentiment.NewScorer(zerolog.Nop()),
		allocation.NewEngine(zerolog.Nop()),
	)

	r := chi.NewRouter()
	NewHandler(svc, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func generatePortfolio(t *testing.T, r *chi.Mux) domain.Portfolio {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/portfolios/",
		strings.NewReader(`{"name":"main","profile":"balanced","capital":10000}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data domain.Portfolio `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data
}

func TestGeneratePortfolio(t *testing.T) {
	r := newTestRouter(t)

	p := generatePortfolio(t, r)
	assert.Equal(t, "main", p.Name)
	assert.Equal(t, domain.ProfileBalanced, p.Profile)
	assert.InDelta(t, 10000, p.TotalValue, 0.01)
	assert.NotEmpty(t, p.Assets)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"profile":"balanced","capital":10000}`},
		{"zero capital", `{"name":"x","profile":"balanced","capital":0}`},
		{"unknown profile", `{"name":"x","profile":"yolo","capital":10000}`},
		{"garbage body", `{nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/portfolios/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetPortfolio(t *testing.T) {
	r := newTestRouter(t)
	p := generatePortfolio(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/portfolios/"+p.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data domain.Portfolio `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, p.ID, body.Data.ID)
}

func TestGetMissingPortfolioReturns404(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/portfolios/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConvertPortfolioProfile(t *testing.T) {
	r := newTestRouter(t)
	p := generatePortfolio(t, r)

	req := httptest.NewRequest(http.MethodPost, "/portfolios/"+p.ID+"/convert",
		strings.NewReader(`{"profile":"conservative"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data domain.Portfolio `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.ProfileConservative, body.Data.Profile)
}

func TestResetPortfolio(t *testing.T) {
	r := newTestRouter(t)
	p := generatePortfolio(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/portfolios/"+p.ID, nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/portfolios/"+p.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPortfolios(t *testing.T) {
	r := newTestRouter(t)
	generatePortfolio(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/portfolios/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Count)
}

func TestUpdateHolding(t *testing.T) {
	r := newTestRouter(t)
	p := generatePortfolio(t, r)

	req := httptest.NewRequest(http.MethodPut, "/portfolios/"+p.ID+"/holdings/bitcoin",
		strings.NewReader(`{"quantity":0}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data domain.Portfolio `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	for _, a := range body.Data.Assets {
		assert.NotEqual(t, "bitcoin", a.ID)
	}
}

func TestUpdateHoldingRejectsNegativeQuantity(t *testing.T) {
	r := newTestRouter(t)
	p := generatePortfolio(t, r)

	req := httptest.NewRequest(http.MethodPut, "/portfolios/"+p.ID+"/holdings/bitcoin",
		strings.NewReader(`{"quantity":-1}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateHoldingMissingAssetReturns404(t *testing.T) {
	r := newTestRouter(t)
	p := generatePortfolio(t, r)

	req := httptest.NewRequest(http.MethodPut, "/portfolios/"+p.ID+"/holdings/dogecoin",
		strings.NewReader(`{"quantity":1}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
