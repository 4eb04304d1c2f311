package coingecko

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const marketsFixture = `[
	{
		"id": "bitcoin",
		"symbol": "btc",
		"name": "Bitcoin",
		"current_price": 50000,
		"market_cap": 2000000000000,
		"total_volume": 100000000000,
		"price_change_percentage_24h_in_currency": -2.5,
		"price_change_percentage_7d_in_currency": 4.1,
		"sparkline_in_7d": {"price": [49000, 49500, 50000]}
	},
	{
		"id": "ethereum",
		"symbol": "eth",
		"name": "Ethereum",
		"current_price": 3000,
		"market_cap": 400000000000,
		"total_volume": 50000000000,
		"price_change_percentage_24h_in_currency": 1.2,
		"price_change_percentage_7d_in_currency": -3.0
	},
	{
		"id": "broken",
		"symbol": "brk",
		"name": "Broken",
		"current_price": 0
	}
]`

func newTestCache(t *testing.T, ttl time.Duration) *SnapshotCache {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cache := NewSnapshotCache(db, ttl, zerolog.Nop())
	require.NoError(t, cache.EnsureSchema())
	return cache
}

func TestTopMarketsMapsRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "true", r.URL.Query().Get("sparkline"))
		_, _ = w.Write([]byte(marketsFixture))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Limit: 10}, nil, zerolog.Nop())

	snaps, err := c.TopMarkets(context.Background())
	require.NoError(t, err)

	// The zero-price row is dropped.
	require.Len(t, snaps, 2)

	btc := snaps[0]
	assert.Equal(t, "bitcoin", btc.ID)
	assert.Equal(t, "BTC", btc.Symbol)
	assert.Equal(t, 50000.0, btc.Price)
	assert.Equal(t, -2.5, btc.Change24h)
	assert.Equal(t, 4.1, btc.Change7d)
	assert.Equal(t, []float64{49000, 49500, 50000}, btc.Sparkline7d)
	assert.False(t, btc.FetchedAt.IsZero())

	// Missing sparkline stays nil rather than empty.
	assert.Nil(t, snaps[1].Sparkline7d)
}

func TestTopMarketsServesFreshCache(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(marketsFixture))
	}))
	defer srv.Close()

	cache := newTestCache(t, time.Hour)
	c := NewClient(Config{BaseURL: srv.URL, Limit: 10}, cache, zerolog.Nop())

	_, err := c.TopMarkets(context.Background())
	require.NoError(t, err)
	snaps, err := c.TopMarkets(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, requests, "second call should be served from cache")
	assert.Len(t, snaps, 2)
}

func TestTopMarketsStaleFallback(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(marketsFixture))
	}))
	defer srv.Close()

	// Zero TTL: every entry is immediately stale, so the second call
	// must hit the provider again.
	cache := newTestCache(t, 0)
	c := NewClient(Config{BaseURL: srv.URL, Limit: 10}, cache, zerolog.Nop())

	_, err := c.TopMarkets(context.Background())
	require.NoError(t, err)

	healthy = false
	snaps, err := c.TopMarkets(context.Background())
	require.NoError(t, err)
	assert.Len(t, snaps, 2, "stale cache should cover a provider outage")
}

func TestTopMarketsErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Limit: 10}, nil, zerolog.Nop())

	_, err := c.TopMarkets(context.Background())
	require.Error(t, err)
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t, time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(marketsFixture))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Limit: 10}, nil, zerolog.Nop())
	snaps, err := c.TopMarkets(context.Background())
	require.NoError(t, err)

	require.NoError(t, cache.Store("top_markets", snaps))

	got, err := cache.GetIfFresh("top_markets")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, snaps[0].ID, got[0].ID)
	assert.Equal(t, snaps[0].Sparkline7d, got[0].Sparkline7d)

	stale, err := cache.GetStale("top_markets")
	require.NoError(t, err)
	assert.Len(t, stale, 2)
}
