// Package coingecko adapts a CoinGecko-style markets API to the
// domain's AssetSnapshot, with a persistent cache between the engine
// and the rate-limited provider.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
)

const topMarketsCacheKey = "top_markets"

// Config holds client configuration.
type Config struct {
	BaseURL string
	APIKey  string // optional; sent as the demo API key header when set
	Limit   int    // how many assets per fetch
}

// Client fetches market snapshots.
type Client struct {
	baseURL string
	apiKey  string
	limit   int
	client  *http.Client
	cache   *SnapshotCache
	log     zerolog.Logger
}

// NewClient creates a new CoinGecko client.
// cache is optional - if nil, caching is disabled
func NewClient(cfg Config, cache *SnapshotCache, log zerolog.Logger) *Client {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 100
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		limit:   limit,
		client:  &http.Client{Timeout: 15 * time.Second},
		cache:   cache,
		log:     log.With().Str("client", "coingecko").Logger(),
	}
}

// marketRow is the provider's wire format for one market entry.
type marketRow struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"current_price"`
	MarketCap float64 `json:"market_cap"`
	Volume    float64 `json:"total_volume"`
	Change24h float64 `json:"price_change_percentage_24h_in_currency"`
	Change7d  float64 `json:"price_change_percentage_7d_in_currency"`
	Sparkline *struct {
		Price []float64 `json:"price"`
	} `json:"sparkline_in_7d"`
}

// TopMarkets returns the top assets by market cap with 7-day sparkline.
// Fresh cache wins; a provider failure falls back to stale cache.
func (c *Client) TopMarkets(ctx context.Context) ([]domain.AssetSnapshot, error) {
	if c.cache != nil {
		snaps, err := c.cache.GetIfFresh(topMarketsCacheKey)
		if err == nil && snaps != nil {
			c.log.Debug().Int("assets", len(snaps)).Msg("Cache hit")
			return snaps, nil
		}
	}

	snaps, err := c.fetchTopMarkets(ctx)
	if err != nil {
		if stale, ok := c.staleFromCache(); ok {
			c.log.Warn().Err(err).Int("assets", len(stale)).
				Msg("Provider failed, serving stale cached snapshots")
			return stale, nil
		}
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Store(topMarketsCacheKey, snaps); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache snapshot batch")
		}
	}

	c.log.Info().Int("assets", len(snaps)).Msg("Fetched market snapshots")
	return snaps, nil
}

func (c *Client) fetchTopMarkets(ctx context.Context) ([]domain.AssetSnapshot, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.limit))
	q.Set("page", "1")
	q.Set("sparkline", "true")
	q.Set("price_change_percentage", "24h,7d")

	reqURL := c.baseURL + "/coins/markets?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("markets request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("markets request returned status %d", resp.StatusCode)
	}

	var rows []marketRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to parse markets response: %w", err)
	}

	now := time.Now().UTC()
	snaps := make([]domain.AssetSnapshot, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" || row.Price <= 0 {
			continue
		}
		snap := domain.AssetSnapshot{
			ID:        row.ID,
			Symbol:    strings.ToUpper(row.Symbol),
			Name:      row.Name,
			Price:     row.Price,
			Change24h: row.Change24h,
			Change7d:  row.Change7d,
			MarketCap: row.MarketCap,
			Volume24h: row.Volume,
			FetchedAt: now,
		}
		if row.Sparkline != nil {
			snap.Sparkline7d = row.Sparkline.Price
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (c *Client) staleFromCache() ([]domain.AssetSnapshot, bool) {
	if c.cache == nil {
		return nil, false
	}
	snaps, err := c.cache.GetStale(topMarketsCacheKey)
	if err != nil || len(snaps) == 0 {
		return nil, false
	}
	return snaps, true
}
