// Package opportunities scans a candidate universe against the held
// portfolio and surfaces assets worth a look, each tagged with the
// category of the setup. The scanner recommends nothing by itself; it
// ranks and explains.
package opportunities

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/internal/modules/indicators"
)

// Category tags the kind of setup an opportunity represents.
type Category string

const (
	CategoryGem         Category = "gem"
	CategoryOversold    Category = "oversold"
	CategoryTrending    Category = "trending"
	CategoryReplacement Category = "replacement"
	CategoryDegenPlay   Category = "degen-play"
)

// Opportunity is one ranked scan hit.
type Opportunity struct {
	AssetID  string   `json:"asset_id"`
	Symbol   string   `json:"symbol"`
	Category Category `json:"category"`
	Score    float64  `json:"score"`   // ranking score, higher is better
	Quality  float64  `json:"quality"` // composite quality 0-100
	Reasons  []string `json:"reasons"`

	// ReplacesAssetID is set only for replacement opportunities.
	ReplacesAssetID string `json:"replaces_asset_id,omitempty"`
}

// Scan rule thresholds.
const (
	gemQualityFloor     = 70.0
	replacementEdge     = 15.0
	oversoldWeeklyDrop  = -15.0
	trendingDailyGain   = 5.0
	trendingWeeklyGain  = 10.0
	degenDailySwing     = 10.0
	maxResults          = 10
	defaultScanAcctSize = 10000.0
)

// Scanner ranks candidate assets against a portfolio.
type Scanner struct {
	log        zerolog.Logger
	indicators *indicators.Service
}

// NewScanner creates a new opportunity scanner
func NewScanner(log zerolog.Logger, ind *indicators.Service) *Scanner {
	return &Scanner{
		log:        log.With().Str("service", "opportunities").Logger(),
		indicators: ind,
	}
}

// Scan evaluates the candidate universe against the portfolio and
// returns the top opportunities, best first. Held assets are never
// re-surfaced except as the replaced side of a replacement. Stables are
// skipped outright.
func (s *Scanner) Scan(candidates []domain.AssetSnapshot, p domain.Portfolio) []Opportunity {
	held := make(map[string]domain.PortfolioAsset, len(p.Assets))
	for _, a := range p.Assets {
		held[a.ID] = a
	}

	// Quality of the held crypto book, for the replacement rule.
	heldQuality := make(map[string]float64, len(p.Assets))
	for _, a := range p.CryptoAssets() {
		r := s.indicators.Compute(a.AssetSnapshot, defaultScanAcctSize)
		heldQuality[a.ID] = r.Quality.Score
	}

	var out []Opportunity
	for _, snap := range candidates {
		if snap.IsStable() {
			continue
		}
		if _, ok := held[snap.ID]; ok {
			continue
		}

		r := s.indicators.Compute(snap, defaultScanAcctSize)
		if opp, ok := s.classify(snap, r, p, heldQuality); ok {
			out = append(out, opp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > maxResults {
		out = out[:maxResults]
	}

	s.log.Debug().
		Int("candidates", len(candidates)).
		Int("hits", len(out)).
		Msg("Scanned opportunity universe")

	return out
}

// classify applies the category rules in priority order; the first
// match wins. Returns false when the candidate is nothing special.
func (s *Scanner) classify(
	snap domain.AssetSnapshot,
	r indicators.Result,
	p domain.Portfolio,
	heldQuality map[string]float64,
) (Opportunity, bool) {
	quality := r.Quality.Score

	if id, edge, ok := s.replacementTarget(snap, quality, p, heldQuality); ok {
		return Opportunity{
			AssetID:         snap.ID,
			Symbol:          snap.Symbol,
			Category:        CategoryReplacement,
			Quality:         quality,
			Score:           quality + edge,
			ReplacesAssetID: id,
			Reasons: []string{
				fmt.Sprintf("Quality %.0f beats a held same-tier asset by %.0f points", quality, edge),
			},
		}, true
	}

	if oversold, reason := isOversold(snap, r); oversold && quality >= 50 {
		return Opportunity{
			AssetID:  snap.ID,
			Symbol:   snap.Symbol,
			Category: CategoryOversold,
			Quality:  quality,
			Score:    quality + 20,
			Reasons:  []string{reason, "Quality holds up despite the drawdown"},
		}, true
	}

	if quality >= gemQualityFloor && snap.MarketCap < indicators.LargeCapFloor {
		return Opportunity{
			AssetID:  snap.ID,
			Symbol:   snap.Symbol,
			Category: CategoryGem,
			Quality:  quality,
			Score:    quality + 10,
			Reasons: []string{
				fmt.Sprintf("High quality (%.0f) below the large-cap radar", quality),
			},
		}, true
	}

	if snap.Change24h > trendingDailyGain && snap.Change7d > trendingWeeklyGain &&
		r.VolumeTrend != indicators.VolumeThin {
		return Opportunity{
			AssetID:  snap.ID,
			Symbol:   snap.Symbol,
			Category: CategoryTrending,
			Quality:  quality,
			Score:    quality + snap.Change7d/2,
			Reasons: []string{
				fmt.Sprintf("Up %.1f%% on the day, %.1f%% on the week with real volume",
					snap.Change24h, snap.Change7d),
			},
		}, true
	}

	// Degen plays only surface for the profiles that asked for them.
	if (p.Profile == domain.ProfileAggressive || p.Profile == domain.ProfileDegen) &&
		snap.MarketCap < indicators.MidCapFloor &&
		r.VolumeTrend == indicators.VolumeElevated &&
		abs(snap.Change24h) > degenDailySwing {
		return Opportunity{
			AssetID:  snap.ID,
			Symbol:   snap.Symbol,
			Category: CategoryDegenPlay,
			Quality:  quality,
			Score:    quality,
			Reasons: []string{
				fmt.Sprintf("Sub-1B cap moving %.1f%% on elevated turnover; lottery ticket, size accordingly",
					snap.Change24h),
			},
		}, true
	}

	return Opportunity{}, false
}

// replacementTarget finds a held same-tier asset the candidate clearly
// outclasses. Returns the weakest such holding.
func (s *Scanner) replacementTarget(
	snap domain.AssetSnapshot,
	quality float64,
	p domain.Portfolio,
	heldQuality map[string]float64,
) (string, float64, bool) {
	bestID := ""
	bestEdge := 0.0
	for _, a := range p.CryptoAssets() {
		if capTier(a.MarketCap) != capTier(snap.MarketCap) {
			continue
		}
		edge := quality - heldQuality[a.ID]
		if edge >= replacementEdge && edge > bestEdge {
			bestID = a.ID
			bestEdge = edge
		}
	}
	return bestID, bestEdge, bestID != ""
}

func isOversold(snap domain.AssetSnapshot, r indicators.Result) (bool, string) {
	if r.RSI != nil && *r.RSI < indicators.RSIOversold {
		return true, fmt.Sprintf("RSI at %.0f, below the oversold band", *r.RSI)
	}
	if snap.Change7d < oversoldWeeklyDrop {
		return true, fmt.Sprintf("Down %.1f%% on the week", snap.Change7d)
	}
	return false, ""
}

// capTier buckets a market cap into the tier boundaries used by the
// indicator service.
func capTier(mcap float64) int {
	switch {
	case mcap >= indicators.MegaCapFloor:
		return 4
	case mcap >= indicators.LargeCapFloor:
		return 3
	case mcap >= indicators.MidCapFloor:
		return 2
	case mcap >= indicators.SmallCapFloor:
		return 1
	default:
		return 0
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
