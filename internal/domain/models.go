// Package domain holds the shared data model of the decision engine.
// Everything here is plain data: no I/O, no rendering, no clock access.
package domain

import "time"

// stableSymbols is the fixed set of symbols treated as the price-stable
// reserve. Detection is by symbol, not by price behaviour.
var stableSymbols = map[string]bool{
	"USDT":  true,
	"USDC":  true,
	"DAI":   true,
	"TUSD":  true,
	"BUSD":  true,
	"FDUSD": true,
	"USDE":  true,
	"USDS":  true,
}

// AssetSnapshot is immutable point-in-time market data for one asset.
// Created by the data-provider adapter, never mutated; a refresh
// supersedes it with a newer snapshot.
type AssetSnapshot struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Change24h   float64   `json:"change_24h"`    // percent, signed
	Change7d    float64   `json:"change_7d"`     // percent, signed
	MarketCap   float64   `json:"market_cap"`    // non-negative
	Volume24h   float64   `json:"volume_24h"`    // non-negative
	Sparkline7d []float64 `json:"sparkline_7d"`  // chronological, may be empty
	FetchedAt   time.Time `json:"fetched_at"`
}

// IsStable reports whether the asset is the designated stable reserve.
func (s AssetSnapshot) IsStable() bool {
	return stableSymbols[s.Symbol]
}

// Turnover is the 24h volume relative to market cap. Used as the
// deterministic volume baseline (there is no historical volume series
// in a snapshot, so turnover stands in for a trailing average).
func (s AssetSnapshot) Turnover() float64 {
	if s.MarketCap <= 0 {
		return 0
	}
	return s.Volume24h / s.MarketCap
}

// PortfolioAsset is a snapshot plus position data.
type PortfolioAsset struct {
	AssetSnapshot
	Allocation    float64 `json:"allocation"`      // percent of portfolio, 0-100
	Quantity      float64 `json:"quantity"`        // held units, non-negative
	Value         float64 `json:"value"`           // quantity * current price
	CostBasis     float64 `json:"cost_basis"`      // total acquisition cost
	ProfitLoss    float64 `json:"profit_loss"`     // value - cost basis
	ProfitLossPct float64 `json:"profit_loss_pct"` // relative to cost basis
}

// Revalue recomputes the derived position fields from the current price.
func (a *PortfolioAsset) Revalue() {
	a.Value = a.Quantity * a.Price
	a.ProfitLoss = a.Value - a.CostBasis
	if a.CostBasis > 0 {
		a.ProfitLossPct = a.ProfitLoss / a.CostBasis * 100
	} else {
		a.ProfitLossPct = 0
	}
}

// AllocationTolerance is the floating tolerance on the portfolio
// allocation-sum invariant (sum of allocations == 100 within this).
const AllocationTolerance = 0.01

// Portfolio is the user's simulated portfolio.
type Portfolio struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Profile         RiskProfile      `json:"profile"`
	Assets          []PortfolioAsset `json:"assets"` // ordered, unique IDs
	StartingCapital float64          `json:"starting_capital"`
	TotalValue      float64          `json:"total_value"`
	ProfitLoss      float64          `json:"profit_loss"`
	ProfitLossPct   float64          `json:"profit_loss_pct"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Recalculate refreshes per-asset values, allocations and the portfolio
// aggregates. Allocations are always recomputed, never hand-edited.
func (p *Portfolio) Recalculate() {
	total := 0.0
	for i := range p.Assets {
		p.Assets[i].Revalue()
		total += p.Assets[i].Value
	}
	p.TotalValue = total
	for i := range p.Assets {
		if total > 0 {
			p.Assets[i].Allocation = p.Assets[i].Value / total * 100
		} else {
			p.Assets[i].Allocation = 0
		}
	}
	p.ProfitLoss = total - p.StartingCapital
	if p.StartingCapital > 0 {
		p.ProfitLossPct = p.ProfitLoss / p.StartingCapital * 100
	} else {
		p.ProfitLossPct = 0
	}
}

// CryptoAssets returns the held assets excluding the stable reserve.
func (p *Portfolio) CryptoAssets() []PortfolioAsset {
	out := make([]PortfolioAsset, 0, len(p.Assets))
	for _, a := range p.Assets {
		if !a.IsStable() {
			out = append(out, a)
		}
	}
	return out
}

// MarketSentiment is the market-wide sentiment object. It is a pure
// function's output over a snapshot batch; callers may cache it for a
// bounded duration but it has no lifecycle of its own.
type MarketSentiment struct {
	Overall    SentimentClass `json:"overall"`
	Confidence float64        `json:"confidence"` // 0-100

	FearGreedIndex   float64 `json:"fear_greed_index"`     // 0-100
	BTCDominance     float64 `json:"btc_dominance"`        // percent
	AltcoinSeasonIdx float64 `json:"altcoin_season_index"` // 0-100
	MarketMomentum   float64 `json:"market_momentum"`      // -100..100
	VolatilityIndex  float64 `json:"volatility_index"`     // 0-100

	IsAltcoinSeason bool      `json:"is_altcoin_season"`
	IsBullMarket    bool      `json:"is_bull_market"`
	IsBearMarket    bool      `json:"is_bear_market"`
	RiskLevel       RiskLevel `json:"risk_level"`

	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	KeyMetrics      []string `json:"key_metrics"`
}

// AllocationAdjustment is one audit record of the allocation pipeline:
// a named step changed one asset's percentage.
type AllocationAdjustment struct {
	AssetID string  `json:"asset_id"`
	From    float64 `json:"from"`
	To      float64 `json:"to"`
	Reason  string  `json:"reason"`
}

// AllocationPlan is the output of the allocation engine. Produced fresh
// per (assets, profile, sentiment) triple and never mutated afterwards.
type AllocationPlan struct {
	Profile         RiskProfile            `json:"profile"`
	Base            map[string]float64     `json:"base"`     // asset id -> percent
	Adjusted        map[string]float64     `json:"adjusted"` // asset id -> percent, sums to 100
	Adjustments     []AllocationAdjustment `json:"adjustments"`
	RiskLevel       RiskLevel              `json:"risk_level"`
	Recommendations []string               `json:"recommendations"`
}

// AssetDrift is the per-asset detail of a rebalancing recommendation.
type AssetDrift struct {
	AssetID    string    `json:"asset_id"`
	Symbol     string    `json:"symbol"`
	CurrentPct float64   `json:"current_pct"`
	TargetPct  float64   `json:"target_pct"`
	Drift      float64   `json:"drift"` // absolute difference
	Action     TradeSide `json:"action"`
	Amount     float64   `json:"amount"` // notional, portfolio currency
}

// RebalancingRecommendation classifies how far the live allocation has
// drifted from the profile-derived target and what to do about it.
type RebalancingRecommendation struct {
	Action           RebalanceAction `json:"action"`
	Urgency          Urgency         `json:"urgency"`
	AverageDrift     float64         `json:"average_drift"` // percent
	Assets           []AssetDrift    `json:"assets"`
	NextReviewDate   time.Time       `json:"next_review_date"`
	Reason           string          `json:"reason"`
	SuggestedActions []string        `json:"suggested_actions"`
}

// StopLossRecommendation is the per-asset stop-loss advice for a held
// non-stable asset.
type StopLossRecommendation struct {
	AssetID         string       `json:"asset_id"`
	Symbol          string       `json:"symbol"`
	StopPrice       float64      `json:"stop_price"`
	StopLossPct     float64      `json:"stop_loss_pct"` // distance below current, 5-50
	Urgency         Urgency      `json:"urgency"`
	RiskCategory    RiskCategory `json:"risk_category"`
	Reason          string       `json:"reason"`
	SuggestedAction string       `json:"suggested_action"`
}
