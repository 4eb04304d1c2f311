// Package stoploss derives per-asset stop-loss levels for held
// non-stable positions. The distance starts from a profile base and is
// widened or tightened by volatility, market-cap tier, position size
// and weekly trend, then clamped to a sane range.
package stoploss

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
)

// baseStopPctTable is the starting stop distance per risk profile, in
// percent below the current price.
var baseStopPctTable = map[domain.RiskProfile]float64{
	domain.ProfileConservative: 8,
	domain.ProfileBalanced:     12,
	domain.ProfileAggressive:   18,
	domain.ProfileDegen:        25,
}

// Stop distance bounds after all multipliers.
const (
	minStopPct = 5.0
	maxStopPct = 50.0
)

// Market-cap tiers used to widen stops on thinner names.
const (
	smallCapThreshold = 1e9
	midCapThreshold   = 1e10
)

// Analyzer produces stop-loss recommendations.
type Analyzer struct {
	log zerolog.Logger
}

// NewAnalyzer creates a new stop-loss analyzer
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{
		log: log.With().Str("service", "stoploss").Logger(),
	}
}

// Analyze returns one recommendation per non-stable holding, in the
// portfolio's asset order. Stable reserve positions get no stop.
func (a *Analyzer) Analyze(p domain.Portfolio) ([]domain.StopLossRecommendation, error) {
	if !p.Profile.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRiskProfile, p.Profile)
	}

	recs := make([]domain.StopLossRecommendation, 0, len(p.Assets))
	for _, asset := range p.Assets {
		if asset.IsStable() || asset.Price <= 0 {
			continue
		}
		recs = append(recs, a.analyzeAsset(p.Profile, asset))
	}

	a.log.Debug().
		Str("profile", string(p.Profile)).
		Int("recommendations", len(recs)).
		Msg("Computed stop-loss levels")

	return recs, nil
}

// analyzeAsset computes one holding's stop.
func (a *Analyzer) analyzeAsset(profile domain.RiskProfile, asset domain.PortfolioAsset) domain.StopLossRecommendation {
	pct := baseStopPctTable[profile]
	var reasons []string

	// Daily volatility: a name moving double digits a day needs room
	// to breathe; a sleepy one does not.
	absDaily := math.Abs(asset.Change24h)
	switch {
	case absDaily > 10:
		pct *= 1.2
		reasons = append(reasons, "wide daily range")
	case absDaily < 5:
		pct *= 0.8
		reasons = append(reasons, "quiet daily range")
	}

	switch {
	case asset.MarketCap < smallCapThreshold:
		pct *= 1.3
		reasons = append(reasons, "small cap")
	case asset.MarketCap < midCapThreshold:
		pct *= 1.15
		reasons = append(reasons, "mid cap")
	}

	// Position size: a stop on a quarter of the book must be tighter
	// than one on a rounding-error position.
	switch {
	case asset.Allocation > 20:
		pct *= 0.8
		reasons = append(reasons, "oversized position")
	case asset.Allocation < 5:
		pct *= 1.2
		reasons = append(reasons, "small position")
	}

	switch {
	case asset.Change7d > 10:
		pct *= 1.2
		reasons = append(reasons, "strong weekly uptrend")
	case asset.Change7d < -10:
		pct *= 0.8
		reasons = append(reasons, "weekly downtrend")
	}

	pct = clampStop(pct)

	rec := domain.StopLossRecommendation{
		AssetID:      asset.ID,
		Symbol:       asset.Symbol,
		StopPrice:    round2(asset.Price * (1 - pct/100)),
		StopLossPct:  round1(pct),
		Urgency:      classifyUrgency(asset),
		RiskCategory: riskCategory(pct),
		Reason:       reasonText(profile, pct, reasons),
	}
	rec.SuggestedAction = suggestedAction(profile, asset, rec)
	return rec
}

// classifyUrgency scores how quickly the stop should be placed.
func classifyUrgency(asset domain.PortfolioAsset) domain.Urgency {
	points := 0

	switch {
	case asset.Change24h < -10:
		points += 3
	case asset.Change24h < -5:
		points += 2
	}
	if asset.Change7d < -15 {
		points += 2
	}
	// Position size: a large holding turns the same move into a larger
	// hit on the book.
	switch {
	case asset.Allocation >= 30:
		points += 2
	case asset.Allocation >= 20:
		points++
	}
	switch {
	case asset.ProfitLossPct < -20:
		points += 3
	case asset.ProfitLossPct < -10:
		points++
	}
	if asset.MarketCap < smallCapThreshold {
		points++
	}

	switch {
	case points >= 5:
		return domain.UrgencyHigh
	case points >= 2:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// riskCategory classifies the final stop distance.
func riskCategory(pct float64) domain.RiskCategory {
	switch {
	case pct < 10:
		return domain.CategoryConservative
	case pct < 20:
		return domain.CategoryModerate
	default:
		return domain.CategoryAggressive
	}
}

func reasonText(profile domain.RiskProfile, pct float64, reasons []string) string {
	base := fmt.Sprintf("%.1f%% stop from the %s base of %.0f%%", pct, profile, baseStopPctTable[profile])
	if len(reasons) == 0 {
		return base
	}
	joined := reasons[0]
	for _, r := range reasons[1:] {
		joined += ", " + r
	}
	return base + " (" + joined + ")"
}

func suggestedAction(profile domain.RiskProfile, asset domain.PortfolioAsset, rec domain.StopLossRecommendation) string {
	if rec.Urgency == domain.UrgencyHigh {
		return fmt.Sprintf("Place the %s stop at %.2f now; the position is already under pressure",
			asset.Symbol, rec.StopPrice)
	}
	switch profile {
	case domain.ProfileConservative:
		return fmt.Sprintf("Set a hard stop order for %s at %.2f", asset.Symbol, rec.StopPrice)
	case domain.ProfileDegen:
		return fmt.Sprintf("Use %.2f as a mental exit for %s; no automated order needed", rec.StopPrice, asset.Symbol)
	default:
		return fmt.Sprintf("Set a stop or alert for %s at %.2f and review on the next rebalance check",
			asset.Symbol, rec.StopPrice)
	}
}

func clampStop(pct float64) float64 {
	return math.Min(math.Max(pct, minStopPct), maxStopPct)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
