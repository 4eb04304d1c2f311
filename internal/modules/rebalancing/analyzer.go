// Package rebalancing measures how far a portfolio's live allocation
// has drifted from its profile-derived target and classifies the
// recommended action. The analyzer reads no clock: the caller passes
// the reference time explicitly.
package rebalancing

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/internal/modules/allocation"
)

// driftBand maps a minimum average drift to an action/urgency pair.
// Bands are checked top-down; the first match wins.
type driftBand struct {
	MinDrift float64
	Action   domain.RebalanceAction
	Urgency  domain.Urgency
}

// standardBands apply to conservative, balanced and aggressive profiles.
var standardBands = []driftBand{
	{15, domain.ActionRebalance, domain.UrgencyHigh},
	{10, domain.ActionRebalance, domain.UrgencyMedium},
	{5, domain.ActionPartialRebalance, domain.UrgencyMedium},
	{0, domain.ActionHold, domain.UrgencyLow},
}

// degenBands are deliberately relaxed: a degen portfolio drifts by
// design and nagging about it helps nobody.
var degenBands = []driftBand{
	{40, domain.ActionRebalance, domain.UrgencyMedium},
	{25, domain.ActionPartialRebalance, domain.UrgencyLow},
	{0, domain.ActionHold, domain.UrgencyLow},
}

// tradeThresholdPct is the minimum per-asset drift that turns into a
// buy/sell instead of hold.
const tradeThresholdPct = 1.0

// Analyzer produces rebalancing recommendations.
type Analyzer struct {
	log zerolog.Logger
}

// NewAnalyzer creates a new rebalancing analyzer
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{
		log: log.With().Str("service", "rebalancing").Logger(),
	}
}

// Analyze compares the portfolio's live allocation against the target
// re-derived from its risk profile. now is the reference time used for
// the next-review date; the analyzer itself never reads the clock.
func (a *Analyzer) Analyze(p domain.Portfolio, now time.Time) (domain.RebalancingRecommendation, error) {
	if !p.Profile.Valid() {
		return domain.RebalancingRecommendation{}, fmt.Errorf("%w: %q", domain.ErrInvalidRiskProfile, p.Profile)
	}
	if len(p.Assets) == 0 {
		return domain.RebalancingRecommendation{}, fmt.Errorf("portfolio has no assets")
	}

	nextReview := now.AddDate(0, 0, allocation.ReviewInterval[p.Profile])

	// One crypto asset means percentage drift is meaningless: the
	// question is whether to keep riding the position at all.
	crypto := p.CryptoAssets()
	if len(crypto) == 1 && len(p.Assets) <= 2 {
		return a.singleAssetRecommendation(p, crypto[0], nextReview), nil
	}

	snaps := make([]domain.AssetSnapshot, 0, len(p.Assets))
	for _, asset := range p.Assets {
		snaps = append(snaps, asset.AssetSnapshot)
	}
	targets, err := allocation.BaseAllocation(snaps, p.Profile)
	if err != nil {
		return domain.RebalancingRecommendation{}, err
	}

	drifts := make([]domain.AssetDrift, 0, len(p.Assets))
	totalDrift := 0.0
	for _, asset := range p.Assets {
		target := targets[asset.ID]
		drift := math.Abs(asset.Allocation - target)
		totalDrift += drift

		action := domain.SideHold
		if asset.Allocation > target+tradeThresholdPct {
			action = domain.SideSell
		} else if asset.Allocation < target-tradeThresholdPct {
			action = domain.SideBuy
		}

		drifts = append(drifts, domain.AssetDrift{
			AssetID:    asset.ID,
			Symbol:     asset.Symbol,
			CurrentPct: asset.Allocation,
			TargetPct:  target,
			Drift:      drift,
			Action:     action,
			Amount:     drift / 100 * p.TotalValue,
		})
	}

	// Mean, not sum: summing would over-penalize portfolios holding
	// many small positions.
	avgDrift := totalDrift / float64(len(p.Assets))

	action, urgency := classify(p.Profile, avgDrift)

	rec := domain.RebalancingRecommendation{
		Action:         action,
		Urgency:        urgency,
		AverageDrift:   round1(avgDrift),
		Assets:         drifts,
		NextReviewDate: nextReview,
		Reason: fmt.Sprintf("Average allocation drift is %.1f%% against the %s profile targets",
			avgDrift, p.Profile),
	}
	rec.SuggestedActions = suggestActions(rec, drifts)

	if !hasStableReserve(p) {
		rec.SuggestedActions = append(rec.SuggestedActions,
			"No stable reserve held: add a stablecoin position for dry powder")
		if p.Profile != domain.ProfileDegen && rec.Urgency == domain.UrgencyLow {
			rec.Urgency = domain.UrgencyMedium
		}
	}

	a.log.Debug().
		Str("action", string(rec.Action)).
		Str("urgency", string(rec.Urgency)).
		Float64("avg_drift", avgDrift).
		Msg("Analyzed rebalancing drift")

	return rec, nil
}

// classify picks the action/urgency band for the profile.
func classify(profile domain.RiskProfile, avgDrift float64) (domain.RebalanceAction, domain.Urgency) {
	bands := standardBands
	if profile == domain.ProfileDegen {
		bands = degenBands
	}
	for _, band := range bands {
		if avgDrift > band.MinDrift {
			return band.Action, band.Urgency
		}
	}
	return domain.ActionHold, domain.UrgencyLow
}

// singleAssetRecommendation handles the one-crypto-asset portfolio with
// a narrative instead of drift math.
func (a *Analyzer) singleAssetRecommendation(
	p domain.Portfolio,
	asset domain.PortfolioAsset,
	nextReview time.Time,
) domain.RebalancingRecommendation {
	rec := domain.RebalancingRecommendation{
		Action:         domain.ActionHold,
		Urgency:        domain.UrgencyLow,
		AverageDrift:   0,
		NextReviewDate: nextReview,
	}

	losing := asset.ProfitLossPct < -20 || asset.Change24h < -10
	if losing {
		rec.Urgency = domain.UrgencyMedium
		rec.Reason = fmt.Sprintf(
			"Single-position portfolio in %s is under water; drift math does not apply, the decision is whether to cut",
			asset.Symbol)
		rec.SuggestedActions = []string{
			fmt.Sprintf("Decide on a cut-losses level for %s and honor it", asset.Symbol),
			"Consider diversifying into a second position to make rebalancing meaningful",
		}
	} else {
		rec.Reason = fmt.Sprintf(
			"Single-position portfolio in %s is performing; let it run, there is nothing to rebalance against",
			asset.Symbol)
		rec.SuggestedActions = []string{
			fmt.Sprintf("Hold %s and review at the next scheduled check", asset.Symbol),
			"Add a stable reserve if you want to lock in part of the gain",
		}
	}

	if p.Profile != domain.ProfileDegen {
		rec.SuggestedActions = append(rec.SuggestedActions,
			fmt.Sprintf("A one-asset book is unusual for the %s profile: consider regenerating the portfolio", p.Profile))
	}

	return rec
}

// suggestActions turns the per-asset drifts into concrete instructions.
func suggestActions(rec domain.RebalancingRecommendation, drifts []domain.AssetDrift) []string {
	var actions []string

	if rec.Action == domain.ActionHold {
		actions = append(actions, "Allocations are within tolerance; no trades needed")
		return actions
	}

	for _, d := range drifts {
		switch d.Action {
		case domain.SideSell:
			actions = append(actions, fmt.Sprintf(
				"Sell ~%.2f of %s (%.1f%% -> %.1f%%)", d.Amount, d.Symbol, d.CurrentPct, d.TargetPct))
		case domain.SideBuy:
			actions = append(actions, fmt.Sprintf(
				"Buy ~%.2f of %s (%.1f%% -> %.1f%%)", d.Amount, d.Symbol, d.CurrentPct, d.TargetPct))
		}
	}

	return actions
}

func hasStableReserve(p domain.Portfolio) bool {
	for _, a := range p.Assets {
		if a.IsStable() {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
