// Package allocation derives a risk-profile-based target allocation and
// folds market sentiment into it through an ordered pipeline of pure
// adjustment steps. Every change is recorded for auditability; the
// engine is deterministic given identical inputs.
package allocation

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/internal/modules/sentiment"
)

// Engine builds allocation plans.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a new allocation engine
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("service", "allocation").Logger(),
	}
}

// BuildPlan computes the base allocation for (assets, profile) and runs
// the full adjustment pipeline against the given sentiment. The
// returned plan is never mutated afterwards; adjusted allocations sum
// to 100 within the domain tolerance.
func (e *Engine) BuildPlan(
	assets []domain.AssetSnapshot,
	profile domain.RiskProfile,
	ms domain.MarketSentiment,
) (domain.AllocationPlan, error) {
	if !profile.Valid() {
		return domain.AllocationPlan{}, fmt.Errorf("%w: %q", domain.ErrInvalidRiskProfile, profile)
	}
	if len(assets) == 0 {
		return domain.AllocationPlan{}, fmt.Errorf("no assets to allocate")
	}

	base, err := BaseAllocation(assets, profile)
	if err != nil {
		return domain.AllocationPlan{}, err
	}

	ctx := resolveContext(assets, ms)

	adjusted := copyAlloc(base)
	var records []domain.AllocationAdjustment
	for _, step := range pipeline {
		var stepRecords []domain.AllocationAdjustment
		adjusted, stepRecords = step.apply(adjusted, ctx)
		records = append(records, stepRecords...)
	}

	plan := domain.AllocationPlan{
		Profile:         profile,
		Base:            base,
		Adjusted:        adjusted,
		Adjustments:     records,
		RiskLevel:       ms.RiskLevel,
		Recommendations: planRecommendations(ctx, profile, adjusted),
	}

	e.log.Debug().
		Str("profile", string(profile)).
		Int("assets", len(assets)).
		Int("adjustments", len(records)).
		Msg("Built allocation plan")

	return plan, nil
}

// resolveContext locates the stable reserve and the benchmark assets.
func resolveContext(assets []domain.AssetSnapshot, ms domain.MarketSentiment) stepContext {
	ctx := stepContext{sentiment: ms}
	for _, a := range assets {
		switch {
		case a.IsStable() && ctx.stableID == "":
			ctx.stableID = a.ID
		case a.Symbol == sentiment.BenchmarkBTC:
			ctx.btcID = a.ID
		case a.Symbol == sentiment.BenchmarkETH:
			ctx.ethID = a.ID
		}
	}
	return ctx
}

// planRecommendations produces the human-readable notes on the plan.
func planRecommendations(ctx stepContext, profile domain.RiskProfile, adjusted map[string]float64) []string {
	var recs []string

	if ctx.stableID == "" {
		recs = append(recs, "No stable reserve held: consider adding a stablecoin position for liquidity")
	} else if stable := adjusted[ctx.stableID]; stable >= 30 {
		recs = append(recs, fmt.Sprintf("Defensive stance: %.0f%% parked in the stable reserve", stable))
	}

	if ctx.sentiment.IsBearMarket {
		recs = append(recs, "Bear regime active: allocation is tilted toward capital preservation")
	}
	if ctx.sentiment.IsAltcoinSeason && profile != domain.ProfileConservative {
		recs = append(recs, "Altcoin season: benchmark weight was rotated into the rest of the book")
	}
	if profile == domain.ProfileDegen {
		recs = append(recs, "Degen profile: concentration limits are the only guardrail left, respect them")
	}

	return recs
}

// sortedIDs returns map keys in deterministic order.
func sortedIDs(alloc map[string]float64) []string {
	ids := make([]string, 0, len(alloc))
	for id := range alloc {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Normalize rescales an allocation map to sum to exactly 100. Exposed
// for callers that edit holdings outside the pipeline; re-running it on
// a normalized map is a no-op.
func Normalize(alloc map[string]float64) map[string]float64 {
	out, _ := applyNormalize(alloc, stepContext{})
	return out
}
