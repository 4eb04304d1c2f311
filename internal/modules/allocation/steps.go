package allocation

import (
	"fmt"

	"github.com/aristath/cryptofolio/internal/domain"
)

// stepContext carries the identifiers and sentiment the adjustment
// steps key on. Resolved once per plan.
type stepContext struct {
	stableID  string
	btcID     string
	ethID     string
	sentiment domain.MarketSentiment
}

// adjustmentStep is one pure stage of the pipeline: it takes an
// allocation map and returns a new map plus the audit records for every
// value it changed. Steps run in a fixed order and a later step may
// undo an earlier one - that order-dependence is part of the contract.
type adjustmentStep struct {
	name  string
	apply func(alloc map[string]float64, ctx stepContext) (map[string]float64, []domain.AllocationAdjustment)
}

// pipeline is the fixed, ordered list of adjustment steps.
var pipeline = []adjustmentStep{
	{"sentiment", applySentiment},
	{"risk-management", applyRiskManagement},
	{"capital-preservation", applyCapitalPreservation},
	{"volatility", applyVolatility},
	{"correlation", applyCorrelation},
	{"normalize", applyNormalize},
}

// set records a change to one asset's percentage if it actually changes.
func set(alloc map[string]float64, records *[]domain.AllocationAdjustment, id string, to float64, reason string) {
	if id == "" {
		return
	}
	from, ok := alloc[id]
	if !ok || from == to {
		return
	}
	alloc[id] = to
	*records = append(*records, domain.AllocationAdjustment{
		AssetID: id,
		From:    from,
		To:      to,
		Reason:  reason,
	})
}

func copyAlloc(alloc map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(alloc))
	for k, v := range alloc {
		out[k] = v
	}
	return out
}

// applySentiment folds the market regime into the allocation:
// bear raises the stable reserve, bull trims it, altcoin season rotates
// a little out of the benchmarks, and a high risk level adds stable on
// top.
func applySentiment(alloc map[string]float64, ctx stepContext) (map[string]float64, []domain.AllocationAdjustment) {
	out := copyAlloc(alloc)
	var records []domain.AllocationAdjustment
	s := ctx.sentiment

	if ctx.stableID != "" {
		if s.IsBearMarket {
			set(out, &records, ctx.stableID, min(out[ctx.stableID]+20, 50),
				"bear market: raise stable reserve")
		}
		if s.IsBullMarket {
			set(out, &records, ctx.stableID, max(out[ctx.stableID]-10, 5),
				"bull market: deploy stable reserve")
		}
	}

	if s.IsAltcoinSeason {
		if btc, ok := out[ctx.btcID]; ok && btc > 30 {
			set(out, &records, ctx.btcID, max(btc-5, 30),
				"altcoin season: rotate out of BTC")
		}
		if eth, ok := out[ctx.ethID]; ok && eth > 15 {
			set(out, &records, ctx.ethID, max(eth-3, 15),
				"altcoin season: rotate out of ETH")
		}
	}

	if ctx.stableID != "" && s.RiskLevel == domain.RiskHigh {
		set(out, &records, ctx.stableID, min(out[ctx.stableID]+15, 40),
			"high market risk: raise stable reserve")
	}

	return out, records
}

// applyRiskManagement clamps single-asset concentration and enforces
// the stable-reserve floor.
func applyRiskManagement(alloc map[string]float64, ctx stepContext) (map[string]float64, []domain.AllocationAdjustment) {
	out := copyAlloc(alloc)
	var records []domain.AllocationAdjustment

	for _, id := range sortedIDs(out) {
		if out[id] > MaxSingleAssetPct {
			set(out, &records, id, MaxSingleAssetPct,
				fmt.Sprintf("concentration cap: limit single asset to %.0f%%", MaxSingleAssetPct))
		}
	}

	if ctx.stableID != "" && out[ctx.stableID] < StableFloorPct {
		set(out, &records, ctx.stableID, StableFloorPct,
			fmt.Sprintf("liquidity floor: keep at least %.0f%% stable", StableFloorPct))
	}

	return out, records
}

// applyCapitalPreservation shifts weight to the benchmarks in stressed
// tape and to stable in extreme fear.
func applyCapitalPreservation(alloc map[string]float64, ctx stepContext) (map[string]float64, []domain.AllocationAdjustment) {
	out := copyAlloc(alloc)
	var records []domain.AllocationAdjustment
	s := ctx.sentiment

	if s.VolatilityIndex > 60 {
		if btc, ok := out[ctx.btcID]; ok {
			set(out, &records, ctx.btcID, min(max(btc, 35), 50),
				"high volatility: anchor in BTC")
		}
		if eth, ok := out[ctx.ethID]; ok {
			set(out, &records, ctx.ethID, min(max(eth, 20), 30),
				"high volatility: anchor in ETH")
		}
	}

	if ctx.stableID != "" && s.FearGreedIndex < 25 {
		set(out, &records, ctx.stableID, min(out[ctx.stableID]+25, 60),
			"extreme fear: preserve capital in stable")
	}

	return out, records
}

// applyVolatility adjusts the stable reserve at the volatility extremes.
func applyVolatility(alloc map[string]float64, ctx stepContext) (map[string]float64, []domain.AllocationAdjustment) {
	out := copyAlloc(alloc)
	var records []domain.AllocationAdjustment

	if ctx.stableID == "" {
		return out, records
	}

	switch {
	case ctx.sentiment.VolatilityIndex > 70:
		set(out, &records, ctx.stableID, min(out[ctx.stableID]+15, 60),
			"volatility spike: add stable buffer")
	case ctx.sentiment.VolatilityIndex < 30:
		set(out, &records, ctx.stableID, max(out[ctx.stableID]-10, 5),
			"calm tape: reduce stable buffer")
	}

	return out, records
}

// applyCorrelation concentrates into the benchmarks in a high-
// correlation regime (deep fear), when diversification across alts
// stops diversifying anything.
func applyCorrelation(alloc map[string]float64, ctx stepContext) (map[string]float64, []domain.AllocationAdjustment) {
	out := copyAlloc(alloc)
	var records []domain.AllocationAdjustment

	if ctx.sentiment.FearGreedIndex >= 30 {
		return out, records
	}

	if btc, ok := out[ctx.btcID]; ok {
		set(out, &records, ctx.btcID, min(max(btc, 45), 50),
			"high correlation regime: concentrate in BTC")
	}
	if eth, ok := out[ctx.ethID]; ok {
		set(out, &records, ctx.ethID, min(max(eth, 25), 30),
			"high correlation regime: concentrate in ETH")
	}

	return out, records
}

// applyNormalize proportionally rescales so the plan sums to exactly
// 100. Re-running it on a normalized map is a no-op.
func applyNormalize(alloc map[string]float64, _ stepContext) (map[string]float64, []domain.AllocationAdjustment) {
	out := copyAlloc(alloc)
	var records []domain.AllocationAdjustment

	sum := 0.0
	for _, v := range out {
		sum += v
	}
	if sum <= 0 {
		return out, records
	}

	scale := 100 / sum
	if scale == 1 {
		return out, records
	}

	for _, id := range sortedIDs(out) {
		scaled := out[id] * scale
		if scaled != out[id] {
			set(out, &records, id, scaled, "normalize to 100%")
		}
	}

	return out, records
}
