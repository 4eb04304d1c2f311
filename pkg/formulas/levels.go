package formulas

import (
	"fmt"
	"math"
	"sort"
)

// Levels represents the significant support/resistance pair for a series.
// The invariant support < current price < resistance always holds; when
// no qualifying swing cluster exists on a side, a ±5% fallback level is
// substituted and flagged.
type Levels struct {
	Support            float64 `json:"support"`
	Resistance         float64 `json:"resistance"`
	SupportDistPct     float64 `json:"support_dist_pct"`    // percent below current price
	ResistanceDistPct  float64 `json:"resistance_dist_pct"` // percent above current price
	RiskReward         float64 `json:"risk_reward"`         // (resistance-price)/(price-support)
	SupportFallback    bool    `json:"support_fallback"`
	ResistanceFallback bool    `json:"resistance_fallback"`
}

const (
	// minSwingPct suppresses noise: a swing point must stand out from
	// its 2-candle neighbourhood by at least this fraction.
	minSwingPct = 0.005

	// fallbackDistPct is the substitute level distance when no cluster
	// qualifies on a side.
	fallbackDistPct = 0.05
)

// CalculateSupportResistance detects the significant support and
// resistance levels from local extrema over the trailing lookback window.
//
// Swing detection compares each candle against 2 candles on each side;
// raw extrema are grouped with an adaptive tolerance (0.5%-1.5%, scaled
// to the window's price range) and the largest cluster per side wins.
//
// Fails with ErrInsufficientData when the series is shorter than 5
// points (no swing can be formed at all).
func CalculateSupportResistance(closes []float64, lookback int) (*Levels, error) {
	if len(closes) < 5 {
		return nil, fmt.Errorf("%w: support/resistance needs 5 prices, got %d", ErrInsufficientData, len(closes))
	}
	if lookback <= 0 {
		lookback = 100
	}

	window := closes
	if len(window) > lookback {
		window = window[len(window)-lookback:]
	}

	current := closes[len(closes)-1]
	if current <= 0 {
		return nil, fmt.Errorf("non-positive current price %g", current)
	}

	highs, lows := swingPoints(window)

	tol := clusterTolerance(window, current)
	resistance, resFallback := pickLevel(highs, tol, func(level float64) bool { return level > current })
	support, supFallback := pickLevel(lows, tol, func(level float64) bool { return level < current })

	if resFallback {
		resistance = current * (1 + fallbackDistPct)
	}
	if supFallback {
		support = current * (1 - fallbackDistPct)
	}

	// Clustering can still land on the wrong side of the price when the
	// window mean drags a group across it. Enforce the invariant.
	if resistance <= current {
		resistance = current * (1 + fallbackDistPct)
		resFallback = true
	}
	if support >= current {
		support = current * (1 - fallbackDistPct)
		supFallback = true
	}

	risk := current - support
	reward := resistance - current
	riskReward := 0.0
	if risk > 0 {
		riskReward = reward / risk
	}

	return &Levels{
		Support:            support,
		Resistance:         resistance,
		SupportDistPct:     (current - support) / current * 100,
		ResistanceDistPct:  (resistance - current) / current * 100,
		RiskReward:         riskReward,
		SupportFallback:    supFallback,
		ResistanceFallback: resFallback,
	}, nil
}

// swingPoints finds local extrema with a 2-candle-each-side comparison
// and a minimum swing size relative to the neighbourhood.
func swingPoints(window []float64) (highs, lows []float64) {
	for i := 2; i < len(window)-2; i++ {
		p := window[i]
		neighborMin := math.Min(math.Min(window[i-2], window[i-1]), math.Min(window[i+1], window[i+2]))
		neighborMax := math.Max(math.Max(window[i-2], window[i-1]), math.Max(window[i+1], window[i+2]))

		if p >= neighborMax && p > 0 && (p-neighborMin)/p >= minSwingPct {
			highs = append(highs, p)
		}
		if p <= neighborMin && neighborMax > 0 && (neighborMax-p)/neighborMax >= minSwingPct {
			lows = append(lows, p)
		}
	}
	return highs, lows
}

// clusterTolerance scales the grouping tolerance to the window's price
// range, clamped to [0.5%, 1.5%].
func clusterTolerance(window []float64, current float64) float64 {
	lo, hi := window[0], window[0]
	for _, p := range window {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return Clamp((hi-lo)/current*0.1, 0.005, 0.015)
}

// pickLevel clusters candidate extrema on one side of the price and
// returns the mean of the largest cluster. The second return is true
// when no candidate qualifies.
func pickLevel(candidates []float64, tol float64, onSide func(float64) bool) (float64, bool) {
	filtered := make([]float64, 0, len(candidates))
	for _, c := range candidates {
		if onSide(c) {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return 0, true
	}

	sort.Float64s(filtered)

	bestMean := 0.0
	bestSize := 0

	groupSum := filtered[0]
	groupSize := 1
	for i := 1; i <= len(filtered); i++ {
		flush := i == len(filtered)
		if !flush {
			mean := groupSum / float64(groupSize)
			if math.Abs(filtered[i]-mean)/mean < tol {
				groupSum += filtered[i]
				groupSize++
				continue
			}
		}
		if groupSize > bestSize {
			bestSize = groupSize
			bestMean = groupSum / float64(groupSize)
		}
		if !flush {
			groupSum = filtered[i]
			groupSize = 1
		}
	}

	return bestMean, false
}
