package indicators

import (
	"fmt"
	"math"

	"github.com/aristath/cryptofolio/internal/domain"
)

// scoreQuality calculates the weighted composite quality score.
// Components:
// - EMA strength (30%): price position relative to the 50/200 EMAs
// - RSI health (25%): distance from stress zones
// - Volume health (20%): turnover vs. market cap
// - Market cap tier (15%): larger caps score higher
// - Momentum (10%): 7-day change, rewarding steady gains
func (s *Service) scoreQuality(snap domain.AssetSnapshot, r Result) QualityScore {
	ema := scoreEMAStrength(snap.Price, r.EMA50, r.EMA200)
	rsi := scoreRSIHealth(r.RSI)
	volume := scoreVolumeHealth(snap.Turnover())
	tier := scoreMarketCapTier(snap.MarketCap)
	momentum := scoreMomentum(snap.Change7d)

	total := ema*WeightEMAStrength +
		rsi*WeightRSIHealth +
		volume*WeightVolumeHealth +
		tier*WeightMarketCap +
		momentum*WeightMomentum

	return QualityScore{
		Score: round1(total),
		Components: map[string]float64{
			"ema_strength":  round1(ema),
			"rsi_health":    round1(rsi),
			"volume_health": round1(volume),
			"market_cap":    round1(tier),
			"momentum":      round1(momentum),
		},
	}
}

// scoreEMAStrength scores trend structure. Missing EMAs score neutral
// rather than penalizing a short series.
func scoreEMAStrength(price float64, ema50, ema200 *float64) float64 {
	if ema50 == nil && ema200 == nil {
		return 50
	}
	if ema50 != nil && ema200 != nil {
		aboveShort := price > *ema50
		aboveLong := price > *ema200
		goldenStructure := *ema50 > *ema200
		switch {
		case aboveShort && aboveLong && goldenStructure:
			return 100
		case aboveShort && aboveLong:
			return 80
		case aboveLong:
			return 55
		case aboveShort:
			return 45
		default:
			return 20
		}
	}
	// Only one EMA available.
	var ema float64
	if ema50 != nil {
		ema = *ema50
	} else {
		ema = *ema200
	}
	if price > ema {
		return 70
	}
	return 35
}

// scoreRSIHealth rewards the neutral zone; extremes read as stress.
func scoreRSIHealth(rsi *float64) float64 {
	if rsi == nil {
		return 50
	}
	v := *rsi
	switch {
	case v >= 40 && v <= 60:
		return 100
	case v >= RSIOversold && v < 40, v > 60 && v <= RSIOverbought:
		return 75
	case v < RSIOversold:
		return 40
	default: // overbought
		return 30
	}
}

// scoreVolumeHealth scores the deterministic turnover proxy.
func scoreVolumeHealth(turnover float64) float64 {
	switch {
	case turnover >= TurnoverElevated:
		return 100
	case turnover >= TurnoverNormal:
		return 80
	case turnover >= TurnoverThin:
		return 55
	default:
		return 25
	}
}

// scoreMarketCapTier scores by absolute cap size.
func scoreMarketCapTier(marketCap float64) float64 {
	switch {
	case marketCap >= MegaCapFloor:
		return 100
	case marketCap >= LargeCapFloor:
		return 85
	case marketCap >= MidCapFloor:
		return 65
	case marketCap >= SmallCapFloor:
		return 45
	default:
		return 25
	}
}

// scoreMomentum scores the 7-day change: steady gains are best,
// vertical moves read as overextension.
func scoreMomentum(change7d float64) float64 {
	switch {
	case change7d >= 5 && change7d <= 20:
		return 100
	case change7d > 20 && change7d <= 40:
		return 70
	case change7d > 40:
		return 40
	case change7d >= 0:
		return 75
	case change7d >= -10:
		return 55
	case change7d >= -25:
		return 35
	default:
		return 15
	}
}

// estimateHoldingPeriod buckets the asset into a holding-period
// category from a deterministic rule table over quality, cap tier and
// 24h volatility. No randomness: identical snapshots produce identical
// estimates.
func estimateHoldingPeriod(snap domain.AssetSnapshot, r Result) HoldingEstimate {
	quality := r.Quality.Score
	vol := math.Abs(snap.Change24h)
	tier := scoreMarketCapTier(snap.MarketCap)

	var category HoldingCategory
	var confidence float64
	reasoning := []string{}

	switch {
	case quality >= 70 && tier >= 85:
		category = HoldLongTerm
		confidence = 60 + (quality-70)*1.0
		reasoning = append(reasoning,
			fmt.Sprintf("quality score %.0f with established market cap supports a core position", quality))
	case quality >= 60:
		category = HoldMediumTerm
		confidence = 55 + (quality-60)*1.5
		reasoning = append(reasoning,
			fmt.Sprintf("quality score %.0f justifies a multi-week hold", quality))
	case quality >= 45:
		category = HoldShortTerm
		confidence = 50 + (quality-45)*1.0
		reasoning = append(reasoning,
			fmt.Sprintf("middling quality score %.0f, treat as a tactical position", quality))
	default:
		category = HoldSpeculative
		confidence = 40 + quality*0.2
		reasoning = append(reasoning,
			fmt.Sprintf("weak quality score %.0f, position only with strict limits", quality))
	}

	if vol > 10 {
		confidence -= 10
		reasoning = append(reasoning,
			fmt.Sprintf("24h move of %.1f%% lowers timing confidence", snap.Change24h))
	}
	if r.RSI != nil && *r.RSI > RSIOverbought {
		confidence -= 5
		reasoning = append(reasoning, "RSI in the overbought zone, entries are late")
	}
	if r.RSI != nil && *r.RSI < RSIOversold {
		reasoning = append(reasoning, "RSI oversold, patient entries may improve the basis")
	}

	confidence = math.Max(10, math.Min(95, confidence))

	return HoldingEstimate{
		Category:   category,
		Confidence: round1(confidence),
		Reasoning:  reasoning,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
