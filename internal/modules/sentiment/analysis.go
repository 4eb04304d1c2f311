package sentiment

import (
	"fmt"
	"math"

	"github.com/aristath/cryptofolio/internal/domain"
)

// describe derives the textual analysis from the computed sentiment.
// Percentages stay plain decimals in the struct; the strings here are
// convenience copy for consumers that want ready-made phrasing.
func describe(ms domain.MarketSentiment) (summary string, recommendations, keyMetrics []string) {
	switch ms.Overall {
	case domain.SentimentBullish:
		summary = fmt.Sprintf(
			"Market reads bullish with %.0f%% confidence. Momentum is positive and breadth supports risk-taking.",
			ms.Confidence)
	case domain.SentimentBearish:
		summary = fmt.Sprintf(
			"Market reads bearish with %.0f%% confidence. Capital preservation matters more than upside capture right now.",
			ms.Confidence)
	default:
		summary = fmt.Sprintf(
			"Market is neutral (confidence %.0f%%). No regime edge either way; stick to the plan.",
			ms.Confidence)
	}

	if ms.IsBearMarket {
		recommendations = append(recommendations,
			"Raise the stable reserve and tighten stop-losses on weak positions")
	}
	if ms.IsBullMarket {
		recommendations = append(recommendations,
			"Trim the stable reserve gradually; let winning positions run")
	}
	if ms.IsAltcoinSeason {
		recommendations = append(recommendations,
			"Altcoin season is active: modest rotation out of BTC into quality alts is justified")
	}
	if ms.RiskLevel == domain.RiskHigh {
		recommendations = append(recommendations,
			"Risk is elevated: avoid adding leverage or illiquid small caps")
	}
	if ms.FearGreedIndex < 25 {
		recommendations = append(recommendations,
			"Extreme fear: scale into high-conviction positions slowly")
	}
	if ms.FearGreedIndex > 80 {
		recommendations = append(recommendations,
			"Extreme greed: take partial profits while liquidity is abundant")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations,
			"Conditions are unremarkable: rebalance on schedule, nothing more")
	}

	keyMetrics = []string{
		fmt.Sprintf("Fear/Greed: %.0f", ms.FearGreedIndex),
		fmt.Sprintf("BTC dominance: %.1f%%", ms.BTCDominance),
		fmt.Sprintf("Altcoin season index: %.0f", ms.AltcoinSeasonIdx),
		fmt.Sprintf("Momentum: %.0f", ms.MarketMomentum),
		fmt.Sprintf("Volatility: %.0f", ms.VolatilityIndex),
		fmt.Sprintf("Risk level: %s", ms.RiskLevel),
	}

	return summary, recommendations, keyMetrics
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
