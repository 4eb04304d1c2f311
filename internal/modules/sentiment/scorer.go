// Package sentiment condenses a batch of asset snapshots into a single
// market-wide sentiment object. The scorer is a pure function of the
// batch: no memory of prior calls, no clock, no I/O.
package sentiment

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/pkg/formulas"
)

// Benchmark symbols that must be present in every scored batch.
const (
	BenchmarkBTC = "BTC"
	BenchmarkETH = "ETH"
)

// Fear-greed component weights (volatility, momentum, volume proxy,
// dominance, trend).
const (
	fgWeightVolatility = 0.25
	fgWeightMomentum   = 0.25
	fgWeightVolume     = 0.15
	fgWeightDominance  = 0.20
	fgWeightTrend      = 0.15
)

// Overall signed-score weights (fear-greed, dominance, altcoin season,
// momentum, volatility).
const (
	scoreWeightFearGreed  = 0.25
	scoreWeightDominance  = 0.20
	scoreWeightAltSeason  = 0.25
	scoreWeightMomentum   = 0.20
	scoreWeightVolatility = 0.10
)

// Classification thresholds on the signed score.
const (
	bullishThreshold = 20.0
	bearishThreshold = -20.0
)

// Scorer computes market sentiment from snapshot batches.
type Scorer struct {
	log zerolog.Logger
}

// NewScorer creates a new sentiment scorer
func NewScorer(log zerolog.Logger) *Scorer {
	return &Scorer{
		log: log.With().Str("service", "sentiment").Logger(),
	}
}

// Score computes the market sentiment for a snapshot batch. The batch
// must contain at least two assets including both BTC and ETH; a batch
// without the benchmarks fails outright - a half-computed sentiment is
// worse than none.
func (s *Scorer) Score(snaps []domain.AssetSnapshot) (domain.MarketSentiment, error) {
	if err := validateBatch(snaps); err != nil {
		return domain.MarketSentiment{}, err
	}

	var (
		btc domain.AssetSnapshot

		changes24h   []float64
		absChanges   []float64
		totalMcap    float64
		totalVolume  float64
		positives7d  int
	)

	for _, snap := range snaps {
		if snap.Symbol == BenchmarkBTC {
			btc = snap
		}
		changes24h = append(changes24h, snap.Change24h)
		absChanges = append(absChanges, abs(snap.Change24h))
		totalMcap += snap.MarketCap
		totalVolume += snap.Volume24h
		if snap.Change7d > 0 {
			positives7d++
		}
	}

	meanChange := formulas.Mean(changes24h)
	meanAbsChange := formulas.Mean(absChanges)

	dominance := 0.0
	if totalMcap > 0 {
		dominance = btc.MarketCap / totalMcap * 100
	}

	turnover := 0.0
	if totalMcap > 0 {
		turnover = totalVolume / totalMcap
	}

	// Five 0-100 component scores feeding the fear-greed composite.
	volComponent := formulas.Clamp(100-meanAbsChange*5, 0, 100)
	momComponent := formulas.Clamp(50+meanChange*2.5, 0, 100)
	volumeComponent := formulas.Clamp(turnover*1000, 0, 100)
	domComponent := formulas.Clamp(100-dominance, 0, 100)
	trendComponent := float64(positives7d) / float64(len(snaps)) * 100

	fearGreed := volComponent*fgWeightVolatility +
		momComponent*fgWeightMomentum +
		volumeComponent*fgWeightVolume +
		domComponent*fgWeightDominance +
		trendComponent*fgWeightTrend

	altSeason := altcoinSeasonIndex(snaps, btc, dominance)
	momentum := formulas.Clamp(meanChange*2, -100, 100)
	volatility := formulas.Clamp(meanAbsChange*2, 0, 100)

	// Signed overall score: each indicator normalized to [-100, 100].
	// High BTC dominance reads risk-off for a diversified portfolio,
	// and volatility only ever subtracts.
	score := scoreWeightFearGreed*(fearGreed-50)*2 +
		scoreWeightDominance*formulas.Clamp((50-dominance)*2, -100, 100) +
		scoreWeightAltSeason*(altSeason-50)*2 +
		scoreWeightMomentum*momentum +
		scoreWeightVolatility*(-volatility)
	score = formulas.Clamp(score, -100, 100)

	overall := domain.SentimentNeutral
	switch {
	case score > bullishThreshold:
		overall = domain.SentimentBullish
	case score < bearishThreshold:
		overall = domain.SentimentBearish
	}

	ms := domain.MarketSentiment{
		Overall:          overall,
		Confidence:       formulas.Clamp(abs(score), 0, 100),
		FearGreedIndex:   round1(fearGreed),
		BTCDominance:     round1(dominance),
		AltcoinSeasonIdx: round1(altSeason),
		MarketMomentum:   round1(momentum),
		VolatilityIndex:  round1(volatility),
		IsAltcoinSeason:  altSeason > 60,
		IsBullMarket:     momentum > 30 || (score > bullishThreshold && fearGreed > 65),
		IsBearMarket:     momentum < -30 || (score < bearishThreshold && fearGreed < 35),
		RiskLevel:        classifyRisk(volatility, fearGreed),
	}

	ms.Summary, ms.Recommendations, ms.KeyMetrics = describe(ms)

	s.log.Debug().
		Str("overall", string(ms.Overall)).
		Float64("score", score).
		Float64("fear_greed", ms.FearGreedIndex).
		Float64("dominance", ms.BTCDominance).
		Msg("Scored market sentiment")

	return ms, nil
}

// validateBatch enforces the benchmark requirement.
func validateBatch(snaps []domain.AssetSnapshot) error {
	if len(snaps) < 2 {
		return fmt.Errorf("%w: need at least 2 snapshots, got %d", domain.ErrMissingBenchmarkAsset, len(snaps))
	}
	hasBTC, hasETH := false, false
	for _, snap := range snaps {
		switch snap.Symbol {
		case BenchmarkBTC:
			hasBTC = true
		case BenchmarkETH:
			hasETH = true
		}
	}
	if !hasBTC {
		return fmt.Errorf("%w: BTC", domain.ErrMissingBenchmarkAsset)
	}
	if !hasETH {
		return fmt.Errorf("%w: ETH", domain.ErrMissingBenchmarkAsset)
	}
	return nil
}

// altcoinSeasonIndex blends dominance-band scoring, the fraction of
// altcoins outperforming BTC over 24h, and the altcoin share of total
// volume. Clamped to [0, 100].
func altcoinSeasonIndex(snaps []domain.AssetSnapshot, btc domain.AssetSnapshot, dominance float64) float64 {
	idx := 0.0
	switch {
	case dominance < 40:
		idx += 40
	case dominance < 50:
		idx += 20
	case dominance < 60:
		idx += 10
	}

	altCount := 0
	outperforming := 0
	altVolume := 0.0
	totalVolume := 0.0
	for _, snap := range snaps {
		totalVolume += snap.Volume24h
		if snap.Symbol == BenchmarkBTC {
			continue
		}
		altCount++
		altVolume += snap.Volume24h
		if snap.Change24h > btc.Change24h {
			outperforming++
		}
	}

	if altCount > 0 {
		idx += float64(outperforming) / float64(altCount) * 40
	}
	if totalVolume > 0 {
		idx += altVolume / totalVolume * 20
	}

	return formulas.Clamp(idx, 0, 100)
}

// classifyRisk applies the fixed risk-level thresholds.
func classifyRisk(volatility, fearGreed float64) domain.RiskLevel {
	if volatility > 70 || fearGreed > 80 {
		return domain.RiskHigh
	}
	if volatility < 30 && fearGreed < 30 {
		return domain.RiskLow
	}
	return domain.RiskMedium
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
