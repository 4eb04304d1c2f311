// Package indicators assembles the per-asset technical indicator set
// from a market snapshot. All computation is pure: the same snapshot
// always yields the same Result.
package indicators

import (
	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/pkg/formulas"
)

// Service computes indicator results for asset snapshots.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new indicator service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "indicators").Logger(),
	}
}

// Compute builds the full indicator Result for one asset. A missing or
// short 7-day series degrades the series-based indicators to absent
// (listed in Degraded) instead of failing the whole call; the quality
// score and holding-period estimate fall back to snapshot-only inputs.
func (s *Service) Compute(snap domain.AssetSnapshot, accountSize float64) Result {
	r := Result{
		AssetID:     snap.ID,
		Symbol:      snap.Symbol,
		VolumeRatio: snap.Turnover(),
		VolumeTrend: classifyVolume(snap.Turnover()),
	}

	series := snap.Sparkline7d

	if ema, err := formulas.CalculateEMA(series, EMAShortPeriod); err == nil {
		r.EMA50 = &ema
	} else {
		r.Degraded = append(r.Degraded, "ema_50")
	}

	if ema, err := formulas.CalculateEMA(series, EMALongPeriod); err == nil {
		r.EMA200 = &ema
	} else {
		r.Degraded = append(r.Degraded, "ema_200")
	}

	if rsi, err := formulas.CalculateRSI(series, RSIPeriod); err == nil {
		r.RSI = &rsi
	} else {
		r.Degraded = append(r.Degraded, "rsi")
	}

	if macd, err := formulas.CalculateMACD(series, MACDFastPeriod, MACDSlowPeriod, MACDSignal); err == nil {
		r.MACD = macd
	} else {
		r.Degraded = append(r.Degraded, "macd")
	}

	if bb, err := formulas.CalculateBollinger(series, BollingerPeriod, BollingerStdDev); err == nil {
		r.Bollinger = bb
	} else {
		r.Degraded = append(r.Degraded, "bollinger")
	}

	if levels, err := formulas.CalculateSupportResistance(series, LevelsLookback); err == nil {
		r.Levels = levels
		risk, riskErr := formulas.CalculateRiskMetrics(
			snap.Price, levels.Support, levels.Resistance,
			accountSize, DefaultMaxRiskPercent,
		)
		if riskErr != nil {
			// Degenerate ratio: the metrics carry the zero-unit fallback.
			s.log.Debug().Err(riskErr).Str("asset", snap.ID).Msg("Position sizing zeroed")
		}
		r.Risk = &risk
	} else {
		r.Degraded = append(r.Degraded, "levels", "risk")
	}

	r.Quality = s.scoreQuality(snap, r)
	r.HoldingPeriod = estimateHoldingPeriod(snap, r)

	if len(r.Degraded) > 0 {
		s.log.Debug().
			Str("asset", snap.ID).
			Strs("degraded", r.Degraded).
			Int("series_len", len(series)).
			Msg("Indicators degraded due to short price series")
	}

	return r
}

// ComputeBatch computes results for a batch of snapshots, preserving order.
func (s *Service) ComputeBatch(snaps []domain.AssetSnapshot, accountSize float64) []Result {
	out := make([]Result, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, s.Compute(snap, accountSize))
	}
	return out
}

// classifyVolume buckets the turnover proxy into trend flags.
func classifyVolume(turnover float64) VolumeTrend {
	switch {
	case turnover >= TurnoverElevated:
		return VolumeElevated
	case turnover >= TurnoverThin:
		return VolumeNormal
	default:
		return VolumeThin
	}
}
