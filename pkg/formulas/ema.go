package formulas

import (
	"fmt"

	"github.com/markcheno/go-talib"
)

// EMASeries calculates the full Exponential Moving Average series,
// seeded with the first price.
//
// EMA Formula:
//
//	EMA_today = (Price_today × multiplier) + (EMA_yesterday × (1 - multiplier))
//	where multiplier = 2 / (period + 1)
//
// The first-price seed is deliberate: it matches the engine's pinned
// semantics and keeps MACD derivable from the same recurrence. Returns
// nil if the series is shorter than the period.
func EMASeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}

	multiplier := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = closes[i]*multiplier + out[i-1]*(1.0-multiplier)
	}
	return out
}

// CalculateEMA calculates the current Exponential Moving Average value.
// Fails with ErrInsufficientData when there are fewer prices than the
// period.
func CalculateEMA(closes []float64, period int) (float64, error) {
	series := EMASeries(closes, period)
	if series == nil {
		return 0, fmt.Errorf("%w: ema(%d) over %d prices", ErrInsufficientData, period, len(closes))
	}
	return series[len(series)-1], nil
}

// CalculateSMA calculates the Simple Moving Average over the trailing window.
func CalculateSMA(closes []float64, length int) (float64, error) {
	if length <= 0 || len(closes) < length {
		return 0, fmt.Errorf("%w: sma(%d) over %d prices", ErrInsufficientData, length, len(closes))
	}

	sma := talib.Sma(closes, length)
	if len(sma) == 0 || isNaN(sma[len(sma)-1]) {
		return 0, fmt.Errorf("%w: sma(%d) produced no value", ErrInsufficientData, length)
	}
	return sma[len(sma)-1], nil
}

// CalculateDistanceFromEMA calculates the percentage distance from EMA.
// Positive if price is above the EMA, negative if below.
//
// Formula: (Current Price - EMA) / EMA
func CalculateDistanceFromEMA(closes []float64, period int) (float64, error) {
	ema, err := CalculateEMA(closes, period)
	if err != nil {
		return 0, err
	}
	if ema == 0 {
		return 0, fmt.Errorf("%w: zero ema", ErrDegenerateRatio)
	}

	currentPrice := closes[len(closes)-1]
	return (currentPrice - ema) / ema, nil
}
