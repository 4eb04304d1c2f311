package formulas

import (
	"fmt"

	"github.com/markcheno/go-talib"
)

// BollingerBands represents Bollinger Bands values
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// BollingerResult is the bands plus the derived position metrics.
type BollingerResult struct {
	Bands    BollingerBands `json:"bands"`
	PercentB float64        `json:"percent_b"` // 0.0 at lower band, 1.0 at upper
	Squeeze  bool           `json:"squeeze"`   // band width < 10% of the middle band
}

// CalculateBollingerBands calculates Bollinger Bands over the trailing window.
//
// Bollinger Bands Formula:
//
//	Middle Band = N-day SMA
//	Upper Band = Middle + (stdDevMultiplier × std deviation)
//	Lower Band = Middle - (stdDevMultiplier × std deviation)
//
// Fails with ErrInsufficientData when there are fewer prices than the window.
func CalculateBollingerBands(closes []float64, length int, stdDevMultiplier float64) (*BollingerBands, error) {
	if length <= 0 || len(closes) < length {
		return nil, fmt.Errorf("%w: bollinger(%d) over %d prices", ErrInsufficientData, length, len(closes))
	}

	// MAType 0 = SMA (Simple Moving Average)
	upper, middle, lower := talib.BBands(closes, length, stdDevMultiplier, stdDevMultiplier, 0)

	if len(upper) == 0 || isNaN(upper[len(upper)-1]) {
		return nil, fmt.Errorf("%w: bollinger(%d) produced no value", ErrInsufficientData, length)
	}
	return &BollingerBands{
		Upper:  upper[len(upper)-1],
		Middle: middle[len(middle)-1],
		Lower:  lower[len(lower)-1],
	}, nil
}

// CalculateBollinger calculates the bands plus %B and the squeeze flag.
// %B is clamped to [0, 1] (price can close outside the bands).
func CalculateBollinger(closes []float64, length int, stdDevMultiplier float64) (*BollingerResult, error) {
	bands, err := CalculateBollingerBands(closes, length, stdDevMultiplier)
	if err != nil {
		return nil, err
	}

	currentPrice := closes[len(closes)-1]
	bandWidth := bands.Upper - bands.Lower

	percentB := 0.5
	if bandWidth > 0 {
		percentB = Clamp((currentPrice-bands.Lower)/bandWidth, 0, 1)
	}

	squeeze := false
	if bands.Middle > 0 {
		squeeze = bandWidth < 0.10*bands.Middle
	}

	return &BollingerResult{
		Bands:    *bands,
		PercentB: percentB,
		Squeeze:  squeeze,
	}, nil
}
