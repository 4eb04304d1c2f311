package formulas

import (
	"fmt"

	"github.com/markcheno/go-talib"
)

// CalculateRSI calculates the Relative Strength Index using Wilder's
// average gain/loss smoothing.
//
// RSI Formula:
//
//	RSI = 100 - (100 / (1 + RS))
//	where RS = Average Gain / Average Loss over N periods
//
// Args:
//
//	closes: Array of closing prices
//	length: RSI period (typically 14)
//
// Returns:
//
//	Current RSI value (0-100), or ErrInsufficientData when there are
//	fewer than length+1 prices (length deltas cannot be formed)
func CalculateRSI(closes []float64, length int) (float64, error) {
	if length <= 0 || len(closes) < length+1 {
		return 0, fmt.Errorf("%w: rsi(%d) needs %d prices, got %d", ErrInsufficientData, length, length+1, len(closes))
	}

	rsi := talib.Rsi(closes, length)
	if len(rsi) == 0 || isNaN(rsi[len(rsi)-1]) {
		return 0, fmt.Errorf("%w: rsi(%d) produced no value", ErrInsufficientData, length)
	}
	return Clamp(rsi[len(rsi)-1], 0, 100), nil
}
