package formulas

import "fmt"

// MACDResult represents the MACD triple at the end of a series.
type MACDResult struct {
	Line      float64 `json:"line"`      // fast EMA - slow EMA
	Signal    float64 `json:"signal"`    // EMA(signal period) of the MACD line
	Histogram float64 `json:"histogram"` // line - signal
}

// CalculateMACD calculates Moving Average Convergence Divergence.
//
// The MACD line is the fast EMA minus the slow EMA; the signal line is
// an EMA of the MACD line itself; the histogram is their difference.
// Both EMAs come from EMASeries so the whole triple shares one seed
// convention.
//
// Fails with ErrInsufficientData when the history is shorter than
// slow+signal, the minimum for the signal line to have a full warm-up
// window.
func CalculateMACD(closes []float64, fast, slow, signal int) (*MACDResult, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, fmt.Errorf("macd periods must be positive, got %d/%d/%d", fast, slow, signal)
	}
	if len(closes) < slow+signal {
		return nil, fmt.Errorf("%w: macd(%d,%d,%d) needs %d prices, got %d",
			ErrInsufficientData, fast, slow, signal, slow+signal, len(closes))
	}

	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)
	if fastEMA == nil || slowEMA == nil {
		return nil, fmt.Errorf("%w: macd ema warm-up", ErrInsufficientData)
	}

	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	signalLine := EMASeries(macdLine, signal)
	if signalLine == nil {
		return nil, fmt.Errorf("%w: macd signal warm-up", ErrInsufficientData)
	}

	last := len(closes) - 1
	return &MACDResult{
		Line:      macdLine[last],
		Signal:    signalLine[last],
		Histogram: macdLine[last] - signalLine[last],
	}, nil
}
