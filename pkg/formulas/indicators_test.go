package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func risingSeries(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestCalculateRSI_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
	}{
		{"rising", risingSeries(40, 100, 1)},
		{"falling", risingSeries(40, 100, -0.5)},
		{"choppy", []float64{10, 12, 11, 13, 10, 14, 9, 15, 8, 16, 7, 17, 6, 18, 5, 19, 4, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsi, err := CalculateRSI(tt.closes, 14)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, rsi, 0.0)
			assert.LessOrEqual(t, rsi, 100.0)
		})
	}
}

func TestCalculateRSI_MinimumWindow(t *testing.T) {
	// RSI(14) needs period+1 = 15 points.
	_, err := CalculateRSI(risingSeries(19, 100, 1), 14)
	require.NoError(t, err)

	_, err = CalculateRSI(risingSeries(14, 100, 1), 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCalculateRSI_Direction(t *testing.T) {
	up, errUp := CalculateRSI(risingSeries(30, 100, 2), 14)
	down, errDown := CalculateRSI(risingSeries(30, 100, -2), 14)
	require.NoError(t, errUp)
	require.NoError(t, errDown)
	assert.Greater(t, up, 70.0, "all-gains series should read overbought")
	assert.Less(t, down, 30.0, "all-losses series should read oversold")
}

func TestCalculateMACD_MinimumWindow(t *testing.T) {
	// Needs slow+signal = 35 points.
	_, err := CalculateMACD(risingSeries(19, 100, 1), 12, 26, 9)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = CalculateMACD(risingSeries(34, 100, 1), 12, 26, 9)
	assert.ErrorIs(t, err, ErrInsufficientData)

	m, err := CalculateMACD(risingSeries(35, 100, 1), 12, 26, 9)
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestCalculateMACD_FlatSeries(t *testing.T) {
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 250
	}
	m, err := CalculateMACD(flat, 12, 26, 9)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, m.Line, 1e-9)
	assert.InDelta(t, 0.0, m.Signal, 1e-9)
	assert.InDelta(t, 0.0, m.Histogram, 1e-9)
}

func TestCalculateMACD_RisingSeriesPositive(t *testing.T) {
	m, err := CalculateMACD(risingSeries(60, 100, 1), 12, 26, 9)
	require.NoError(t, err)
	assert.Greater(t, m.Line, 0.0, "fast EMA should lead the slow EMA upward")
}

func TestCalculateBollinger_FlatSeries(t *testing.T) {
	flat := make([]float64, 25)
	for i := range flat {
		flat[i] = 100
	}
	b, err := CalculateBollinger(flat, 20, 2)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, b.Bands.Middle, 1e-9)
	assert.InDelta(t, 0.5, b.PercentB, 1e-9)
	assert.True(t, b.Squeeze, "collapsed bands are the tightest squeeze there is")
}

func TestCalculateBollinger_MinimumWindow(t *testing.T) {
	_, err := CalculateBollinger(risingSeries(19, 100, 1), 20, 2)
	assert.ErrorIs(t, err, ErrInsufficientData)

	b, err := CalculateBollinger(risingSeries(20, 100, 1), 20, 2)
	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestCalculateBollinger_PercentBClamped(t *testing.T) {
	// Strong trend closes outside the upper band; %B must stay in [0,1].
	closes := risingSeries(30, 100, 3)
	b, err := CalculateBollinger(closes, 20, 2)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, b.PercentB, 0.0)
	assert.LessOrEqual(t, b.PercentB, 1.0)
}

func oscillatingSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 8*math.Sin(float64(i)*0.35)
	}
	return out
}

func TestCalculateSupportResistance_Invariant(t *testing.T) {
	closes := oscillatingSeries(120)
	current := closes[len(closes)-1]

	levels, err := CalculateSupportResistance(closes, 100)
	require.NoError(t, err)
	assert.Less(t, levels.Support, current)
	assert.Greater(t, levels.Resistance, current)
	assert.Greater(t, levels.RiskReward, 0.0)
	assert.False(t, levels.SupportFallback, "oscillating series has real swing lows")
	assert.False(t, levels.ResistanceFallback, "oscillating series has real swing highs")
}

func TestCalculateSupportResistance_FallbackOnTrend(t *testing.T) {
	// A strictly rising series closes at its high: no resistance swing
	// exists above the current price, so the +5% fallback applies.
	closes := risingSeries(120, 100, 0.5)
	current := closes[len(closes)-1]

	levels, err := CalculateSupportResistance(closes, 100)
	require.NoError(t, err)
	assert.True(t, levels.ResistanceFallback)
	assert.InDelta(t, current*1.05, levels.Resistance, 1e-9)
	assert.Less(t, levels.Support, current)
}

func TestCalculateSupportResistance_InsufficientData(t *testing.T) {
	_, err := CalculateSupportResistance([]float64{1, 2, 3, 4}, 100)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCalculateSupportResistance_Deterministic(t *testing.T) {
	closes := oscillatingSeries(150)
	a, errA := CalculateSupportResistance(closes, 100)
	b, errB := CalculateSupportResistance(closes, 100)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, *a, *b)
}

func TestCalculateRiskMetrics(t *testing.T) {
	m, err := CalculateRiskMetrics(100, 90, 130, 10000, 2)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, m.RiskPerUnit, 1e-9)
	assert.InDelta(t, 30.0, m.RewardPerUnit, 1e-9)
	assert.InDelta(t, 3.0, m.RiskRewardRatio, 1e-9)
	assert.True(t, m.GoodRiskReward)
	assert.InDelta(t, 200.0, m.MaxRiskAmount, 1e-9)
	assert.InDelta(t, 20.0, m.RecommendedUnits, 1e-9)
	assert.False(t, m.Degenerate)
}

func TestCalculateRiskMetrics_DegenerateRatio(t *testing.T) {
	// Support at the current price: risk per unit is zero. The error is
	// the sentinel and the metrics carry the zero-unit fallback, never Inf.
	m, err := CalculateRiskMetrics(100, 100, 120, 10000, 2)
	assert.ErrorIs(t, err, ErrDegenerateRatio)
	assert.True(t, m.Degenerate)
	assert.Zero(t, m.RecommendedUnits)
	assert.Zero(t, m.RiskRewardRatio)
	assert.False(t, math.IsInf(m.RiskRewardRatio, 0))
}

func TestCalculateRiskMetrics_UnitCap(t *testing.T) {
	// Tiny but non-degenerate risk per unit: cap at 1000 units.
	m, err := CalculateRiskMetrics(100, 99.999, 120, 1e9, 2)
	require.NoError(t, err)
	assert.False(t, m.Degenerate)
	assert.InDelta(t, 1000.0, m.RecommendedUnits, 1e-9)
}
