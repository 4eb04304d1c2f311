package stoploss

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/cryptofolio/internal/domain"
)

func position(symbol string, price, change24h, change7d, marketCap, allocation float64) domain.PortfolioAsset {
	return domain.PortfolioAsset{
		AssetSnapshot: domain.AssetSnapshot{
			ID:        symbol,
			Symbol:    symbol,
			Name:      symbol,
			Price:     price,
			Change24h: change24h,
			Change7d:  change7d,
			MarketCap: marketCap,
		},
		Allocation: allocation,
	}
}

func analyzeOne(t *testing.T, profile domain.RiskProfile, asset domain.PortfolioAsset) domain.StopLossRecommendation {
	t.Helper()
	a := NewAnalyzer(zerolog.Nop())
	recs, err := a.Analyze(domain.Portfolio{
		Profile: profile,
		Assets:  []domain.PortfolioAsset{asset},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	return recs[0]
}

func TestAnalyzeDegenOversizedVolatilePosition(t *testing.T) {
	// Degen base 25%, widened for the daily range, tightened for the
	// oversized position: 25 * 1.2 * 0.8 = 24.
	rec := analyzeOne(t, domain.ProfileDegen,
		position("SOL", 100, 12, 0, 80e9, 25))

	assert.InDelta(t, 24.0, rec.StopLossPct, 0.01)
	assert.InDelta(t, 76.0, rec.StopPrice, 0.01)
	assert.Equal(t, domain.CategoryAggressive, rec.RiskCategory)
	assert.Equal(t, domain.UrgencyLow, rec.Urgency)
}

func TestAnalyzeConservativeQuietLargeCap(t *testing.T) {
	// Conservative base 8%, tightened for the quiet tape: 8 * 0.8 = 6.4.
	rec := analyzeOne(t, domain.ProfileConservative,
		position("BTC", 50000, 2, 0, 2000e9, 10))

	assert.InDelta(t, 6.4, rec.StopLossPct, 0.01)
	assert.InDelta(t, 46800, rec.StopPrice, 0.5)
	assert.Equal(t, domain.CategoryConservative, rec.RiskCategory)
	assert.Contains(t, rec.SuggestedAction, "hard stop")
}

func TestAnalyzeSmallCapWidensStop(t *testing.T) {
	// Balanced base 12%, small cap and small position both widen:
	// 12 * 1.3 * 1.2 = 18.72.
	rec := analyzeOne(t, domain.ProfileBalanced,
		position("PEPE", 0.00001, 7, 0, 500e6, 3))

	assert.InDelta(t, 18.7, rec.StopLossPct, 0.05)
	assert.Equal(t, domain.CategoryModerate, rec.RiskCategory)
}

func TestAnalyzeClampCeiling(t *testing.T) {
	// Every widening multiplier stacked still caps at 50%.
	rec := analyzeOne(t, domain.ProfileDegen,
		position("WIF", 2, 15, 12, 400e6, 3))

	assert.Equal(t, 50.0, rec.StopLossPct)
}

func TestAnalyzeClampFloor(t *testing.T) {
	// Every tightening multiplier stacked still floors at 5%.
	rec := analyzeOne(t, domain.ProfileConservative,
		position("BTC", 50000, 2, -12, 2000e9, 30))

	assert.Equal(t, 5.0, rec.StopLossPct)
}

func TestAnalyzeUrgencyEscalation(t *testing.T) {
	// Sharp daily drop plus a deep unrealized loss is high urgency.
	asset := position("DOGE", 0.1, -12, -5, 20e9, 10)
	asset.ProfitLossPct = -25

	rec := analyzeOne(t, domain.ProfileBalanced, asset)

	assert.Equal(t, domain.UrgencyHigh, rec.Urgency)
	assert.Contains(t, rec.SuggestedAction, "now")
}

func TestAnalyzeUrgencyWeighsAllocation(t *testing.T) {
	// Identical assets except position size: the big holding escalates.
	small := analyzeOne(t, domain.ProfileBalanced,
		position("ETH", 3000, 2, 0, 400e9, 2))
	huge := analyzeOne(t, domain.ProfileBalanced,
		position("ETH", 3000, 2, 0, 400e9, 35))

	assert.Equal(t, domain.UrgencyLow, small.Urgency)
	assert.Equal(t, domain.UrgencyMedium, huge.Urgency)
}

func TestAnalyzeSkipsStableReserve(t *testing.T) {
	a := NewAnalyzer(zerolog.Nop())
	recs, err := a.Analyze(domain.Portfolio{
		Profile: domain.ProfileBalanced,
		Assets: []domain.PortfolioAsset{
			position("USDC", 1, 0, 0, 40e9, 8),
			position("BTC", 50000, 2, 0, 2000e9, 92),
		},
	})
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, "BTC", recs[0].Symbol)
}

func TestAnalyzeInvalidProfile(t *testing.T) {
	a := NewAnalyzer(zerolog.Nop())
	_, err := a.Analyze(domain.Portfolio{
		Profile: domain.RiskProfile("yolo"),
		Assets:  []domain.PortfolioAsset{position("BTC", 50000, 0, 0, 2000e9, 100)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRiskProfile)
}
