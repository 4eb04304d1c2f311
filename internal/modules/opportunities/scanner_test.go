package opportunities

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/cryptofolio/internal/domain"
	"github.com/aristath/cryptofolio/internal/modules/indicators"
)

func newScanner() *Scanner {
	return NewScanner(zerolog.Nop(), indicators.NewService(zerolog.Nop()))
}

func candidate(id, symbol string, change24h, change7d, marketCap, volume24h float64) domain.AssetSnapshot {
	return domain.AssetSnapshot{
		ID:        id,
		Symbol:    symbol,
		Name:      symbol,
		Price:     1,
		Change24h: change24h,
		Change7d:  change7d,
		MarketCap: marketCap,
		Volume24h: volume24h,
	}
}

func emptyPortfolio(profile domain.RiskProfile) domain.Portfolio {
	return domain.Portfolio{ID: "p1", Profile: profile}
}

func TestScanOversold(t *testing.T) {
	s := newScanner()

	// Mid cap down 20% on the week with elevated turnover: on sale but
	// still healthy enough to surface.
	hits := s.Scan([]domain.AssetSnapshot{
		candidate("injective", "INJ", -4, -20, 2e9, 400e6),
	}, emptyPortfolio(domain.ProfileBalanced))

	require.Len(t, hits, 1)
	assert.Equal(t, CategoryOversold, hits[0].Category)
	assert.GreaterOrEqual(t, hits[0].Quality, 50.0)
	assert.NotEmpty(t, hits[0].Reasons)
}

func TestScanTrending(t *testing.T) {
	s := newScanner()

	hits := s.Scan([]domain.AssetSnapshot{
		candidate("bitcoin", "BTC", 8, 15, 2000e9, 100e9),
	}, emptyPortfolio(domain.ProfileBalanced))

	require.Len(t, hits, 1)
	assert.Equal(t, CategoryTrending, hits[0].Category)
}

func TestScanDegenPlayProfileGated(t *testing.T) {
	s := newScanner()

	// Sub-1B cap whipsawing on heavy turnover.
	universe := []domain.AssetSnapshot{
		candidate("dogwifhat", "WIF", -15, -10, 500e6, 80e6),
	}

	degenHits := s.Scan(universe, emptyPortfolio(domain.ProfileDegen))
	require.Len(t, degenHits, 1)
	assert.Equal(t, CategoryDegenPlay, degenHits[0].Category)

	// The same setup is invisible to a balanced portfolio.
	balancedHits := s.Scan(universe, emptyPortfolio(domain.ProfileBalanced))
	assert.Empty(t, balancedHits)
}

func TestScanReplacement(t *testing.T) {
	s := newScanner()

	// Held large cap with thin volume and a bad week; the candidate in
	// the same tier clearly outclasses it.
	p := domain.Portfolio{
		ID:      "p1",
		Profile: domain.ProfileBalanced,
		Assets: []domain.PortfolioAsset{
			{
				AssetSnapshot: candidate("solana", "SOL", -2, -30, 80e9, 500e6),
				Allocation:    15,
			},
		},
	}

	hits := s.Scan([]domain.AssetSnapshot{
		candidate("avalanche", "AVAX", 3, 10, 20e9, 3e9),
	}, p)

	require.Len(t, hits, 1)
	assert.Equal(t, CategoryReplacement, hits[0].Category)
	assert.Equal(t, "solana", hits[0].ReplacesAssetID)
	assert.Greater(t, hits[0].Quality, 50.0)
}

func TestScanSkipsHeldAndStable(t *testing.T) {
	s := newScanner()

	p := domain.Portfolio{
		ID:      "p1",
		Profile: domain.ProfileBalanced,
		Assets: []domain.PortfolioAsset{
			{AssetSnapshot: candidate("bitcoin", "BTC", 8, 15, 2000e9, 100e9)},
		},
	}

	hits := s.Scan([]domain.AssetSnapshot{
		candidate("bitcoin", "BTC", 8, 15, 2000e9, 100e9),
		candidate("usd-coin", "USDC", 0, 0, 40e9, 5e9),
	}, p)

	assert.Empty(t, hits)
}

func TestScanRanksByScore(t *testing.T) {
	s := newScanner()

	hits := s.Scan([]domain.AssetSnapshot{
		candidate("bitcoin", "BTC", 8, 15, 2000e9, 100e9),
		candidate("injective", "INJ", -4, -20, 2e9, 400e6),
	}, emptyPortfolio(domain.ProfileBalanced))

	require.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestScanQuietUniverse(t *testing.T) {
	s := newScanner()

	// Nothing moving, nothing cheap, nothing special.
	hits := s.Scan([]domain.AssetSnapshot{
		candidate("litecoin", "LTC", 0.5, 1, 8e9, 50e6),
	}, emptyPortfolio(domain.ProfileBalanced))

	assert.Empty(t, hits)
}
