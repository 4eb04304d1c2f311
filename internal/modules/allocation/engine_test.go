package allocation

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/cryptofolio/internal/domain"
)

func snap(id, symbol string, marketCap float64) domain.AssetSnapshot {
	return domain.AssetSnapshot{ID: id, Symbol: symbol, Name: symbol, MarketCap: marketCap}
}

func benchAssets() []domain.AssetSnapshot {
	return []domain.AssetSnapshot{
		snap("usd-coin", "USDC", 40e9),
		snap("bitcoin", "BTC", 2000e9),
		snap("ethereum", "ETH", 400e9),
	}
}

func TestBaseAllocationConservative(t *testing.T) {
	base, err := BaseAllocation(benchAssets(), domain.ProfileConservative)
	require.NoError(t, err)

	// Stable reserve fixed at 10%, the 90% crypto budget split 60:25
	// between the two ranked assets.
	assert.InDelta(t, 10.0, base["usd-coin"], 0.001)
	assert.InDelta(t, 63.529, base["bitcoin"], 0.01)
	assert.InDelta(t, 26.471, base["ethereum"], 0.01)
}

func TestBaseAllocationRanksTiers(t *testing.T) {
	assets := append(benchAssets(),
		snap("solana", "SOL", 80e9),
		snap("dogwifhat", "WIF", 400e6),
	)

	base, err := BaseAllocation(assets, domain.ProfileDegen)
	require.NoError(t, err)

	// Degen tilts toward the tail: the mid-tier weight beats the
	// benchmark weights, so SOL outranks ETH in the 95% budget.
	assert.InDelta(t, 5.0, base["usd-coin"], 0.001)
	assert.Greater(t, base["solana"], base["ethereum"])

	sum := 0.0
	for _, v := range base {
		sum += v
	}
	assert.InDelta(t, 100.0, sum, domain.AllocationTolerance)
}

func TestBaseAllocationInvalidProfile(t *testing.T) {
	_, err := BaseAllocation(benchAssets(), domain.RiskProfile("yolo"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRiskProfile)
}

func TestBuildPlanBearMarket(t *testing.T) {
	e := NewEngine(zerolog.Nop())

	ms := domain.MarketSentiment{
		Overall:         domain.SentimentBearish,
		FearGreedIndex:  15,
		MarketMomentum:  -38,
		VolatilityIndex: 65,
		IsBearMarket:    true,
		RiskLevel:       domain.RiskHigh,
	}

	plan, err := e.BuildPlan(benchAssets(), domain.ProfileConservative, ms)
	require.NoError(t, err)

	// The bear step raises the stable reserve from the 10% base to 30%.
	foundBearRaise := false
	for _, adj := range plan.Adjustments {
		if adj.AssetID == "usd-coin" && adj.From == 10 && adj.To == 30 {
			foundBearRaise = true
		}
	}
	assert.True(t, foundBearRaise, "expected the bear-market stable raise in the audit trail")

	// Concentration cap holds after every later step.
	assert.LessOrEqual(t, plan.Adjusted["bitcoin"], MaxSingleAssetPct+domain.AllocationTolerance)

	// Extreme fear plus high risk leaves the reserve as the largest slice.
	assert.Greater(t, plan.Adjusted["usd-coin"], plan.Adjusted["bitcoin"])

	sum := 0.0
	for _, v := range plan.Adjusted {
		sum += v
	}
	assert.InDelta(t, 100.0, sum, domain.AllocationTolerance)

	assert.Equal(t, domain.RiskHigh, plan.RiskLevel)
	assert.NotEmpty(t, plan.Recommendations)
}

func TestBuildPlanBullMarketDeploysReserve(t *testing.T) {
	e := NewEngine(zerolog.Nop())

	ms := domain.MarketSentiment{
		Overall:         domain.SentimentBullish,
		FearGreedIndex:  70,
		MarketMomentum:  35,
		VolatilityIndex: 40,
		IsBullMarket:    true,
		RiskLevel:       domain.RiskMedium,
	}

	plan, err := e.BuildPlan(benchAssets(), domain.ProfileBalanced, ms)
	require.NoError(t, err)

	// Bull market trims the stable reserve toward the floor.
	assert.InDelta(t, 8.0, plan.Base["usd-coin"], 0.001)
	assert.GreaterOrEqual(t, plan.Adjusted["usd-coin"], StableFloorPct-domain.AllocationTolerance)
	assert.Less(t, plan.Adjusted["usd-coin"], plan.Base["usd-coin"])

	sum := 0.0
	for _, v := range plan.Adjusted {
		sum += v
	}
	assert.InDelta(t, 100.0, sum, domain.AllocationTolerance)
}

func TestBuildPlanAltcoinSeasonRotation(t *testing.T) {
	e := NewEngine(zerolog.Nop())

	assets := append(benchAssets(), snap("solana", "SOL", 80e9))

	ms := domain.MarketSentiment{
		Overall:          domain.SentimentBullish,
		FearGreedIndex:   60,
		MarketMomentum:   20,
		VolatilityIndex:  45,
		AltcoinSeasonIdx: 80,
		IsAltcoinSeason:  true,
		IsBullMarket:     true,
		RiskLevel:        domain.RiskMedium,
	}

	plan, err := e.BuildPlan(assets, domain.ProfileConservative, ms)
	require.NoError(t, err)

	rotated := false
	for _, adj := range plan.Adjustments {
		if adj.AssetID == "bitcoin" && adj.To < adj.From {
			rotated = true
		}
	}
	assert.True(t, rotated, "expected BTC weight rotated out during altcoin season")
}

func TestBuildPlanInvalidProfile(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	_, err := e.BuildPlan(benchAssets(), domain.RiskProfile("yolo"), domain.MarketSentiment{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRiskProfile)
}

func TestBuildPlanNoAssets(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	_, err := e.BuildPlan(nil, domain.ProfileBalanced, domain.MarketSentiment{})
	require.Error(t, err)
}

func TestNormalizeIdempotent(t *testing.T) {
	alloc := map[string]float64{"a": 20, "b": 30, "c": 10}

	once := Normalize(alloc)
	twice := Normalize(once)

	sum := 0.0
	for _, v := range once {
		sum += v
	}
	assert.InDelta(t, 100.0, sum, domain.AllocationTolerance)
	assert.Equal(t, once, twice)
}
