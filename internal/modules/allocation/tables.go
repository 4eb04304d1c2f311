package allocation

import (
	"sort"

	"github.com/aristath/cryptofolio/internal/domain"
)

// The base allocation is data, not branches: one table keyed by risk
// profile for the stable reserve and one for the market-cap-rank tier
// weights. Changing a band means editing a number here, nowhere else.

// stableAllocationTable is the fixed stable-reserve percentage per profile.
var stableAllocationTable = map[domain.RiskProfile]float64{
	domain.ProfileConservative: 10,
	domain.ProfileBalanced:     8,
	domain.ProfileAggressive:   5,
	domain.ProfileDegen:        5,
}

// TierWeights are relative weights per market-cap-rank tier. They are
// normalized across the actual asset set, so they need not sum to 100.
type TierWeights struct {
	Tier1 float64 // market-cap rank 1 (BTC in practice)
	Tier2 float64 // rank 2 (ETH in practice)
	Mid   float64 // ranks 3-10
	Small float64 // rank 11+
}

// baseWeightTable holds the per-profile tier weights.
var baseWeightTable = map[domain.RiskProfile]TierWeights{
	domain.ProfileConservative: {Tier1: 60, Tier2: 25, Mid: 10, Small: 5},
	domain.ProfileBalanced:     {Tier1: 45, Tier2: 25, Mid: 15, Small: 10},
	domain.ProfileAggressive:   {Tier1: 35, Tier2: 20, Mid: 20, Small: 15},
	domain.ProfileDegen:        {Tier1: 20, Tier2: 15, Mid: 25, Small: 30},
}

// Risk-management bounds applied by the adjustment pipeline.
const (
	MaxSingleAssetPct = 40.0
	StableFloorPct    = 5.0
)

// StableAllocation returns the profile's fixed stable-reserve percent.
func StableAllocation(profile domain.RiskProfile) float64 {
	return stableAllocationTable[profile]
}

// tierWeight resolves one asset's weight from its market-cap rank
// among the non-stable assets (rank is 1-based).
func tierWeight(w TierWeights, rank int) float64 {
	switch {
	case rank == 1:
		return w.Tier1
	case rank == 2:
		return w.Tier2
	case rank <= 10:
		return w.Mid
	default:
		return w.Small
	}
}

// BaseAllocation computes the profile's base target allocation for an
// asset set: tier weights normalized so crypto sums to
// 100 - stableAllocation(profile), with the stable reserve receiving
// the profile's fixed percent. Fails fast on a profile outside the
// closed enum.
func BaseAllocation(assets []domain.AssetSnapshot, profile domain.RiskProfile) (map[string]float64, error) {
	if !profile.Valid() {
		return nil, domain.ErrInvalidRiskProfile
	}

	weights := baseWeightTable[profile]

	// Rank non-stable assets by market cap, descending.
	crypto := make([]domain.AssetSnapshot, 0, len(assets))
	var stableID string
	for _, a := range assets {
		if a.IsStable() {
			if stableID == "" {
				stableID = a.ID
			}
			continue
		}
		crypto = append(crypto, a)
	}
	sort.SliceStable(crypto, func(i, j int) bool {
		return crypto[i].MarketCap > crypto[j].MarketCap
	})

	alloc := make(map[string]float64, len(assets))

	cryptoBudget := 100.0
	if stableID != "" {
		stablePct := StableAllocation(profile)
		alloc[stableID] = stablePct
		cryptoBudget = 100 - stablePct
	}

	totalWeight := 0.0
	for i := range crypto {
		totalWeight += tierWeight(weights, i+1)
	}
	if totalWeight <= 0 {
		return alloc, nil
	}

	for i, a := range crypto {
		alloc[a.ID] = tierWeight(weights, i+1) / totalWeight * cryptoBudget
	}

	return alloc, nil
}

// ReviewInterval is the profile's rebalancing cadence in days.
var ReviewInterval = map[domain.RiskProfile]int{
	domain.ProfileConservative: 90, // quarterly
	domain.ProfileBalanced:     30, // monthly
	domain.ProfileAggressive:   14, // biweekly
	domain.ProfileDegen:        7,  // weekly
}
