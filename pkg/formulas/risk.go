package formulas

import "fmt"

// RiskMetrics represents position sizing derived from the distance to
// support (risk) and resistance (reward).
type RiskMetrics struct {
	RiskPerUnit      float64 `json:"risk_per_unit"`   // price - support
	RewardPerUnit    float64 `json:"reward_per_unit"` // resistance - price
	RiskRewardRatio  float64 `json:"risk_reward_ratio"`
	GoodRiskReward   bool    `json:"good_risk_reward"` // ratio >= 2
	MaxRiskAmount    float64 `json:"max_risk_amount"`  // accountSize * maxRiskPercent/100
	RecommendedUnits float64 `json:"recommended_units"`
	Degenerate       bool    `json:"degenerate"` // near-zero risk per unit, sizing zeroed
}

// maxRecommendedUnits caps sizing so a near-zero risk-per-unit cannot
// recommend a runaway position.
const maxRecommendedUnits = 1000

// CalculateRiskMetrics computes position sizing from the support/
// resistance distances. A zero or near-zero risk-per-unit fails with
// ErrDegenerateRatio; the returned metrics still carry the fallback of
// zero recommended units, never an Inf/NaN.
func CalculateRiskMetrics(currentPrice, support, resistance, accountSize, maxRiskPercent float64) (RiskMetrics, error) {
	if maxRiskPercent <= 0 {
		maxRiskPercent = 2
	}

	risk := currentPrice - support
	reward := resistance - currentPrice
	maxRiskAmount := accountSize * maxRiskPercent / 100

	m := RiskMetrics{
		RiskPerUnit:   risk,
		RewardPerUnit: reward,
		MaxRiskAmount: maxRiskAmount,
	}

	// Near-zero denominator guard: anything below a millionth of the
	// price cannot produce a meaningful ratio.
	if risk <= currentPrice*1e-6 {
		m.Degenerate = true
		m.RiskRewardRatio = 0
		m.RecommendedUnits = 0
		return m, fmt.Errorf("%w: risk per unit %g at price %g", ErrDegenerateRatio, risk, currentPrice)
	}

	m.RiskRewardRatio = reward / risk
	m.GoodRiskReward = m.RiskRewardRatio >= 2

	units := maxRiskAmount / risk
	if units > maxRecommendedUnits {
		units = maxRecommendedUnits
	}
	if units < 0 {
		units = 0
	}
	m.RecommendedUnits = units

	return m, nil
}
