package domain

import "fmt"

// RiskProfile is the closed set of supported portfolio risk profiles.
// Every lookup table in the allocation, rebalancing and stop-loss modules
// is keyed by this type; adding a profile means extending all of them.
type RiskProfile string

const (
	ProfileConservative RiskProfile = "conservative"
	ProfileBalanced     RiskProfile = "balanced"
	ProfileAggressive   RiskProfile = "aggressive"
	ProfileDegen        RiskProfile = "degen"
)

// AllRiskProfiles lists the supported profiles in ascending risk order.
var AllRiskProfiles = []RiskProfile{
	ProfileConservative,
	ProfileBalanced,
	ProfileAggressive,
	ProfileDegen,
}

// Valid reports whether the profile is a member of the closed set.
func (p RiskProfile) Valid() bool {
	switch p {
	case ProfileConservative, ProfileBalanced, ProfileAggressive, ProfileDegen:
		return true
	}
	return false
}

// ParseRiskProfile converts a string to a RiskProfile, rejecting values
// outside the closed set before any computation runs.
func ParseRiskProfile(s string) (RiskProfile, error) {
	p := RiskProfile(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRiskProfile, s)
	}
	return p, nil
}

// Urgency classifies how quickly a recommendation should be acted on.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// RiskLevel is the market-wide risk classification emitted by the
// sentiment scorer and carried on allocation plans.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskCategory classifies how tight a stop-loss distance is.
type RiskCategory string

const (
	CategoryConservative RiskCategory = "conservative"
	CategoryModerate     RiskCategory = "moderate"
	CategoryAggressive   RiskCategory = "aggressive"
)

// SentimentClass is the overall market classification.
type SentimentClass string

const (
	SentimentBullish SentimentClass = "bullish"
	SentimentBearish SentimentClass = "bearish"
	SentimentNeutral SentimentClass = "neutral"
)

// RebalanceAction is the recommended portfolio action.
type RebalanceAction string

const (
	ActionRebalance        RebalanceAction = "rebalance"
	ActionPartialRebalance RebalanceAction = "partial-rebalance"
	ActionHold             RebalanceAction = "hold"
)

// TradeSide is the per-asset direction inside a rebalancing plan.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
	SideHold TradeSide = "hold"
)
