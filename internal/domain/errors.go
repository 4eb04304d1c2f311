package domain

import "errors"

// Engine error taxonomy for the decision modules; the indicator
// calculators carry their own sentinels in pkg/formulas.
var (
	// ErrMissingBenchmarkAsset - sentiment scoring requires both BTC and
	// ETH in the snapshot batch. Fatal for that call; no partial
	// sentiment is ever returned.
	ErrMissingBenchmarkAsset = errors.New("missing benchmark asset")

	// ErrInvalidRiskProfile - a profile outside the closed enum.
	// Rejected before any computation.
	ErrInvalidRiskProfile = errors.New("invalid risk profile")

	// ErrNotFound - a requested portfolio or preference key does not
	// exist in the store.
	ErrNotFound = errors.New("not found")
)
