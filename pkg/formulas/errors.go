package formulas

import "errors"

// Calculator error taxonomy. The functions in this package return these
// instead of panicking or propagating Inf/NaN; callers decide whether
// to degrade (omit an indicator) or abort.
var (
	// ErrInsufficientData - a time series shorter than an indicator's
	// minimum window. Recoverable: the caller omits that indicator.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerateRatio - a risk/reward or sizing division with a zero
	// or near-zero denominator. The returned metrics carry the zero-unit
	// fallback rather than Inf/NaN.
	ErrDegenerateRatio = errors.New("degenerate ratio")
)
