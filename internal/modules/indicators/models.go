package indicators

import (
	"github.com/aristath/cryptofolio/pkg/formulas"
)

// VolumeTrend classifies 24h trading interest relative to market cap.
type VolumeTrend string

const (
	VolumeThin     VolumeTrend = "thin"
	VolumeNormal   VolumeTrend = "normal"
	VolumeElevated VolumeTrend = "elevated"
)

// HoldingCategory is the closed set of holding-period buckets.
type HoldingCategory string

const (
	HoldLongTerm    HoldingCategory = "long-term"
	HoldMediumTerm  HoldingCategory = "medium-term"
	HoldShortTerm   HoldingCategory = "short-term"
	HoldSpeculative HoldingCategory = "speculative"
)

// QualityScore is the weighted composite quality assessment of an asset.
type QualityScore struct {
	Score      float64            `json:"score"`      // 0-100
	Components map[string]float64 `json:"components"` // per-component 0-100
}

// HoldingEstimate is the recommended holding-period bucket with the
// rule-table reasoning that produced it.
type HoldingEstimate struct {
	Category   HoldingCategory `json:"category"`
	Confidence float64         `json:"confidence"` // 0-100
	Reasoning  []string        `json:"reasoning"`
}

// Result is the full indicator set for one asset. Pointer fields are
// nil when the price series was too short for that indicator; the
// Degraded list names them so a consumer can show "indicator
// unavailable" instead of a wrong number.
type Result struct {
	AssetID string `json:"asset_id"`
	Symbol  string `json:"symbol"`

	EMA50     *float64                  `json:"ema_50,omitempty"`
	EMA200    *float64                  `json:"ema_200,omitempty"`
	RSI       *float64                  `json:"rsi,omitempty"`
	MACD      *formulas.MACDResult      `json:"macd,omitempty"`
	Bollinger *formulas.BollingerResult `json:"bollinger,omitempty"`
	Levels    *formulas.Levels          `json:"levels,omitempty"`
	Risk      *formulas.RiskMetrics     `json:"risk,omitempty"`

	VolumeRatio float64     `json:"volume_ratio"` // 24h volume / market cap
	VolumeTrend VolumeTrend `json:"volume_trend"`

	Quality       QualityScore    `json:"quality"`
	HoldingPeriod HoldingEstimate `json:"holding_period"`

	Degraded []string `json:"degraded,omitempty"`
}
