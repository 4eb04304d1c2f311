package indicators

// Default indicator windows.
const (
	EMAShortPeriod  = 50
	EMALongPeriod   = 200
	RSIPeriod       = 14
	MACDFastPeriod  = 12
	MACDSlowPeriod  = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerStdDev = 2.0
	LevelsLookback  = 100

	DefaultMaxRiskPercent = 2.0
)

// Quality score component weights (sum to 1.0).
const (
	WeightEMAStrength  = 0.30
	WeightRSIHealth    = 0.25
	WeightVolumeHealth = 0.20
	WeightMarketCap    = 0.15
	WeightMomentum     = 0.10
)

// RSI interpretation bands.
const (
	RSIOversold   = 30.0
	RSIOverbought = 70.0
)

// Turnover (24h volume / market cap) bands for volume health. The
// thresholds separate thin, normal and elevated trading interest.
const (
	TurnoverThin     = 0.01
	TurnoverNormal   = 0.05
	TurnoverElevated = 0.10
)

// Market cap tier boundaries (absolute, in quote currency).
const (
	MegaCapFloor  = 100e9
	LargeCapFloor = 10e9
	MidCapFloor   = 1e9
	SmallCapFloor = 100e6
)
