package model

import "time"

// OBVTrend is the direction of on-balance volume.
type OBVTrend string

const (
	OBVRising  OBVTrend = "rising"
	OBVFalling OBVTrend = "falling"
	OBVFlat    OBVTrend = "flat"
	OBVUnknown OBVTrend = "unknown"
)

// Divergence between price and RSI extremes.
type Divergence string

const (
	DivergenceBullish Divergence = "bullish"
	DivergenceBearish Divergence = "bearish"
	DivergenceNone    Divergence = "none"
)

// TrendContext describes the moving-average alignment.
type TrendContext string

const (
	TrendUp       TrendContext = "uptrend"
	TrendDown     TrendContext = "downtrend"
	TrendSideways TrendContext = "sideways"
	TrendUnknown  TrendContext = "unknown"
)

// TrendStrength classifies ADX.
type TrendStrength string

const (
	TrendStrong        TrendStrength = "strong"
	TrendWeak          TrendStrength = "weak"
	TrendStrengthUnset TrendStrength = "unknown"
)

// ExtendedAnalysis carries the indicators that sit on top of the base signal.
// None of them change SignalResult.Score.
type ExtendedAnalysis struct {
	RSI7          *float64      `json:"rsi7"`
	OBVTrend      OBVTrend      `json:"obvTrend"`
	Support       float64       `json:"support"`
	Resistance    float64       `json:"resistance"`
	RangePosition float64       `json:"rangePosition"`
	Divergence    Divergence    `json:"divergence"`
	ADX           *float64      `json:"adx"`
	TrendStrength TrendStrength `json:"trendStrength"`
	TrendContext  TrendContext  `json:"trendContext"`
	Confidence    int           `json:"confidence"`
	AdjustedScore int           `json:"adjustedScore"`
}

// Report is what the outer layers publish for one asset.
type Report struct {
	Asset       string            `json:"asset"`
	Source      string            `json:"source"`
	Signal      *SignalResult     `json:"result"`
	Extended    *ExtendedAnalysis `json:"extended"`
	GeneratedAt time.Time         `json:"generatedAt"`
}
