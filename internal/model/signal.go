package model

// Classification is the per-indicator verdict.
type Classification string

const (
	ClassBuy     Classification = "buy"
	ClassSell    Classification = "sell"
	ClassNeutral Classification = "neutral"
)

// Signal is the overall verdict of one evaluation.
type Signal string

const (
	SignalBuy     Signal = "BUY"
	SignalSell    Signal = "SELL"
	SignalNeutral Signal = "NEUTRAL"
)

// Strength qualifies the overall verdict.
type Strength string

const (
	StrengthNone     Strength = "none"
	StrengthModerate Strength = "moderate"
	StrengthStrong   Strength = "strong"
)

// IndicatorVerdict is one row of the rule evaluation.
type IndicatorVerdict struct {
	Name           string         `json:"indicator"`
	Value          string         `json:"value"`
	Message        string         `json:"message"`
	Classification Classification `json:"signal"`
}

// SignalResult is the output of the signal engine for one price series.
// Pointer fields are nil when the series is too short to warm them up.
type SignalResult struct {
	Signal   Signal             `json:"signal"`
	Strength Strength           `json:"strength"`
	Score    int                `json:"score"`
	Verdicts []IndicatorVerdict `json:"signals"`

	Price          float64  `json:"price"`
	RSI            float64  `json:"rsi"`
	MACD           *float64 `json:"macd"`
	MACDSignal     *float64 `json:"macdSignal"`
	MACDHistogram  *float64 `json:"macdHistogram"`
	EMA20          float64  `json:"ema20"`
	EMA50          *float64 `json:"ema50"`
	BollingerUpper float64  `json:"bollingerUpper"`
	BollingerMid   float64  `json:"bollingerMid"`
	BollingerLower float64  `json:"bollingerLower"`
	StochRSI       float64  `json:"stochRsi"`
}

// Count returns how many verdict rows carry the given classification.
func (r *SignalResult) Count(c Classification) int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Classification == c {
			n++
		}
	}
	return n
}
