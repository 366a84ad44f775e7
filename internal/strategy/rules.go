package strategy

import (
	"github.com/shopspring/decimal"

	"CoinSentinel/internal/calculator"
	"CoinSentinel/internal/model"
)

// Snapshot holds the current value of every indicator the rule table reads.
// Pointer fields are nil while the underlying series is still warming up.
type Snapshot struct {
	Price         float64
	RSI           float64
	MACD          *float64
	MACDSignal    *float64
	Histogram     *float64
	PrevHistogram *float64
	EMA20         float64
	EMA50         *float64
	Bollinger     calculator.Band
	StochRSI      float64
}

// Rule is one row of an indicator's decision list.
// A nil When always matches.
type Rule struct {
	When    func(s *Snapshot) bool
	Class   model.Classification
	Delta   int
	Message string
}

// IndicatorRules is the decision list for one indicator. The first matching Rule wins.
// A nil Available means the indicator is always evaluated.
type IndicatorRules struct {
	Name      string
	Available func(s *Snapshot) bool
	Value     func(s *Snapshot) string
	Rules     []Rule
}

// DefaultRules is the scoring table used by GenerateSignal, in output order.
var DefaultRules = []IndicatorRules{
	{
		Name:  "RSI",
		Value: func(s *Snapshot) string { return fixed(s.RSI) },
		Rules: []Rule{
			{When: func(s *Snapshot) bool { return s.RSI < 30 }, Class: model.ClassBuy, Delta: 2, Message: "Oversold"},
			{When: func(s *Snapshot) bool { return s.RSI > 70 }, Class: model.ClassSell, Delta: -2, Message: "Overbought"},
			{Class: model.ClassNeutral, Message: "Neutral momentum"},
		},
	},
	{
		Name:      "MACD",
		Available: func(s *Snapshot) bool { return s.Histogram != nil },
		Value:     func(s *Snapshot) string { return fixed(*s.Histogram) },
		Rules: []Rule{
			{
				When: func(s *Snapshot) bool {
					return s.PrevHistogram != nil && *s.PrevHistogram <= 0 && *s.Histogram > 0
				},
				Class: model.ClassBuy, Delta: 2, Message: "Bullish crossover",
			},
			{
				When: func(s *Snapshot) bool {
					return s.PrevHistogram != nil && *s.PrevHistogram >= 0 && *s.Histogram < 0
				},
				Class: model.ClassSell, Delta: -2, Message: "Bearish crossover",
			},
			{When: func(s *Snapshot) bool { return *s.Histogram > 0 }, Class: model.ClassBuy, Delta: 1, Message: "Bullish momentum"},
			{Class: model.ClassSell, Delta: -1, Message: "Bearish momentum"},
		},
	},
	{
		Name:      "EMA20/50",
		Available: func(s *Snapshot) bool { return s.EMA50 != nil },
		Value:     func(s *Snapshot) string { return fixed(s.EMA20) + " / " + fixed(*s.EMA50) },
		Rules: []Rule{
			{When: func(s *Snapshot) bool { return s.EMA20 > *s.EMA50 }, Class: model.ClassBuy, Delta: 1, Message: "EMA20 above EMA50"},
			{Class: model.ClassSell, Delta: -1, Message: "EMA20 below EMA50"},
		},
	},
	{
		Name:  "Bollinger Bands",
		Value: func(s *Snapshot) string { return fixed(s.Bollinger.Lower) + " - " + fixed(s.Bollinger.Upper) },
		Rules: []Rule{
			{When: func(s *Snapshot) bool { return s.Price < s.Bollinger.Lower }, Class: model.ClassBuy, Delta: 1, Message: "Price below lower band"},
			{When: func(s *Snapshot) bool { return s.Price > s.Bollinger.Upper }, Class: model.ClassSell, Delta: -1, Message: "Price above upper band"},
			{Class: model.ClassNeutral, Message: "Price inside bands"},
		},
	},
	{
		Name:  "Stochastic RSI",
		Value: func(s *Snapshot) string { return fixed(s.StochRSI) },
		Rules: []Rule{
			{When: func(s *Snapshot) bool { return s.StochRSI < 20 }, Class: model.ClassBuy, Delta: 1, Message: "Oversold"},
			{When: func(s *Snapshot) bool { return s.StochRSI > 80 }, Class: model.ClassSell, Delta: -1, Message: "Overbought"},
			{Class: model.ClassNeutral, Message: "Neutral"},
		},
	},
}

// Thresholds maps a total score to the overall verdict. Checked in order.
var Thresholds = []struct {
	Match    func(score int) bool
	Signal   model.Signal
	Strength model.Strength
}{
	{func(score int) bool { return score >= 4 }, model.SignalBuy, model.StrengthStrong},
	{func(score int) bool { return score >= 2 }, model.SignalBuy, model.StrengthModerate},
	{func(score int) bool { return score <= -4 }, model.SignalSell, model.StrengthStrong},
	{func(score int) bool { return score <= -2 }, model.SignalSell, model.StrengthModerate},
}

// classify maps a total score to a signal and strength.
func classify(score int) (model.Signal, model.Strength) {
	for _, t := range Thresholds {
		if t.Match(score) {
			return t.Signal, t.Strength
		}
	}
	return model.SignalNeutral, model.StrengthNone
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
