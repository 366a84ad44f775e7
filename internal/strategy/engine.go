// Package strategy turns a price series into a scored trading signal.
package strategy

import (
	"CoinSentinel/internal/calculator"
	"CoinSentinel/internal/model"
)

// Indicator parameters used by GenerateSignal.
const (
	MinSamples      = 30
	RSIPeriod       = 14
	StochPeriod     = 14
	FastEMAPeriod   = 20
	SlowEMAPeriod   = 50
	BollingerPeriod = 20
	BollingerMult   = 2.0
)

// GenerateSignal computes every indicator over prices (oldest first) and scores them.
// It returns (nil, nil) when fewer than MinSamples prices are given, and an error
// wrapping calculator.ErrInvalidInput when a price is not a finite positive number.
func GenerateSignal(prices []float64) (*model.SignalResult, error) {
	if err := calculator.ValidatePrices(prices); err != nil {
		return nil, err
	}
	snap := NewSnapshot(prices)
	if snap == nil {
		return nil, nil
	}
	return Evaluate(snap), nil
}

// NewSnapshot extracts the current indicator values from prices.
// It returns nil when the series is shorter than MinSamples.
func NewSnapshot(prices []float64) *Snapshot {
	if len(prices) < MinSamples {
		return nil
	}

	s := &Snapshot{Price: prices[len(prices)-1]}
	s.RSI, _ = calculator.Last(calculator.RSI(prices, RSIPeriod))
	s.EMA20, _ = calculator.Last(calculator.EMA(prices, FastEMAPeriod))
	s.EMA50 = lastPtr(calculator.EMA(prices, SlowEMAPeriod))
	s.StochRSI, _ = calculator.Last(calculator.StochRSI(prices, RSIPeriod, StochPeriod))

	m := calculator.MACD(prices)
	s.MACD = lastPtr(m.Line)
	s.MACDSignal = lastPtr(m.Signal)
	s.Histogram = lastPtr(m.Histogram)
	if n := len(m.Histogram); n >= 2 {
		s.PrevHistogram = lastPtr(m.Histogram[:n-1])
	}

	bands := calculator.Bollinger(prices, BollingerPeriod, BollingerMult)
	s.Bollinger = bands[len(bands)-1]
	return s
}

// Evaluate scores a snapshot against DefaultRules.
func Evaluate(s *Snapshot) *model.SignalResult {
	return EvaluateWith(s, DefaultRules)
}

// EvaluateWith scores a snapshot against a custom rule table.
func EvaluateWith(s *Snapshot, table []IndicatorRules) *model.SignalResult {
	res := &model.SignalResult{
		Price:          s.Price,
		RSI:            s.RSI,
		MACD:           s.MACD,
		MACDSignal:     s.MACDSignal,
		MACDHistogram:  s.Histogram,
		EMA20:          s.EMA20,
		EMA50:          s.EMA50,
		BollingerUpper: s.Bollinger.Upper,
		BollingerMid:   s.Bollinger.Mid,
		BollingerLower: s.Bollinger.Lower,
		StochRSI:       s.StochRSI,
	}

	for _, ind := range table {
		if ind.Available != nil && !ind.Available(s) {
			continue
		}
		for _, r := range ind.Rules {
			if r.When != nil && !r.When(s) {
				continue
			}
			res.Score += r.Delta
			res.Verdicts = append(res.Verdicts, model.IndicatorVerdict{
				Name:           ind.Name,
				Value:          ind.Value(s),
				Message:        r.Message,
				Classification: r.Class,
			})
			break
		}
	}

	res.Signal, res.Strength = classify(res.Score)
	return res
}

func lastPtr(series []float64) *float64 {
	v, ok := calculator.Last(series)
	if !ok {
		return nil
	}
	return &v
}
