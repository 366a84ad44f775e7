// Package calculator holds the numeric series primitives behind the signal engine.
//
// Every function takes prices oldest first and returns a derived series whose last
// element lines up with the last input price. Functions fail soft: too little data
// yields an empty series, never an error.
package calculator

import "github.com/markcheno/go-talib"

// SMA returns the arithmetic mean of every window of period consecutive prices.
func SMA(prices []float64, period int) []float64 {
	if period < 1 || len(prices) < period {
		return nil
	}
	return talib.Sma(prices, period)[period-1:]
}

// EMA returns the exponential moving average with multiplier 2/(period+1).
// The first value is the SMA of the first period prices, and each step moves
// by (price-prev)*k so a constant series stays exactly constant.
func EMA(prices []float64, period int) []float64 {
	if period < 1 || len(prices) < period {
		return nil
	}
	return talib.Ema(prices, period)[period-1:]
}

// Last returns the final element of a series.
func Last(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}
