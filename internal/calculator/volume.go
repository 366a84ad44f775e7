package calculator

import "github.com/markcheno/go-talib"

// OBV returns on-balance volume. closes and volumes must be aligned.
func OBV(closes, volumes []float64) []float64 {
	if len(closes) == 0 || len(closes) != len(volumes) {
		return nil
	}
	return talib.Obv(closes, volumes)
}

// ADX returns the average directional index with the warm-up trimmed off,
// so the result ends at the last bar.
func ADX(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	warmup := 2*period - 1
	if period < 1 || len(highs) != n || len(lows) != n || n <= warmup {
		return nil
	}
	return talib.Adx(highs, lows, closes, period)[warmup:]
}
