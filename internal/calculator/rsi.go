package calculator

// zeroLossRS is the relative strength used when the average loss is exactly zero.
// It caps RSI at 100 - 100/101 (about 99.01) instead of 100.
const zeroLossRS = 100.0

// stochFlatValue is reported when the RSI window has no range.
const stochFlatValue = 50.0

// RSI computes the Wilder-smoothed relative strength index.
// Averages are seeded from the first period deltas and one value is emitted for
// every delta after that, so the result has len(prices)-1-period elements.
func RSI(prices []float64, period int) []float64 {
	if period < 1 || len(prices)-1 <= period {
		return nil
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(prices)-1-period)
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiFromAverages(avgGain, avgLoss))
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	rs := zeroLossRS
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	return 100 - 100/(1+rs)
}

// StochRSI re-normalizes RSI against its own trailing min/max over stochPeriod values.
func StochRSI(prices []float64, rsiPeriod, stochPeriod int) []float64 {
	rsi := RSI(prices, rsiPeriod)
	if stochPeriod < 1 || len(rsi) < stochPeriod {
		return nil
	}

	out := make([]float64, 0, len(rsi)-stochPeriod+1)
	for i := stochPeriod - 1; i < len(rsi); i++ {
		lo, hi := minMax(rsi[i-stochPeriod+1 : i+1])
		if hi == lo {
			out = append(out, stochFlatValue)
			continue
		}
		out = append(out, (rsi[i]-lo)/(hi-lo)*100)
	}
	return out
}

func minMax(window []float64) (lo, hi float64) {
	lo, hi = window[0], window[0]
	for _, v := range window[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
