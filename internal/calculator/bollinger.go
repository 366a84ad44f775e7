package calculator

import "math"

// Band is one Bollinger envelope sample.
type Band struct {
	Upper float64
	Mid   float64
	Lower float64
}

// Bollinger returns mean ± mult·σ over every trailing window of period prices.
// σ is the population standard deviation.
func Bollinger(prices []float64, period int, mult float64) []Band {
	if period < 1 || len(prices) < period {
		return nil
	}

	out := make([]Band, 0, len(prices)-period+1)
	for i := period - 1; i < len(prices); i++ {
		window := prices[i-period+1 : i+1]

		sum := 0.0
		for _, p := range window {
			sum += p
		}
		mean := sum / float64(period)

		variance := 0.0
		for _, p := range window {
			d := p - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(period))

		out = append(out, Band{
			Upper: mean + mult*std,
			Mid:   mean,
			Lower: mean - mult*std,
		})
	}
	return out
}
