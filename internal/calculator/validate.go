package calculator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput reports a price or volume that is not a finite, usable number.
var ErrInvalidInput = errors.New("invalid input")

// ValidatePrices rejects NaN, infinite and non-positive prices.
func ValidatePrices(prices []float64) error {
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return fmt.Errorf("%w: price[%d]=%v", ErrInvalidInput, i, p)
		}
	}
	return nil
}

// ValidateVolumes rejects NaN, infinite and negative volumes.
func ValidateVolumes(volumes []float64) error {
	for i, v := range volumes {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: volume[%d]=%v", ErrInvalidInput, i, v)
		}
	}
	return nil
}
