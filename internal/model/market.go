package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PricePoint is one closing price sample.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// PriceHistory holds the raw series for one asset, oldest first.
// Volumes, when present, is aligned index-for-index with Points.
// Bars is only filled by providers that return full candles.
type PriceHistory struct {
	Asset     string       `json:"asset"`
	Source    string       `json:"source"`
	Points    []PricePoint `json:"points"`
	Volumes   []float64    `json:"volumes,omitempty"`
	Bars      []OHLCV      `json:"bars,omitempty"`
	FetchedAt time.Time    `json:"fetchedAt"`
}

// Closes extracts the price column.
func (h *PriceHistory) Closes() []float64 {
	closes := make([]float64, len(h.Points))
	for i, p := range h.Points {
		closes[i] = p.Price
	}
	return closes
}

// HasVolumes reports whether a volume series aligned with the prices is present.
func (h *PriceHistory) HasVolumes() bool {
	return len(h.Volumes) > 0 && len(h.Volumes) == len(h.Points)
}

// HighsLows splits the bars into high and low columns.
func (h *PriceHistory) HighsLows() (highs, lows, closes []float64) {
	highs = make([]float64, len(h.Bars))
	lows = make([]float64, len(h.Bars))
	closes = make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	return highs, lows, closes
}

// PriceHistoryFromBars builds a history whose points and volumes come from the bars.
func PriceHistoryFromBars(asset, source string, bars []OHLCV) *PriceHistory {
	h := &PriceHistory{
		Asset:     asset,
		Source:    source,
		Points:    make([]PricePoint, len(bars)),
		Volumes:   make([]float64, len(bars)),
		Bars:      bars,
		FetchedAt: time.Now(),
	}
	for i, b := range bars {
		h.Points[i] = PricePoint{Time: b.Time, Price: b.Close}
		h.Volumes[i] = b.Volume
	}
	return h
}
