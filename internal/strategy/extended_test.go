package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinSentinel/internal/calculator"
	"CoinSentinel/internal/model"
)

func historyOf(prices, volumes []float64) *model.PriceHistory {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h := &model.PriceHistory{Asset: "bitcoin", Source: "test", Volumes: volumes}
	for i, p := range prices {
		h.Points = append(h.Points, model.PricePoint{Time: start.AddDate(0, 0, i), Price: p})
	}
	return h
}

func barsOf(prices []float64) []model.OHLCV {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(prices))
	for i, p := range prices {
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p,
			High:   p * 1.01,
			Low:    p * 0.99,
			Close:  p,
			Volume: 1000,
		}
	}
	return bars
}

func constantVolumes(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1000
	}
	return v
}

func TestAnalyze_InsufficientData(t *testing.T) {
	_, err := Analyze(historyOf(geometric(29, 100, 1.01), nil))
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Analyze(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAnalyze_InvalidVolumes(t *testing.T) {
	vols := constantVolumes(40)
	vols[3] = -1
	_, err := Analyze(historyOf(geometric(40, 100, 1.01), vols))
	assert.ErrorIs(t, err, calculator.ErrInvalidInput)
}

func TestAnalyze_SteadyRise(t *testing.T) {
	prices := geometric(90, 100, 1.01)
	rep, err := Analyze(historyOf(prices, constantVolumes(90)))
	require.NoError(t, err)

	assert.Equal(t, "bitcoin", rep.Asset)
	assert.Equal(t, "test", rep.Source)
	require.NotNil(t, rep.Signal)
	assert.Equal(t, 0, rep.Signal.Score)

	ext := rep.Extended
	require.NotNil(t, ext)
	require.NotNil(t, ext.RSI7)
	assert.InDelta(t, 100-100/101.0, *ext.RSI7, 1e-9)
	assert.Equal(t, model.OBVRising, ext.OBVTrend)
	assert.Equal(t, prices[len(prices)-1], ext.Resistance)
	assert.Equal(t, prices[len(prices)-30], ext.Support)
	assert.Equal(t, 1.0, ext.RangePosition)
	assert.Equal(t, model.DivergenceNone, ext.Divergence)
	assert.Equal(t, model.TrendUp, ext.TrendContext)
	assert.Nil(t, ext.ADX)
	assert.Equal(t, model.TrendStrengthUnset, ext.TrendStrength)

	// OBV rising +1, price at resistance -1.
	assert.Equal(t, 0, ext.AdjustedScore)
	// Bollinger and Stochastic RSI agree with NEUTRAL.
	assert.Equal(t, 40, ext.Confidence)
}

func TestAnalyze_WithBars(t *testing.T) {
	prices := geometric(60, 100, 1.01)
	h := model.PriceHistoryFromBars("ethereum", "binance", barsOf(prices))

	rep, err := Analyze(h)
	require.NoError(t, err)

	ext := rep.Extended
	require.NotNil(t, ext.ADX)
	assert.Greater(t, *ext.ADX, 25.0)
	assert.Equal(t, model.TrendStrong, ext.TrendStrength)
	assert.Equal(t, model.OBVRising, ext.OBVTrend)
	assert.Equal(t, 50, ext.Confidence)
}

func TestAnalyze_NoVolumes(t *testing.T) {
	rep, err := Analyze(historyOf(geometric(40, 100, 1.01), nil))
	require.NoError(t, err)
	assert.Equal(t, model.OBVUnknown, rep.Extended.OBVTrend)
	assert.Equal(t, model.TrendUnknown, rep.Extended.TrendContext)
}

func TestAnalyze_ScoreUnchangedByExtensions(t *testing.T) {
	prices := geometric(90, 100, 0.99)
	base, err := GenerateSignal(prices)
	require.NoError(t, err)

	rep, err := Analyze(historyOf(prices, constantVolumes(90)))
	require.NoError(t, err)
	assert.Equal(t, base.Score, rep.Signal.Score)
	assert.Equal(t, base.Signal, rep.Signal.Signal)
	assert.Equal(t, model.OBVFalling, rep.Extended.OBVTrend)
	assert.Equal(t, model.TrendDown, rep.Extended.TrendContext)
}

func TestOBVTrend(t *testing.T) {
	flat := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 102}
	assert.Equal(t, model.OBVFlat, obvTrend(flat))

	rising := []float64{100, 0, 0, 0, 0, 0, 0, 0, 0, 0, 120}
	assert.Equal(t, model.OBVRising, obvTrend(rising))

	falling := []float64{-100, 0, 0, 0, 0, 0, 0, 0, 0, 0, -120}
	assert.Equal(t, model.OBVFalling, obvTrend(falling))

	assert.Equal(t, model.OBVUnknown, obvTrend(flat[:10]))
}

func TestDivergence(t *testing.T) {
	window := func(lo, hi float64) []float64 {
		w := make([]float64, DivergenceWindow)
		for i := range w {
			w[i] = (lo + hi) / 2
		}
		w[3], w[9] = lo, hi
		return w
	}
	join := func(a, b []float64) []float64 { return append(append([]float64{}, a...), b...) }

	tests := []struct {
		name   string
		prices []float64
		rsi    []float64
		want   model.Divergence
	}{
		{"bullish", join(window(90, 110), window(85, 105)), join(window(20, 60), window(25, 55)), model.DivergenceBullish},
		{"bearish", join(window(90, 110), window(95, 115)), join(window(40, 80), window(45, 75)), model.DivergenceBearish},
		{"confirmed lows", join(window(90, 110), window(85, 105)), join(window(20, 60), window(15, 55)), model.DivergenceNone},
		{"confirmed highs", join(window(90, 110), window(95, 115)), join(window(40, 80), window(45, 85)), model.DivergenceNone},
		{"too short", window(90, 110), window(20, 60), model.DivergenceNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, divergence(tt.prices, tt.rsi))
		})
	}
}

func TestTrendContext(t *testing.T) {
	tests := []struct {
		price, ema20 float64
		ema50        *float64
		want         model.TrendContext
	}{
		{110, 105, ptr(100), model.TrendUp},
		{90, 95, ptr(100), model.TrendDown},
		{110, 95, ptr(100), model.TrendSideways},
		{90, 105, ptr(100), model.TrendSideways},
		{110, 105, nil, model.TrendUnknown},
	}
	for _, tt := range tests {
		res := &model.SignalResult{Price: tt.price, EMA20: tt.ema20, EMA50: tt.ema50}
		if got := trendContext(res); got != tt.want {
			t.Errorf("trendContext(%v, %v) = %s, want %s", tt.price, tt.ema20, got, tt.want)
		}
	}
}

func TestAdjustedScore(t *testing.T) {
	res := &model.SignalResult{Score: 2, Price: 101}
	ext := &model.ExtendedAnalysis{
		Divergence: model.DivergenceBullish,
		OBVTrend:   model.OBVRising,
		Support:    100,
		Resistance: 150,
	}
	assert.Equal(t, 5, adjustedScore(res, ext))

	ext = &model.ExtendedAnalysis{
		Divergence: model.DivergenceBearish,
		OBVTrend:   model.OBVFalling,
		Support:    50,
		Resistance: 102,
	}
	assert.Equal(t, -1, adjustedScore(res, ext))

	// Tight range touches both levels.
	ext = &model.ExtendedAnalysis{Divergence: model.DivergenceNone, OBVTrend: model.OBVFlat, Support: 100, Resistance: 102}
	assert.Equal(t, 2, adjustedScore(res, ext))
}

func TestConfidence(t *testing.T) {
	res := &model.SignalResult{
		Signal: model.SignalBuy,
		Verdicts: []model.IndicatorVerdict{
			{Classification: model.ClassBuy},
			{Classification: model.ClassBuy},
			{Classification: model.ClassSell},
		},
	}
	assert.Equal(t, 67, confidence(res, &model.ExtendedAnalysis{}))
	assert.Equal(t, 77, confidence(res, &model.ExtendedAnalysis{TrendStrength: model.TrendStrong}))

	res.Verdicts = res.Verdicts[:2]
	assert.Equal(t, 100, confidence(res, &model.ExtendedAnalysis{TrendStrength: model.TrendStrong}))

	assert.Equal(t, 0, confidence(&model.SignalResult{}, &model.ExtendedAnalysis{}))
}
