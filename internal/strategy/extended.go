package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"CoinSentinel/internal/calculator"
	"CoinSentinel/internal/model"
)

// ErrInsufficientData is returned by Analyze when the history is too short to score.
var ErrInsufficientData = errors.New("insufficient price history")

// Extended analysis parameters.
const (
	ShortRSIPeriod    = 7
	OBVLookback       = 10
	OBVFlatBand       = 0.05
	RangeLookback     = 30
	DivergenceWindow  = 14
	ADXPeriod         = 14
	ADXStrongLevel    = 25.0
	NearLevelPct      = 0.02
	ADXConfidenceBump = 10
)

// Analyze runs GenerateSignal over the history closes and layers the extended
// indicators on top. Volume and OHLC based indicators are skipped when the
// provider did not supply them.
func Analyze(h *model.PriceHistory) (*model.Report, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: no history", ErrInsufficientData)
	}
	closes := h.Closes()

	res, err := GenerateSignal(closes)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrInsufficientData, len(closes), MinSamples)
	}

	ext := &model.ExtendedAnalysis{
		RSI7:          lastPtr(calculator.RSI(closes, ShortRSIPeriod)),
		OBVTrend:      model.OBVUnknown,
		TrendStrength: model.TrendStrengthUnset,
		TrendContext:  trendContext(res),
	}

	if h.HasVolumes() {
		if err := calculator.ValidateVolumes(h.Volumes); err != nil {
			return nil, err
		}
		ext.OBVTrend = obvTrend(calculator.OBV(closes, h.Volumes))
	}

	ext.Resistance, ext.Support, _ = calculator.PriceRange(closes, RangeLookback)
	ext.RangePosition, _ = calculator.RangePosition(res.Price, ext.Resistance, ext.Support)
	ext.Divergence = divergence(closes, calculator.RSI(closes, RSIPeriod))

	if len(h.Bars) >= 2*ADXPeriod {
		highs, lows, barCloses := h.HighsLows()
		if adx := lastPtr(calculator.ADX(highs, lows, barCloses, ADXPeriod)); adx != nil {
			ext.ADX = adx
			ext.TrendStrength = model.TrendWeak
			if *adx >= ADXStrongLevel {
				ext.TrendStrength = model.TrendStrong
			}
		}
	}

	ext.AdjustedScore = adjustedScore(res, ext)
	ext.Confidence = confidence(res, ext)

	return &model.Report{
		Asset:       h.Asset,
		Source:      h.Source,
		Signal:      res,
		Extended:    ext,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// obvTrend compares the latest OBV with the value OBVLookback samples earlier.
func obvTrend(obv []float64) model.OBVTrend {
	if len(obv) <= OBVLookback {
		return model.OBVUnknown
	}
	recent := obv[len(obv)-1]
	earlier := obv[len(obv)-1-OBVLookback]
	band := math.Abs(earlier) * OBVFlatBand
	switch {
	case recent > earlier+band:
		return model.OBVRising
	case recent < earlier-band:
		return model.OBVFalling
	default:
		return model.OBVFlat
	}
}

// divergence compares the two most recent DivergenceWindow-sized windows of
// price and RSI. Both series are aligned on their last element.
func divergence(prices, rsi []float64) model.Divergence {
	span := 2 * DivergenceWindow
	if len(prices) < span || len(rsi) < span {
		return model.DivergenceNone
	}
	p := prices[len(prices)-span:]
	r := rsi[len(rsi)-span:]

	prevPLow, prevPHigh := minMax(p[:DivergenceWindow])
	curPLow, curPHigh := minMax(p[DivergenceWindow:])
	prevRLow, prevRHigh := minMax(r[:DivergenceWindow])
	curRLow, curRHigh := minMax(r[DivergenceWindow:])

	switch {
	case curPLow < prevPLow && curRLow > prevRLow:
		return model.DivergenceBullish
	case curPHigh > prevPHigh && curRHigh < prevRHigh:
		return model.DivergenceBearish
	default:
		return model.DivergenceNone
	}
}

func trendContext(res *model.SignalResult) model.TrendContext {
	if res.EMA50 == nil {
		return model.TrendUnknown
	}
	ema50 := *res.EMA50
	switch {
	case res.Price > ema50 && res.EMA20 > ema50:
		return model.TrendUp
	case res.Price < ema50 && res.EMA20 < ema50:
		return model.TrendDown
	default:
		return model.TrendSideways
	}
}

func adjustedScore(res *model.SignalResult, ext *model.ExtendedAnalysis) int {
	score := res.Score

	switch ext.Divergence {
	case model.DivergenceBullish:
		score++
	case model.DivergenceBearish:
		score--
	}

	switch ext.OBVTrend {
	case model.OBVRising:
		score++
	case model.OBVFalling:
		score--
	}

	if ext.Support > 0 && (res.Price-ext.Support)/ext.Support <= NearLevelPct {
		score++
	}
	if ext.Resistance > 0 && (ext.Resistance-res.Price)/ext.Resistance <= NearLevelPct {
		score--
	}
	return score
}

// confidence is the share of verdict rows that agree with the overall signal.
func confidence(res *model.SignalResult, ext *model.ExtendedAnalysis) int {
	if len(res.Verdicts) == 0 {
		return 0
	}
	want := model.ClassNeutral
	switch res.Signal {
	case model.SignalBuy:
		want = model.ClassBuy
	case model.SignalSell:
		want = model.ClassSell
	}

	pct := int(math.Round(float64(res.Count(want)) / float64(len(res.Verdicts)) * 100))
	if ext.TrendStrength == model.TrendStrong {
		pct += ADXConfidenceBump
	}
	return min(pct, 100)
}

func minMax(window []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range window {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
