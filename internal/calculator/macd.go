package calculator

// Standard MACD periods.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACDSeries holds the three MACD outputs. All of them end at the last input price;
// Signal and Histogram are shorter than Line by the signal warm-up.
type MACDSeries struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the 12/26/9 moving average convergence divergence.
func MACD(prices []float64) MACDSeries {
	return MACDWithPeriods(prices, MACDFast, MACDSlow, MACDSignal)
}

// MACDWithPeriods computes MACD with custom periods. fast must not exceed slow.
func MACDWithPeriods(prices []float64, fast, slow, signal int) MACDSeries {
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)
	if len(slowEMA) == 0 || len(fastEMA) < len(slowEMA) {
		return MACDSeries{}
	}

	offset := len(fastEMA) - len(slowEMA)
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	res := MACDSeries{Line: line, Signal: EMA(line, signal)}
	if len(res.Signal) == 0 {
		return res
	}

	offset = len(line) - len(res.Signal)
	res.Histogram = make([]float64, len(res.Signal))
	for i, s := range res.Signal {
		res.Histogram[i] = line[i+offset] - s
	}
	return res
}
