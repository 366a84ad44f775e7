package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CoinSentinel/internal/model"
)

const (
	defaultBinanceURL = "https://api.binance.com"
	binanceMaxLimit   = 1000
)

// BinanceFetcher implements Fetcher using the Binance klines endpoint.
// It returns full OHLCV bars.
type BinanceFetcher struct {
	BaseURL   string
	Quote     string
	Client    *http.Client
	SymbolMap map[string]string // maps asset id to Binance symbol
}

// NewBinanceFetcher creates a new Binance fetcher.
func NewBinanceFetcher(baseURL, proxyURL string) *BinanceFetcher {
	if baseURL == "" {
		baseURL = defaultBinanceURL
	}
	return &BinanceFetcher{
		BaseURL: baseURL,
		Quote:   "USDT",
		Client:  newHTTPClient(proxyURL),
		SymbolMap: map[string]string{
			"bitcoin":     "BTCUSDT",
			"ethereum":    "ETHUSDT",
			"solana":      "SOLUSDT",
			"binancecoin": "BNBUSDT",
			"ripple":      "XRPUSDT",
			"cardano":     "ADAUSDT",
			"dogecoin":    "DOGEUSDT",
			"polkadot":    "DOTUSDT",
			"litecoin":    "LTCUSDT",
		},
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// Symbol maps an asset id to a trading pair. Unknown ids are treated as tickers.
func (f *BinanceFetcher) Symbol(asset string) string {
	if s, ok := f.SymbolMap[asset]; ok {
		return s
	}
	return strings.ToUpper(asset) + f.Quote
}

func (f *BinanceFetcher) FetchHistory(ctx context.Context, asset string, days int) (*model.PriceHistory, error) {
	limit := days
	if limit > binanceMaxLimit {
		limit = binanceMaxLimit
	}
	q := url.Values{}
	q.Set("symbol", f.Symbol(asset))
	q.Set("interval", "1d")
	q.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("binance: status %d, body: %s", resp.StatusCode, string(body))
	}

	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("binance decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("binance: no data returned for %s", asset)
	}

	bars := make([]model.OHLCV, 0, len(rows))
	for i, row := range rows {
		bar, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("binance kline %d: %w", i, err)
		}
		bars = append(bars, bar)
	}

	h := model.PriceHistoryFromBars(asset, f.Name(), bars)
	sortHistory(h)
	return h, nil
}

// parseKline reads [openTime, open, high, low, close, volume, ...].
func parseKline(row []any) (model.OHLCV, error) {
	if len(row) < 6 {
		return model.OHLCV{}, fmt.Errorf("short row: %d fields", len(row))
	}
	openTime, err := toFloat(row[0])
	if err != nil {
		return model.OHLCV{}, fmt.Errorf("open time: %w", err)
	}

	var vals [5]float64
	for i := range vals {
		if vals[i], err = toFloat(row[i+1]); err != nil {
			return model.OHLCV{}, err
		}
	}
	return model.OHLCV{
		Time:   time.UnixMilli(int64(openTime)).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
