package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"CoinSentinel/internal/model"
)

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoFetcher implements Fetcher using the CoinGecko market_chart endpoint.
type CoinGeckoFetcher struct {
	BaseURL    string
	APIKey     string
	VsCurrency string
	Client     *http.Client
}

// NewCoinGeckoFetcher creates a fetcher with optional proxy support.
func NewCoinGeckoFetcher(baseURL, apiKey, vsCurrency, proxyURL string) *CoinGeckoFetcher {
	if baseURL == "" {
		baseURL = defaultCoinGeckoURL
	}
	if vsCurrency == "" {
		vsCurrency = "usd"
	}
	return &CoinGeckoFetcher{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		VsCurrency: vsCurrency,
		Client:     newHTTPClient(proxyURL),
	}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

// marketChart is the response of /coins/{id}/market_chart. Each pair is [ms, value].
type marketChart struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

func (f *CoinGeckoFetcher) FetchHistory(ctx context.Context, asset string, days int) (*model.PriceHistory, error) {
	q := url.Values{}
	q.Set("vs_currency", f.VsCurrency)
	q.Set("days", strconv.Itoa(days))
	q.Set("interval", "daily")
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", f.BaseURL, url.PathEscape(asset), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", f.APIKey)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coingecko read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart marketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("coingecko decode: %w", err)
	}
	if len(chart.Prices) == 0 {
		return nil, fmt.Errorf("coingecko: no data returned for %s", asset)
	}

	h := &model.PriceHistory{
		Asset:     asset,
		Source:    f.Name(),
		Points:    make([]model.PricePoint, len(chart.Prices)),
		FetchedAt: time.Now(),
	}
	for i, p := range chart.Prices {
		h.Points[i] = model.PricePoint{Time: time.UnixMilli(int64(p[0])).UTC(), Price: p[1]}
	}
	if len(chart.TotalVolumes) == len(chart.Prices) {
		h.Volumes = make([]float64, len(chart.TotalVolumes))
		for i, v := range chart.TotalVolumes {
			h.Volumes[i] = v[1]
		}
	}

	sortHistory(h)
	return h, nil
}
