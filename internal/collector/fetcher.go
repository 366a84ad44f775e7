package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"CoinSentinel/internal/model"
)

// Fetcher loads the daily price history of one asset, oldest first.
type Fetcher interface {
	FetchHistory(ctx context.Context, asset string, days int) (*model.PriceHistory, error)
	Name() string
}

// newHTTPClient builds a client with an optional proxy.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// sortHistory puts points, volumes and bars in chronological order.
func sortHistory(h *model.PriceHistory) {
	if h.HasVolumes() {
		idx := make([]int, len(h.Points))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return h.Points[idx[a]].Time.Before(h.Points[idx[b]].Time) })
		points := make([]model.PricePoint, len(idx))
		volumes := make([]float64, len(idx))
		for i, j := range idx {
			points[i] = h.Points[j]
			volumes[i] = h.Volumes[j]
		}
		h.Points, h.Volumes = points, volumes
	} else {
		sort.SliceStable(h.Points, func(i, j int) bool { return h.Points[i].Time.Before(h.Points[j].Time) })
	}
	sort.SliceStable(h.Bars, func(i, j int) bool { return h.Bars[i].Time.Before(h.Bars[j].Time) })
}

// toFloat accepts the number encodings exchanges use in JSON: numbers and numeric strings.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", n, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
