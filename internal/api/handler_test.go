package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinSentinel/internal/api"
	"CoinSentinel/internal/calculator"
	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/strategy"
	"CoinSentinel/internal/watchlist"
)

type mockSignalService struct {
	CollectDaysFunc func(ctx context.Context, asset string, days int) (*model.Report, error)
}

func (m *mockSignalService) CollectDays(ctx context.Context, asset string, days int) (*model.Report, error) {
	return m.CollectDaysFunc(ctx, asset, days)
}

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Invalidate(_ context.Context, asset string) error {
	c.invalidated = append(c.invalidated, asset)
	return nil
}

type staticPrices map[string]model.PricePoint

func (p staticPrices) Latest(asset string) (model.PricePoint, bool) {
	pp, ok := p[asset]
	return pp, ok
}

func newRouter(t *testing.T, svc api.SignalService, prices api.PriceSource, reg *prometheus.Registry) (*gin.Engine, *watchlist.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	wl, err := watchlist.NewManager(filepath.Join(t.TempDir(), "watchlist.json"), []string{"bitcoin"})
	require.NoError(t, err)
	h := api.NewHandler(svc, wl, prices, nil, 90, nil)
	var gatherer prometheus.Gatherer
	if reg != nil {
		gatherer = reg
	}
	return api.NewRouter(h, gatherer), wl
}

func do(r http.Handler, method, url string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func geometric(n int, ratio float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 * math.Pow(ratio, float64(i))
	}
	return out
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t, nil, nil, nil)

	w := do(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	assert.Equal(t, http.StatusOK, do(r, http.MethodHead, "/healthz", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodOptions, "/healthz", nil).Code)
}

func TestGetSignal(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		collect        func(ctx context.Context, asset string, days int) (*model.Report, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success with default days",
			url:  "/api/v1/signals/Bitcoin",
			collect: func(_ context.Context, asset string, days int) (*model.Report, error) {
				assert.Equal(t, "bitcoin", asset)
				assert.Equal(t, 90, days)
				return &model.Report{Asset: asset, Source: "mock", Signal: &model.SignalResult{Signal: model.SignalBuy, Score: 3}}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "explicit days",
			url:  "/api/v1/signals/ethereum?days=120",
			collect: func(_ context.Context, _ string, days int) (*model.Report, error) {
				assert.Equal(t, 120, days)
				return &model.Report{Asset: "ethereum", Signal: &model.SignalResult{Signal: model.SignalNeutral}}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "days out of range",
			url:            "/api/v1/signals/bitcoin?days=5",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid asset",
			url:            "/api/v1/signals/bit$coin",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "insufficient data",
			url:  "/api/v1/signals/newcoin",
			collect: func(context.Context, string, int) (*model.Report, error) {
				return nil, fmt.Errorf("analyze newcoin: %w", strategy.ErrInsufficientData)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"error":"analyze newcoin: insufficient price history"}`,
		},
		{
			name: "invalid provider data",
			url:  "/api/v1/signals/badcoin",
			collect: func(context.Context, string, int) (*model.Report, error) {
				return nil, fmt.Errorf("analyze badcoin: %w", calculator.ErrInvalidInput)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "provider error",
			url:  "/api/v1/signals/bitcoin",
			collect: func(context.Context, string, int) (*model.Report, error) {
				return nil, fmt.Errorf("fetch history: %w", errors.New("status 429"))
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `{"error":"fetch history: status 429"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSignalService{CollectDaysFunc: func(ctx context.Context, asset string, days int) (*model.Report, error) {
				if tt.collect == nil {
					t.Fatalf("service must not be called")
				}
				return tt.collect(ctx, asset, days)
			}}
			r, _ := newRouter(t, svc, nil, nil)

			w := do(r, http.MethodGet, tt.url, nil)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	r, _ := newRouter(t, nil, nil, nil)

	body, _ := json.Marshal(api.EvaluateRequest{Prices: geometric(90, 1.01)})
	w := do(r, http.MethodPost, "/api/v1/signals/evaluate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rep model.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	require.NotNil(t, rep.Signal)
	assert.Equal(t, model.SignalNeutral, rep.Signal.Signal)
	assert.Equal(t, 0, rep.Signal.Score)
	assert.Len(t, rep.Signal.Verdicts, 5)
	assert.Equal(t, "custom", rep.Asset)
	require.NotNil(t, rep.Extended)
	assert.Equal(t, model.OBVUnknown, rep.Extended.OBVTrend)
}

func TestEvaluate_Errors(t *testing.T) {
	r, _ := newRouter(t, nil, nil, nil)

	short, _ := json.Marshal(api.EvaluateRequest{Prices: geometric(20, 1.01)})
	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodPost, "/api/v1/signals/evaluate", short).Code)

	prices := geometric(40, 1.01)
	prices[7] = -1
	negative, _ := json.Marshal(api.EvaluateRequest{Prices: prices})
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/signals/evaluate", negative).Code)

	misaligned, _ := json.Marshal(api.EvaluateRequest{Prices: geometric(40, 1.01), Volumes: []float64{1, 2}})
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/signals/evaluate", misaligned).Code)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/signals/evaluate", []byte(`{}`)).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/signals/evaluate", []byte(`not json`)).Code)
}

func TestWatchlistRoutes(t *testing.T) {
	r, wl := newRouter(t, nil, nil, nil)

	w := do(r, http.MethodGet, "/api/v1/watchlist", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"assets":["bitcoin"]}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/v1/watchlist/Ethereum", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"assets":["bitcoin","ethereum"]}`, w.Body.String())

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/watchlist/ethereum", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/watchlist/-bad", nil).Code)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/v1/watchlist/bitcoin", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/v1/watchlist/bitcoin", nil).Code)
	assert.Equal(t, []string{"ethereum"}, wl.List())
}

func TestGetPrice(t *testing.T) {
	r, _ := newRouter(t, nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/prices/bitcoin", nil).Code)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r, _ = newRouter(t, nil, staticPrices{"bitcoin": {Time: at, Price: 64000.5}}, nil)

	w := do(r, http.MethodGet, "/api/v1/prices/BITCOIN", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"asset":"bitcoin","price":64000.5,"time":"2026-01-02T03:04:05Z"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/prices/ethereum", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"ethereum is not on the watchlist"}`, w.Body.String())

	// bitcoin is seeded into the watchlist, so a missing tick is just "no price yet".
	r, _ = newRouter(t, nil, staticPrices{}, nil)
	w = do(r, http.MethodGet, "/api/v1/prices/bitcoin", nil)
	assert.JSONEq(t, `{"error":"no live price for bitcoin"}`, w.Body.String())
}

func TestRemoveWatch_InvalidatesCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	wl, err := watchlist.NewManager(filepath.Join(t.TempDir(), "watchlist.json"), []string{"bitcoin"})
	require.NoError(t, err)
	cache := &recordingCache{}
	r := api.NewRouter(api.NewHandler(nil, wl, nil, nil, 90, nil).WithCache(cache), nil)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/v1/watchlist/Bitcoin", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/v1/watchlist/bitcoin", nil).Code)
	assert.Equal(t, []string{"bitcoin"}, cache.invalidated)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveInsufficient()

	r, _ := newRouter(t, nil, nil, reg)
	w := do(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "coinsentinel_"), w.Body.String())

	r, _ = newRouter(t, nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/metrics", nil).Code)
}
