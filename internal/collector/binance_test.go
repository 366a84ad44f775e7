package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinanceFetcher_Symbol(t *testing.T) {
	f := NewBinanceFetcher("", "")
	assert.Equal(t, "BTCUSDT", f.Symbol("bitcoin"))
	assert.Equal(t, "ETHUSDT", f.Symbol("ethereum"))
	assert.Equal(t, "ARBUSDT", f.Symbol("arb"))
}

func TestBinanceFetcher_FetchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(`[
			[1700086400000, "101.0", "103.0", "100.0", "102.0", "250.5", 1700172799999, "0", 10, "0", "0", "0"],
			[1700000000000, "99.0", "101.5", "98.5", "101.0", "200.0", 1700086399999, "0", 10, "0", "0", "0"]
		]`))
	}))
	defer srv.Close()

	f := NewBinanceFetcher(srv.URL, "")
	h, err := f.FetchHistory(context.Background(), "bitcoin", 5000)
	require.NoError(t, err)

	require.Len(t, h.Bars, 2)
	assert.Equal(t, "binance", h.Source)
	assert.Equal(t, []float64{101, 102}, h.Closes())
	assert.Equal(t, []float64{200, 250.5}, h.Volumes)
	assert.Equal(t, 101.5, h.Bars[0].High)
	assert.Equal(t, 98.5, h.Bars[0].Low)
	assert.True(t, h.Bars[0].Time.Before(h.Bars[1].Time))
}

func TestBinanceFetcher_BadRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1700000000000, "99.0", "x", "98.5", "101.0", "200.0"]]`))
	}))
	defer srv.Close()

	_, err := NewBinanceFetcher(srv.URL, "").FetchHistory(context.Background(), "bitcoin", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kline 0")
}

func TestBinanceFetcher_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	_, err := NewBinanceFetcher(srv.URL, "").FetchHistory(context.Background(), "nope", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid symbol")
}

func TestParseKline(t *testing.T) {
	_, err := parseKline([]any{1.0, "1"})
	assert.Error(t, err)

	bar, err := parseKline([]any{1700000000000.0, "1", "2", "0.5", "1.5", 10.0})
	require.NoError(t, err)
	assert.Equal(t, 1.5, bar.Close)
	assert.Equal(t, 10.0, bar.Volume)
}
