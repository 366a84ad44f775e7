// Package collector fetches price histories and runs them through the signal engine.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/strategy"
)

// DefaultDays is the history window requested when none is configured.
const DefaultDays = 90

// Collector orchestrates data fetching and signal computation.
type Collector struct {
	Fetcher Fetcher
	Days    int

	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewCollector creates a new Collector. log and m may be nil.
func NewCollector(fetcher Fetcher, days int, log *zap.Logger, m *metrics.Metrics) *Collector {
	if days <= 0 {
		days = DefaultDays
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{
		Fetcher: fetcher,
		Days:    days,
		log:     log.With(zap.String("source", fetcher.Name())),
		metrics: m,
	}
}

// Collect fetches the configured window for asset and analyzes it.
func (c *Collector) Collect(ctx context.Context, asset string) (*model.Report, error) {
	return c.CollectDays(ctx, asset, c.Days)
}

// CollectDays is Collect with an explicit history window.
func (c *Collector) CollectDays(ctx context.Context, asset string, days int) (*model.Report, error) {
	start := time.Now()

	h, err := c.Fetcher.FetchHistory(ctx, asset, days)
	if err != nil {
		c.metrics.ObserveFetchError(c.Fetcher.Name())
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	rep, err := strategy.Analyze(h)
	if err != nil {
		if errors.Is(err, strategy.ErrInsufficientData) {
			c.metrics.ObserveInsufficient()
		}
		return nil, fmt.Errorf("analyze %s: %w", asset, err)
	}

	took := time.Since(start)
	c.metrics.ObserveReport(rep, took)
	c.log.Debug("asset analyzed",
		zap.String("asset", asset),
		zap.String("signal", string(rep.Signal.Signal)),
		zap.Int("score", rep.Signal.Score),
		zap.Int("samples", len(h.Points)),
		zap.Duration("took", took),
	)
	return rep, nil
}
