// Package scheduler runs the periodic watchlist analysis and serves bot commands.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/notifier"
	"CoinSentinel/internal/recorder"
	"CoinSentinel/internal/strategy"
	"CoinSentinel/internal/watchlist"
)

// Analyzer produces a report for one asset. *collector.Collector satisfies it.
type Analyzer interface {
	Collect(ctx context.Context, asset string) (*model.Report, error)
}

// PriceSource serves live prices. *collector.PriceStream satisfies it.
type PriceSource interface {
	Latest(asset string) (model.PricePoint, bool)
}

// HistoryCache drops cached histories. *collector.CachingFetcher satisfies it.
type HistoryCache interface {
	Invalidate(ctx context.Context, asset string) error
}

// Summary counts the outcome of one watchlist run.
type Summary struct {
	Analyzed int
	Changed  int
	Failed   int
}

// Scheduler manages the cron tasks and the command handler.
type Scheduler struct {
	Cron        *cron.Cron
	Collector   Analyzer
	Watchlist   *watchlist.Manager
	Notifier    notifier.Notifier
	Recorder    recorder.Recorder
	Prices      PriceSource
	Cache       HistoryCache
	Metrics     *metrics.Metrics
	Concurrency int
	Ctx         context.Context

	log  *zap.Logger
	mu   sync.Mutex
	last map[string]model.Signal
}

// NewScheduler creates a new Scheduler. Prices, Cache, Metrics and Concurrency are optional fields.
func NewScheduler(ctx context.Context, col Analyzer, wl *watchlist.Manager, n notifier.Notifier, rec recorder.Recorder, log *zap.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Collector:   col,
		Watchlist:   wl,
		Notifier:    n,
		Recorder:    rec,
		Concurrency: 4,
		Ctx:         ctx,
		log:         log.With(zap.String("component", "scheduler")),
		last:        make(map[string]model.Signal),
	}
}

// RegisterAll registers the watchlist analysis task.
func (s *Scheduler) RegisterAll(analysisCron string) error {
	if _, err := s.Cron.AddFunc(analysisCron, func() { s.AnalyzeAll(s.Ctx) }); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// AnalyzeAll evaluates every watched asset in parallel. One failing asset does not stop the others.
func (s *Scheduler) AnalyzeAll(ctx context.Context) Summary {
	assets := s.Watchlist.List()
	s.log.Info("running watchlist analysis", zap.Int("assets", len(assets)))

	var analyzed, changed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	for _, asset := range assets {
		asset := asset
		g.Go(func() error {
			flipped, err := s.analyzeAsset(gctx, asset)
			if err != nil {
				failed.Add(1)
				return nil
			}
			analyzed.Add(1)
			if flipped {
				changed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Analyzed: int(analyzed.Load()), Changed: int(changed.Load()), Failed: int(failed.Load())}
	s.log.Info("watchlist analysis done",
		zap.Int("analyzed", sum.Analyzed),
		zap.Int("changed", sum.Changed),
		zap.Int("failed", sum.Failed),
	)
	return sum
}

// analyzeAsset records the asset and notifies when its overall signal flipped.
func (s *Scheduler) analyzeAsset(ctx context.Context, asset string) (bool, error) {
	log := s.log.With(zap.String("asset", asset))

	rep, err := s.Collector.Collect(ctx, asset)
	if err != nil {
		if errors.Is(err, strategy.ErrInsufficientData) {
			log.Warn("not enough history", zap.Error(err))
		} else {
			log.Error("analysis failed", zap.Error(err))
		}
		return false, err
	}

	prev, hasPrev := s.previousSignal(asset)
	s.record(rep, recorder.TriggerScheduled)
	s.remember(asset, rep.Signal.Signal)

	if !hasPrev || prev == rep.Signal.Signal {
		return false, nil
	}
	log.Info("signal changed", zap.String("from", string(prev)), zap.String("to", string(rep.Signal.Signal)))
	s.trySend(notifier.FormatSignalChange(rep, prev))
	return true, nil
}

// previousSignal prefers the recorder and falls back to the in-process memory.
func (s *Scheduler) previousSignal(asset string) (model.Signal, bool) {
	stored, err := s.Recorder.LatestSignal(asset)
	if err != nil {
		s.log.Error("load previous signal", zap.String("asset", asset), zap.Error(err))
	}
	if stored != nil {
		return stored.Signal, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.last[asset]
	return sig, ok
}

func (s *Scheduler) remember(asset string, sig model.Signal) {
	s.mu.Lock()
	s.last[asset] = sig
	s.mu.Unlock()
}

func (s *Scheduler) record(rep *model.Report, trigger recorder.Trigger) {
	if err := s.Recorder.RecordSignal(&recorder.SignalSnapshot{Report: rep, Trigger: trigger}); err != nil {
		s.log.Error("record signal", zap.String("asset", rep.Asset), zap.Error(err))
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch cmd {
	case "/signal":
		return s.signalCommand(ctx, arg)
	case "/watch":
		return s.watchCommand(ctx, arg, true)
	case "/unwatch":
		return s.watchCommand(ctx, arg, false)
	case "/list":
		return notifier.FormatWatchlist(s.Watchlist.List())
	case "/price":
		return s.priceCommand(arg)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) signalCommand(ctx context.Context, arg string) string {
	asset, err := watchlist.Normalize(arg)
	if err != nil {
		return "❌ Usage: /signal &lt;asset&gt;"
	}
	rep, err := s.Collector.Collect(ctx, asset)
	switch {
	case errors.Is(err, strategy.ErrInsufficientData):
		return fmt.Sprintf("⚠️ Not enough price history for %s yet.", asset)
	case err != nil:
		s.log.Error("signal command failed", zap.String("asset", asset), zap.Error(err))
		return fmt.Sprintf("❌ Could not analyze %s.", asset)
	}
	s.record(rep, recorder.TriggerCommand)
	s.remember(asset, rep.Signal.Signal)
	return notifier.FormatSignalReport(rep)
}

func (s *Scheduler) watchCommand(ctx context.Context, arg string, add bool) string {
	asset, err := watchlist.Normalize(arg)
	if err != nil {
		if add {
			return "❌ Usage: /watch &lt;asset&gt;"
		}
		return "❌ Usage: /unwatch &lt;asset&gt;"
	}

	if add {
		added, err := s.Watchlist.Add(asset)
		switch {
		case err != nil:
			s.log.Error("watch failed", zap.String("asset", asset), zap.Error(err))
			return "❌ Could not update the watchlist."
		case !added:
			return fmt.Sprintf("ℹ️ Already watching %s.", asset)
		}
		return fmt.Sprintf("✅ Now watching %s.", asset)
	}

	removed, err := s.Watchlist.Remove(asset)
	switch {
	case err != nil:
		s.log.Error("unwatch failed", zap.String("asset", asset), zap.Error(err))
		return "❌ Could not update the watchlist."
	case !removed:
		return fmt.Sprintf("ℹ️ %s is not on the watchlist.", asset)
	}
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, asset); err != nil {
			s.log.Warn("invalidate cached history", zap.String("asset", asset), zap.Error(err))
		}
	}
	return fmt.Sprintf("✅ Stopped watching %s.", asset)
}

func (s *Scheduler) priceCommand(arg string) string {
	asset, err := watchlist.Normalize(arg)
	if err != nil {
		return "❌ Usage: /price &lt;asset&gt;"
	}
	if s.Prices == nil {
		return "ℹ️ Live prices are disabled."
	}
	p, ok := s.Prices.Latest(asset)
	if !ok {
		if !s.Watchlist.Contains(asset) {
			return fmt.Sprintf("ℹ️ %s is not streamed. Use /watch %s first.", asset, asset)
		}
		return fmt.Sprintf("ℹ️ No live price for %s yet.", asset)
	}
	return notifier.FormatPrice(asset, p)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	err := s.Notifier.SendWithRetry(s.Ctx, text, 3)
	s.Metrics.ObserveNotification(err)
	if err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}
