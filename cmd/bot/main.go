package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"CoinSentinel/internal/api"
	"CoinSentinel/internal/collector"
	"CoinSentinel/internal/config"
	"CoinSentinel/internal/logger"
	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/notifier"
	"CoinSentinel/internal/recorder"
	"CoinSentinel/internal/scheduler"
	"CoinSentinel/internal/watchlist"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coinsentinel: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Environment); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()
	log.Info("CoinSentinel starting", zap.String("config", cfgPath))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	fetcher, cache, closeRedis := newFetcher(ctx, cfg, log)
	defer closeRedis()
	log.Info("data source ready", zap.String("provider", fetcher.Name()))
	col := collector.NewCollector(fetcher, cfg.DataSource.Days, log, m)

	wl, err := watchlist.NewManager(cfg.Watchlist.File, cfg.Watchlist.DefaultAssets)
	if err != nil {
		return fmt.Errorf("init watchlist: %w", err)
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	var stream *collector.PriceStream
	if cfg.Live.Enabled {
		stream, err = collector.NewPriceStream(cfg.Live.WSURL, wl.List(), log)
		if err != nil {
			return fmt.Errorf("init price stream: %w", err)
		}
		wl.OnChange(stream.SetAssets)
		go func() { _ = stream.Run(ctx) }()
		log.Info("live price stream started", zap.Strings("assets", wl.List()))
	}

	var tn *notifier.TelegramNotifier
	var n notifier.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		n = tn
	} else {
		log.Warn("telegram bot token not set, notifications disabled")
	}

	sched := scheduler.NewScheduler(ctx, col, wl, n, rec, log)
	sched.Metrics = m
	sched.Concurrency = cfg.Schedule.Concurrency
	if stream != nil {
		sched.Prices = stream
	}
	if cache != nil {
		sched.Cache = cache
	}
	if err := sched.RegisterAll(cfg.Schedule.AnalysisCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, analyzing watchlist now")
		go sched.AnalyzeAll(ctx)
	}

	var prices api.PriceSource
	if stream != nil {
		prices = stream
	}
	handler := api.NewHandler(col, wl, prices, rec, cfg.DataSource.Days, log)
	if cache != nil {
		handler.WithCache(cache)
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(handler, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()
	log.Info("CoinSentinel is running", zap.String("http", cfg.HTTP.Addr))

	<-ctx.Done()
	log.Info("shutdown signal received, stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("CoinSentinel stopped")
	return nil
}

// newFetcher builds the configured provider, behind the Redis cache when one answers.
// The returned cache is nil when caching is off.
func newFetcher(ctx context.Context, cfg *config.Config, log *zap.Logger) (collector.Fetcher, *collector.CachingFetcher, func()) {
	var base collector.Fetcher
	switch cfg.DataSource.Provider {
	case config.ProviderBinance:
		base = collector.NewBinanceFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
	case config.ProviderMock:
		base = &collector.MockFetcher{Price: 100}
	default:
		base = collector.NewCoinGeckoFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.DataSource.VsCurrency, cfg.Proxy)
	}

	if cfg.Redis.Addr == "" {
		return base, nil, func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, history cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = rdb.Close()
		return base, nil, func() {}
	}
	log.Info("history cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	cached := collector.NewCachingFetcher(rdb, cfg.Redis.TTL, base, cfg.Redis.Namespace)
	return cached, cached, func() { _ = rdb.Close() }
}
