package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider   string `yaml:"provider"`
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		VsCurrency string `yaml:"vs_currency"`
		Days       int    `yaml:"days"`
	} `yaml:"data_source"`
	Live struct {
		Enabled bool   `yaml:"enabled"`
		WSURL   string `yaml:"ws_url"`
	} `yaml:"live"`
	Redis struct {
		Addr      string        `yaml:"addr"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		TTL       time.Duration `yaml:"ttl"`
		Namespace string        `yaml:"namespace"`
	} `yaml:"redis"`
	Schedule struct {
		AnalysisCron string `yaml:"analysis_cron"`
		Concurrency  int    `yaml:"concurrency"`
	} `yaml:"schedule"`
	Watchlist struct {
		File          string   `yaml:"file"`
		DefaultAssets []string `yaml:"default_assets"`
	} `yaml:"watchlist"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level       string `yaml:"level"`
		Environment string `yaml:"environment"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Providers accepted in data_source.provider.
const (
	ProviderCoinGecko = "coingecko"
	ProviderBinance   = "binance"
	ProviderMock      = "mock"
)

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	setString("DATA_PROVIDER", &c.DataSource.Provider)
	setString("DATA_BASE_URL", &c.DataSource.BaseURL)
	setString("COINGECKO_API_KEY", &c.DataSource.APIKey)
	setString("VS_CURRENCY", &c.DataSource.VsCurrency)
	setString("LIVE_WS_URL", &c.Live.WSURL)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	setString("CRON_ANALYSIS", &c.Schedule.AnalysisCron)
	setString("WATCHLIST_FILE", &c.Watchlist.File)
	setString("SQLITE_PATH", &c.Database.SQLitePath)
	setString("HTTP_ADDR", &c.HTTP.Addr)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("APP_ENV", &c.Log.Environment)
	setString("HTTPS_PROXY", &c.Proxy)

	if err := setInt("HISTORY_DAYS", &c.DataSource.Days); err != nil {
		return err
	}
	if err := setInt("REDIS_DB", &c.Redis.DB); err != nil {
		return err
	}
	if err := setInt("ANALYSIS_CONCURRENCY", &c.Schedule.Concurrency); err != nil {
		return err
	}
	if v := os.Getenv("LIVE_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env LIVE_ENABLED: %w", err)
		}
		c.Live.Enabled = enabled
	}
	if v := os.Getenv("WATCHLIST_DEFAULTS"); v != "" {
		var assets []string
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				assets = append(assets, a)
			}
		}
		c.Watchlist.DefaultAssets = assets
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = ProviderCoinGecko
	}
	if c.DataSource.BaseURL == "" {
		switch c.DataSource.Provider {
		case ProviderCoinGecko:
			c.DataSource.BaseURL = "https://api.coingecko.com/api/v3"
		case ProviderBinance:
			c.DataSource.BaseURL = "https://api.binance.com"
		}
	}
	if c.DataSource.VsCurrency == "" {
		c.DataSource.VsCurrency = "usd"
	}
	if c.DataSource.Days == 0 {
		c.DataSource.Days = 90
	}
	if c.Live.WSURL == "" {
		c.Live.WSURL = "wss://ws.coincap.io/prices"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 5 * time.Minute
	}
	if c.Redis.Namespace == "" {
		c.Redis.Namespace = "coinsentinel"
	}
	if c.Schedule.AnalysisCron == "" {
		c.Schedule.AnalysisCron = "0 0 * * * *"
	}
	if c.Schedule.Concurrency == 0 {
		c.Schedule.Concurrency = 4
	}
	if c.Watchlist.File == "" {
		c.Watchlist.File = "data/watchlist.json"
	}
	if len(c.Watchlist.DefaultAssets) == 0 {
		c.Watchlist.DefaultAssets = []string{"bitcoin", "ethereum"}
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/coin_sentinel.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Environment == "" {
		c.Log.Environment = "production"
	}
}

// TelegramEnabled reports whether a bot is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != ""
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case ProviderCoinGecko, ProviderBinance, ProviderMock:
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.DataSource.Provider != ProviderMock && c.DataSource.BaseURL == "" {
		return fmt.Errorf("data_source.base_url is required")
	}
	if c.DataSource.Days < 30 {
		return fmt.Errorf("data_source.days must be at least 30")
	}
	if c.TelegramEnabled() && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	if c.Schedule.Concurrency < 1 {
		return fmt.Errorf("schedule.concurrency must be positive")
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must not be negative")
	}
	return nil
}
