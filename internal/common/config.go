// Package common provides shared utilities for Specula
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Specula
type Config struct {
	Environment     string         `toml:"environment"`
	DisplayCurrency string         `toml:"display_currency"` // Currency for portfolio totals (default "USD")
	Server          ServerConfig   `toml:"server"`
	Storage         StorageConfig  `toml:"storage"`
	Clients         ClientsConfig  `toml:"clients"`
	Scan            ScanConfig     `toml:"scan"`
	Prewarm         PrewarmConfig  `toml:"prewarm"`
	Snapshot        SnapshotConfig `toml:"snapshot"`
	Digest          DigestConfig   `toml:"digest"`
	FXWatch         FXWatchConfig  `toml:"fxwatch"`
	Logging         LoggingConfig  `toml:"logging"`
}

// ServerConfig holds the health/status listener configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds paths for the domain store and the disk cache.
type StorageConfig struct {
	DataPath     string `toml:"data_path"`      // BadgerHold domain store
	CachePath    string `toml:"cache_path"`     // Badger disk cache (L2)
	CacheSizeMB  int    `toml:"cache_size_mb"`  // approximate L2 size cap
	CacheGCEvery string `toml:"cache_gc_every"` // value-log GC interval, duration string
}

// GetCacheGCInterval parses and returns the cache GC interval
func (c *StorageConfig) GetCacheGCInterval() time.Duration {
	d, err := time.ParseDuration(c.CacheGCEvery)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// ClientsConfig holds external provider configurations
type ClientsConfig struct {
	Market   MarketConfig   `toml:"market"`
	EDGAR    EDGARConfig    `toml:"edgar"`
	CNN      CNNConfig      `toml:"cnn"`
	Telegram TelegramConfig `toml:"telegram"`
}

// MarketConfig holds the market data provider configuration
type MarketConfig struct {
	BaseURL        string  `toml:"base_url"`
	CallsPerSecond float64 `toml:"calls_per_second"`
	Timeout        string  `toml:"timeout"`
	HistoryRange   string  `toml:"history_range"` // default chart range, e.g. "2y"
}

// GetTimeout parses and returns the timeout duration
func (c *MarketConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// EDGARConfig holds the SEC EDGAR configuration.
// SEC requires a contact email in the User-Agent and caps clients at 10 req/s.
type EDGARConfig struct {
	SubmissionsURL string  `toml:"submissions_url"`
	ArchivesURL    string  `toml:"archives_url"`
	Contact        string  `toml:"contact"`
	CallsPerSecond float64 `toml:"calls_per_second"`
	Timeout        string  `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EDGARConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// CNNConfig holds the CNN fear & greed endpoint configuration
type CNNConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *CNNConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// TelegramConfig holds the Telegram bot configuration
type TelegramConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
	ChatID  string `toml:"chat_id"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *TelegramConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// ScanConfig holds scan pipeline configuration
type ScanConfig struct {
	Cron         string `toml:"cron"`      // cron expression for scheduled scans
	PoolSize     int    `toml:"pool_size"` // per-ticker worker pool size
	RSIPeriod    int    `toml:"rsi_period"`
	HistoryRange string `toml:"history_range"`
}

// PrewarmConfig holds pre-warm orchestrator configuration
type PrewarmConfig struct {
	Enabled       bool   `toml:"enabled"`
	Timeout       string `toml:"timeout"`
	PoolSize      int    `toml:"pool_size"`      // default phase pool
	MoatPoolSize  int    `toml:"moat_pool_size"` // moat phase runs wider, limiter is the bottleneck
	BackfillYears int    `toml:"backfill_years"` // guru 13F backfill window
}

// GetTimeout parses and returns the overall pre-warm deadline
func (c *PrewarmConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// SnapshotConfig holds the daily snapshot job configuration
type SnapshotConfig struct {
	Cron      string `toml:"cron"`
	Benchmark string `toml:"benchmark"` // benchmark symbol recorded with each snapshot
}

// DigestConfig holds the weekly digest job configuration
type DigestConfig struct {
	Cron string `toml:"cron"`
}

// FXWatchConfig holds the FX watch job configuration
type FXWatchConfig struct {
	Cron string `toml:"cron"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:     "development",
		DisplayCurrency: "USD",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8085,
		},
		Storage: StorageConfig{
			DataPath:     "data/store",
			CachePath:    "data/cache",
			CacheSizeMB:  256,
			CacheGCEvery: "10m",
		},
		Clients: ClientsConfig{
			Market: MarketConfig{
				BaseURL:        "https://query1.finance.yahoo.com",
				CallsPerSecond: 2,
				Timeout:        "30s",
				HistoryRange:   "2y",
			},
			EDGAR: EDGARConfig{
				SubmissionsURL: "https://data.sec.gov",
				ArchivesURL:    "https://www.sec.gov",
				CallsPerSecond: 10,
				Timeout:        "30s",
			},
			CNN: CNNConfig{
				Enabled: true,
				BaseURL: "https://production.dataviz.cnn.io",
				Timeout: "15s",
			},
			Telegram: TelegramConfig{
				Enabled: false,
				Timeout: "15s",
			},
		},
		Scan: ScanConfig{
			Cron:         "0 30 21 * * MON-FRI", // after US close, UTC
			PoolSize:     5,
			RSIPeriod:    14,
			HistoryRange: "2y",
		},
		Prewarm: PrewarmConfig{
			Enabled:       true,
			Timeout:       "5m",
			PoolSize:      4,
			MoatPoolSize:  8,
			BackfillYears: 1,
		},
		Snapshot: SnapshotConfig{
			Cron:      "0 0 22 * * MON-FRI",
			Benchmark: "SPY",
		},
		Digest: DigestConfig{
			Cron: "0 0 13 * * SAT",
		},
		FXWatch: FXWatchConfig{
			Cron: "0 15 7 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Apply environment overrides
	applyEnvOverrides(config)

	validateDisplayCurrency(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SPECULA_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("SPECULA_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("SPECULA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("SPECULA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("SPECULA_DATA_PATH"); path != "" {
		config.Storage.DataPath = filepath.Join(path, "store")
		config.Storage.CachePath = filepath.Join(path, "cache")
	}

	if dc := os.Getenv("SPECULA_DISPLAY_CURRENCY"); dc != "" {
		config.DisplayCurrency = strings.ToUpper(dc)
	}

	if v := os.Getenv("SPECULA_TELEGRAM_TOKEN"); v != "" {
		config.Clients.Telegram.Token = v
		config.Clients.Telegram.Enabled = true
	}
	if v := os.Getenv("SPECULA_TELEGRAM_CHAT_ID"); v != "" {
		config.Clients.Telegram.ChatID = v
	}

	if v := os.Getenv("SPECULA_EDGAR_CONTACT"); v != "" {
		config.Clients.EDGAR.Contact = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// validateDisplayCurrency uppercases the display currency, defaulting to "USD".
func validateDisplayCurrency(config *Config) {
	dc := strings.ToUpper(strings.TrimSpace(config.DisplayCurrency))
	if dc == "" {
		dc = "USD"
	}
	config.DisplayCurrency = dc
}
