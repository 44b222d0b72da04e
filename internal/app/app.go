// Package app wires configuration, storage, the cache fabric, provider
// clients and services into one engine shared by cmd/specula-server.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bvanryn/specula/internal/cache"
	"github.com/bvanryn/specula/internal/clients/cnn"
	"github.com/bvanryn/specula/internal/clients/edgar"
	"github.com/bvanryn/specula/internal/clients/telegram"
	"github.com/bvanryn/specula/internal/clients/yahoo"
	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/interfaces"
	"github.com/bvanryn/specula/internal/ratelimit"
	"github.com/bvanryn/specula/internal/services/filing"
	"github.com/bvanryn/specula/internal/services/marketdata"
	"github.com/bvanryn/specula/internal/services/notify"
	"github.com/bvanryn/specula/internal/services/portfolio"
	"github.com/bvanryn/specula/internal/services/scan"
	"github.com/bvanryn/specula/internal/services/ticker"
	"github.com/bvanryn/specula/internal/storage"
)

// App holds all initialized clients and services. It is the engine
// object: every piece of shared mutable state (caches, limiters, the
// scan flag) lives inside it, created at startup and disposed on Close.
type App struct {
	Config  *common.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager

	Disk   *cache.Disk
	Fabric *cache.Fabric

	MarketData interfaces.MarketDataService
	Tickers    interfaces.TickerService
	Scan       interfaces.ScanService
	Filings    interfaces.FilingService
	Portfolio  interfaces.PortfolioService
	Notifier   interfaces.Notifier

	StartupTime time.Time

	prewarm   *prewarmState
	scheduler *scheduler
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, caches, clients and services.
// configPath may be empty, in which case the default resolution logic
// is used: SPECULA_CONFIG, then specula.toml next to the binary, then
// config/specula.toml.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()
	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("SPECULA_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "specula.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/specula.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage paths to the binary directory
	if !filepath.IsAbs(config.Storage.DataPath) {
		config.Storage.DataPath = filepath.Join(binDir, config.Storage.DataPath)
	}
	if config.Storage.CachePath != "" && !filepath.IsAbs(config.Storage.CachePath) {
		config.Storage.CachePath = filepath.Join(binDir, config.Storage.CachePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	store, err := storage.NewManager(logger, config.Storage.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// The engine runs memory-only when the disk tier cannot open.
	var disk *cache.Disk
	if config.Storage.CachePath != "" {
		disk, err = cache.NewDisk(logger, config.Storage.CachePath, config.Storage.CacheSizeMB, config.Storage.GetCacheGCInterval())
		if err != nil {
			logger.Warn().Err(err).Msg("App: disk cache unavailable, running memory-only")
			disk = nil
		}
	}
	fabric := cache.NewFabric(logger, marketdata.Namespaces(), disk)

	limiters := ratelimit.NewRegistry(map[string]float64{
		"yahoo": config.Clients.Market.CallsPerSecond,
		"edgar": config.Clients.EDGAR.CallsPerSecond,
	})

	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Market.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimiter(limiters.Get("yahoo")),
		yahoo.WithTimeout(config.Clients.Market.GetTimeout()),
	)

	edgarClient := edgar.NewClient(config.Clients.EDGAR.Contact,
		edgar.WithSubmissionsURL(config.Clients.EDGAR.SubmissionsURL),
		edgar.WithArchivesURL(config.Clients.EDGAR.ArchivesURL),
		edgar.WithLogger(logger),
		edgar.WithRateLimiter(limiters.Get("edgar")),
		edgar.WithTimeout(config.Clients.EDGAR.GetTimeout()),
	)

	var cnnClient *cnn.Client
	if config.Clients.CNN.Enabled {
		cnnClient = cnn.NewClient(
			cnn.WithBaseURL(config.Clients.CNN.BaseURL),
			cnn.WithLogger(logger),
			cnn.WithTimeout(config.Clients.CNN.GetTimeout()),
		)
	}

	telegramClient := telegram.NewClient(config.Clients.Telegram.Token, config.Clients.Telegram.ChatID,
		telegram.WithLogger(logger),
		telegram.WithTimeout(config.Clients.Telegram.GetTimeout()),
	)
	if !config.Clients.Telegram.Enabled {
		telegramClient = telegram.NewClient("", "", telegram.WithLogger(logger))
	}

	marketData := marketdata.NewService(logger, fabric, yahooClient, cnnClient,
		config.Scan.HistoryRange, config.Scan.RSIPeriod)
	marketData.SetPrewarmPools(config.Prewarm.PoolSize, config.Prewarm.MoatPoolSize)
	notifier := notify.NewService(logger, store.Notify(), telegramClient)
	tickerService := ticker.NewService(logger, store.Tickers(), marketData)
	filingService := filing.NewService(logger, store.Gurus(), edgarClient, marketData)
	scanService := scan.NewService(logger, marketData, store.Tickers(), notifier, config.Scan.PoolSize)
	portfolioService := portfolio.NewService(logger, store.Portfolio(), store.Notify(), store.Tickers(),
		marketData, notifier, config.DisplayCurrency, config.Snapshot.Benchmark)

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     store,
		Disk:        disk,
		Fabric:      fabric,
		MarketData:  marketData,
		Tickers:     tickerService,
		Scan:        scanService,
		Filings:     filingService,
		Portfolio:   portfolioService,
		Notifier:    notifier,
		StartupTime: startupStart,
		prewarm:     newPrewarmState(),
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// Close releases all resources. Shutdown order: stop the scheduler,
// cancel the pre-warm, close the domain store, close the disk cache.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.stop()
		a.scheduler = nil
	}
	if a.prewarm != nil {
		a.prewarm.cancel()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("App: storage close failed")
		}
		a.Storage = nil
	}
	if a.Disk != nil {
		if err := a.Disk.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("App: disk cache close failed")
		}
		a.Disk = nil
	}
}
