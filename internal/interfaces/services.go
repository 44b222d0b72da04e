package interfaces

import (
	"context"
	"time"

	"github.com/bvanryn/specula/internal/models"
)

// MarketDataService is the cached, typed gateway to market data. Every
// accessor routes through the cache fabric; callers never see provider
// wire shapes.
type MarketDataService interface {
	GetTechnicalSignals(ctx context.Context, symbol string) (*models.TechnicalSignals, error)
	GetBiasDistribution(ctx context.Context, symbol string) ([]float64, error)
	AnalyzeMoatTrend(ctx context.Context, symbol string, category models.Category, isETF bool) (*models.MoatTrend, error)
	GetDividendInfo(ctx context.Context, symbol string) (*models.DividendInfo, error)
	GetEarningsDate(ctx context.Context, symbol string) (*models.EarningsInfo, error)
	GetTickerSector(ctx context.Context, symbol string) (string, error)
	GetETFTopHoldings(ctx context.Context, symbol string) ([]models.ETFHolding, error)
	GetETFSectorWeights(ctx context.Context, symbol string) ([]models.SectorWeight, error)

	// GetStockBeta returns (nil, nil) when the provider has no beta for
	// the symbol; the absence is cached like any value.
	GetStockBeta(ctx context.Context, symbol string) (*float64, error)

	GetForexHistory(ctx context.Context, base, quote string, days int) ([]models.Candle, error)
	GetForexRate(ctx context.Context, base, quote string) (float64, error)
	GetVIX(ctx context.Context) (float64, error)
	GetFearGreedIndex(ctx context.Context) (*models.FearGreedIndex, error)
	DetectIsETF(ctx context.Context, symbol string) (bool, error)

	// Batch pre-warm entry points. Failures prime nothing and are
	// logged, never fatal.
	BatchDownloadHistory(ctx context.Context, symbols []string) (map[string][]models.Candle, error)
	PrimeSignalsCacheBatch(ctx context.Context, histories map[string][]models.Candle)
	PrimeMoatCacheBatch(ctx context.Context, symbols []string)
	PrimeETFHoldingsBatch(ctx context.Context, symbols []string)
	PrimeSectorWeightsBatch(ctx context.Context, symbols []string)
	PrimeBetaBatch(ctx context.Context, symbols []string)
}

// TickerService manages the tracked-ticker lifecycle.
type TickerService interface {
	Add(ctx context.Context, symbol string, category models.Category, thesis string, tags []string) (*models.TrackedTicker, error)
	Remove(ctx context.Context, symbol, reason string) error
	Reactivate(ctx context.Context, symbol string) (*models.TrackedTicker, error)
	UpdateThesis(ctx context.Context, symbol, content string, tags []string) (*models.ThesisLog, error)
	ChangeCategory(ctx context.Context, symbol string, category models.Category) (*models.TrackedTicker, error)
	Get(ctx context.Context, symbol string) (*models.TrackedTicker, error)
	List(ctx context.Context, activeOnly bool) ([]models.TrackedTicker, error)

	AddPriceAlert(ctx context.Context, symbol string, metric models.AlertMetric, op models.AlertOperator, threshold float64) (*models.PriceAlert, error)
	ListPriceAlerts(ctx context.Context, symbol string) ([]models.PriceAlert, error)
	RemovePriceAlert(ctx context.Context, id string) error
}

// ScanService runs the daily assessment over all active tickers.
type ScanService interface {
	// RunScan executes one full scan. A second concurrent call fails
	// with ErrScanInProgress.
	RunScan(ctx context.Context) (*models.ScanSummary, error)
}

// FilingService syncs guru 13F filings from EDGAR.
type FilingService interface {
	SyncGuruFiling(ctx context.Context, guruID string) ([]models.FilingSyncSummary, error)
	BackfillGuruFilings(ctx context.Context, guruID string, years int) ([]models.FilingSyncSummary, error)
	GuruPortfolio(ctx context.Context, guruID string) ([]models.GuruHolding, error)
	FilingHistory(ctx context.Context, guruID string) ([]models.GuruFiling, error)
}

// PortfolioService analyzes the user's holdings.
type PortfolioService interface {
	Rebalance(ctx context.Context) (*models.RebalancePlan, error)
	FXExposure(ctx context.Context) (*models.FXExposureReport, error)
	CheckFXWatches(ctx context.Context) error
	StressTest(ctx context.Context, scenarioDropPct float64) (*models.StressTestResult, error)
	PlanWithdrawal(ctx context.Context, amount float64) (*models.WithdrawalPlan, error)
	TakeSnapshot(ctx context.Context) (*models.PortfolioSnapshot, error)
	TimeWeightedReturn(ctx context.Context, since time.Time) (float64, error)
	WeeklyDigest(ctx context.Context) error
}
