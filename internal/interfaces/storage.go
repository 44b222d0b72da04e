package interfaces

import (
	"context"
	"time"

	"github.com/bvanryn/specula/internal/models"
)

// StorageManager coordinates the typed stores over one database.
type StorageManager interface {
	Tickers() TickerStore
	Gurus() GuruStore
	Portfolio() PortfolioStore
	Notify() NotifyStore

	// Lifecycle
	Close() error
}

// TickerStore persists tracked tickers and their append-only logs.
type TickerStore interface {
	GetTicker(ctx context.Context, symbol string) (*models.TrackedTicker, error)
	SaveTicker(ctx context.Context, ticker *models.TrackedTicker) error
	ListTickers(ctx context.Context, activeOnly bool) ([]models.TrackedTicker, error)

	// Thesis log. NextThesisVersion returns max(version)+1 for the
	// symbol, starting at 1, so versions stay dense per symbol.
	AppendThesisLog(ctx context.Context, entry *models.ThesisLog) error
	NextThesisVersion(ctx context.Context, symbol string) (int, error)
	ListThesisLogs(ctx context.Context, symbol string) ([]models.ThesisLog, error)

	AppendRemovalLog(ctx context.Context, entry *models.RemovalLog) error
	ListRemovalLogs(ctx context.Context, symbol string) ([]models.RemovalLog, error)

	AppendScanLogs(ctx context.Context, entries []models.ScanLog) error
	ListScanLogs(ctx context.Context, symbol string, limit int) ([]models.ScanLog, error)

	SavePriceAlert(ctx context.Context, alert *models.PriceAlert) error
	GetPriceAlert(ctx context.Context, id string) (*models.PriceAlert, error)
	ListPriceAlerts(ctx context.Context, symbol string, activeOnly bool) ([]models.PriceAlert, error)
	DeletePriceAlert(ctx context.Context, id string) error
}

// GuruStore persists tracked institutional managers and their synced
// 13F filings.
type GuruStore interface {
	SaveGuru(ctx context.Context, guru *models.Guru) error
	GetGuru(ctx context.Context, id string) (*models.Guru, error)
	GetGuruByCIK(ctx context.Context, cik string) (*models.Guru, error)
	ListGurus(ctx context.Context, activeOnly bool) ([]models.Guru, error)

	SaveFiling(ctx context.Context, filing *models.GuruFiling) error
	GetFilingByAccession(ctx context.Context, accession string) (*models.GuruFiling, error)
	LatestFilingByGuru(ctx context.Context, guruID string) (*models.GuruFiling, error)
	ListFilingsByGuru(ctx context.Context, guruID string) ([]models.GuruFiling, error)

	SaveHoldings(ctx context.Context, holdings []models.GuruHolding) error
	ListHoldingsByFiling(ctx context.Context, filingID string) ([]models.GuruHolding, error)
}

// PortfolioStore persists holdings, the investment profile, and daily
// valuation snapshots.
type PortfolioStore interface {
	SaveHolding(ctx context.Context, holding *models.Holding) error
	GetHolding(ctx context.Context, symbol string) (*models.Holding, error)
	DeleteHolding(ctx context.Context, symbol string) error
	ListHoldings(ctx context.Context) ([]models.Holding, error)

	GetProfile(ctx context.Context) (*models.InvestmentProfile, error)
	SaveProfile(ctx context.Context, profile *models.InvestmentProfile) error

	// UpsertSnapshot replaces the snapshot for its date; one row per day.
	UpsertSnapshot(ctx context.Context, snapshot *models.PortfolioSnapshot) error
	GetSnapshot(ctx context.Context, date string) (*models.PortfolioSnapshot, error)
	ListSnapshots(ctx context.Context, fromDate string) ([]models.PortfolioSnapshot, error)
}

// NotifyStore persists notification dispatch times and FX watch
// configurations.
type NotifyStore interface {
	LastSent(ctx context.Context, notifType string) (*time.Time, error)
	RecordSent(ctx context.Context, notifType string, at time.Time) error

	SaveFXWatch(ctx context.Context, watch *models.FXWatchConfig) error
	GetFXWatch(ctx context.Context, id string) (*models.FXWatchConfig, error)
	ListFXWatches(ctx context.Context, activeOnly bool) ([]models.FXWatchConfig, error)
	DeleteFXWatch(ctx context.Context, id string) error
}
