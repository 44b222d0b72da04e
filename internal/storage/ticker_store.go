package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/models"
)

type tickerStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

func (s *tickerStore) GetTicker(_ context.Context, symbol string) (*models.TrackedTicker, error) {
	var ticker models.TrackedTicker
	if err := s.db.Get(models.NormalizeSymbol(symbol), &ticker); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ticker %s: %w", symbol, err)
	}
	return &ticker, nil
}

func (s *tickerStore) SaveTicker(_ context.Context, ticker *models.TrackedTicker) error {
	if err := s.db.Upsert(ticker.Symbol, ticker); err != nil {
		return fmt.Errorf("failed to save ticker %s: %w", ticker.Symbol, err)
	}
	s.logger.Debug().Str("symbol", ticker.Symbol).Msg("Storage: ticker saved")
	return nil
}

func (s *tickerStore) ListTickers(_ context.Context, activeOnly bool) ([]models.TrackedTicker, error) {
	var tickers []models.TrackedTicker
	var query *badgerhold.Query
	if activeOnly {
		query = badgerhold.Where("Active").Eq(true)
	}
	if err := s.db.Find(&tickers, query); err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	sort.Slice(tickers, func(i, j int) bool {
		return tickers[i].Symbol < tickers[j].Symbol
	})
	return tickers, nil
}

func (s *tickerStore) AppendThesisLog(_ context.Context, entry *models.ThesisLog) error {
	if err := s.db.Insert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to append thesis log for %s: %w", entry.Symbol, err)
	}
	return nil
}

func (s *tickerStore) NextThesisVersion(_ context.Context, symbol string) (int, error) {
	var logs []models.ThesisLog
	if err := s.db.Find(&logs, badgerhold.Where("Symbol").Eq(symbol)); err != nil {
		return 0, fmt.Errorf("failed to read thesis logs for %s: %w", symbol, err)
	}
	max := 0
	for _, l := range logs {
		if l.Version > max {
			max = l.Version
		}
	}
	return max + 1, nil
}

func (s *tickerStore) ListThesisLogs(_ context.Context, symbol string) ([]models.ThesisLog, error) {
	var logs []models.ThesisLog
	if err := s.db.Find(&logs, badgerhold.Where("Symbol").Eq(symbol)); err != nil {
		return nil, fmt.Errorf("failed to list thesis logs for %s: %w", symbol, err)
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Version < logs[j].Version
	})
	return logs, nil
}

func (s *tickerStore) AppendRemovalLog(_ context.Context, entry *models.RemovalLog) error {
	if err := s.db.Insert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to append removal log for %s: %w", entry.Symbol, err)
	}
	return nil
}

func (s *tickerStore) ListRemovalLogs(_ context.Context, symbol string) ([]models.RemovalLog, error) {
	var logs []models.RemovalLog
	if err := s.db.Find(&logs, badgerhold.Where("Symbol").Eq(symbol)); err != nil {
		return nil, fmt.Errorf("failed to list removal logs for %s: %w", symbol, err)
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].CreatedAt.Before(logs[j].CreatedAt)
	})
	return logs, nil
}

func (s *tickerStore) AppendScanLogs(_ context.Context, entries []models.ScanLog) error {
	for i := range entries {
		if err := s.db.Insert(entries[i].ID, &entries[i]); err != nil {
			return fmt.Errorf("failed to append scan log for %s: %w", entries[i].Symbol, err)
		}
	}
	return nil
}

func (s *tickerStore) ListScanLogs(_ context.Context, symbol string, limit int) ([]models.ScanLog, error) {
	var logs []models.ScanLog
	var query *badgerhold.Query
	if symbol != "" {
		query = badgerhold.Where("Symbol").Eq(symbol)
	}
	if err := s.db.Find(&logs, query); err != nil {
		return nil, fmt.Errorf("failed to list scan logs: %w", err)
	}
	// Newest first
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *tickerStore) SavePriceAlert(_ context.Context, alert *models.PriceAlert) error {
	if err := s.db.Upsert(alert.ID, alert); err != nil {
		return fmt.Errorf("failed to save price alert for %s: %w", alert.Symbol, err)
	}
	return nil
}

func (s *tickerStore) GetPriceAlert(_ context.Context, id string) (*models.PriceAlert, error) {
	var alert models.PriceAlert
	if err := s.db.Get(id, &alert); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get price alert %s: %w", id, err)
	}
	return &alert, nil
}

func (s *tickerStore) ListPriceAlerts(_ context.Context, symbol string, activeOnly bool) ([]models.PriceAlert, error) {
	var alerts []models.PriceAlert
	var query *badgerhold.Query
	switch {
	case symbol != "" && activeOnly:
		query = badgerhold.Where("Symbol").Eq(symbol).And("Active").Eq(true)
	case symbol != "":
		query = badgerhold.Where("Symbol").Eq(symbol)
	case activeOnly:
		query = badgerhold.Where("Active").Eq(true)
	}
	if err := s.db.Find(&alerts, query); err != nil {
		return nil, fmt.Errorf("failed to list price alerts: %w", err)
	}
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
	})
	return alerts, nil
}

func (s *tickerStore) DeletePriceAlert(_ context.Context, id string) error {
	err := s.db.Delete(id, models.PriceAlert{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete price alert %s: %w", id, err)
	}
	return nil
}
