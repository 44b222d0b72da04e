// Package ticker manages the tracked-ticker lifecycle: add, remove,
// reactivate, thesis versioning, category changes and price alerts.
package ticker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/interfaces"
	"github.com/bvanryn/specula/internal/models"
	"github.com/bvanryn/specula/internal/storage"
)

// Domain conflict errors.
var (
	ErrTickerExists      = errors.New("ticker is already tracked")
	ErrTickerNotFound    = errors.New("ticker is not tracked")
	ErrTickerInactive    = errors.New("ticker is inactive")
	ErrTickerActive      = errors.New("ticker is already active")
	ErrCategoryUnchanged = errors.New("category unchanged")
)

// Service implements interfaces.TickerService.
type Service struct {
	store  interfaces.TickerStore
	market interfaces.MarketDataService
	logger *common.Logger
}

// NewService creates the ticker service. market may be nil, disabling
// ETF autodetection.
func NewService(logger *common.Logger, store interfaces.TickerStore, market interfaces.MarketDataService) *Service {
	return &Service{store: store, market: market, logger: logger}
}

// Add starts tracking a symbol with its initial thesis. The thesis is
// recorded as version 1 of the symbol's chain (or the next version when
// the symbol was tracked before).
func (s *Service) Add(ctx context.Context, symbol string, category models.Category, thesis string, tags []string) (*models.TrackedTicker, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol")
	}
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	existing, err := s.store.GetTicker(ctx, symbol)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Active {
			return nil, fmt.Errorf("%s: %w", symbol, ErrTickerExists)
		}
		return nil, fmt.Errorf("%s was removed; reactivate it instead: %w", symbol, ErrTickerInactive)
	}

	isETF := false
	if s.market != nil {
		detected, derr := s.market.DetectIsETF(ctx, symbol)
		if derr != nil {
			s.logger.Warn().Err(derr).Str("symbol", symbol).Msg("Ticker: ETF detection failed, assuming stock")
		} else {
			isETF = detected
		}
	}

	now := time.Now().UTC()
	ticker := &models.TrackedTicker{
		Symbol:    symbol,
		Category:  category,
		Thesis:    thesis,
		Tags:      tags,
		IsETF:     isETF,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveTicker(ctx, ticker); err != nil {
		return nil, err
	}
	if err := s.appendThesis(ctx, symbol, thesis, tags); err != nil {
		return nil, err
	}

	s.logger.Info().Str("symbol", symbol).Str("category", string(category)).Bool("etf", isETF).Msg("Ticker: added")
	return ticker, nil
}

func (s *Service) appendThesis(ctx context.Context, symbol, content string, tags []string) error {
	version, err := s.store.NextThesisVersion(ctx, symbol)
	if err != nil {
		return err
	}
	return s.store.AppendThesisLog(ctx, &models.ThesisLog{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Version:   version,
		Content:   content,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	})
}

// Remove deactivates a ticker and records why. History is kept.
func (s *Service) Remove(ctx context.Context, symbol, reason string) error {
	symbol = models.NormalizeSymbol(symbol)
	ticker, err := s.getTracked(ctx, symbol)
	if err != nil {
		return err
	}
	if !ticker.Active {
		return fmt.Errorf("%s: %w", symbol, ErrTickerInactive)
	}

	ticker.Active = false
	ticker.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveTicker(ctx, ticker); err != nil {
		return err
	}
	if err := s.store.AppendRemovalLog(ctx, &models.RemovalLog{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	s.logger.Info().Str("symbol", symbol).Str("reason", reason).Msg("Ticker: removed")
	return nil
}

// Reactivate resumes tracking a previously removed ticker.
func (s *Service) Reactivate(ctx context.Context, symbol string) (*models.TrackedTicker, error) {
	symbol = models.NormalizeSymbol(symbol)
	ticker, err := s.getTracked(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if ticker.Active {
		return nil, fmt.Errorf("%s: %w", symbol, ErrTickerActive)
	}

	ticker.Active = true
	ticker.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveTicker(ctx, ticker); err != nil {
		return nil, err
	}

	s.logger.Info().Str("symbol", symbol).Msg("Ticker: reactivated")
	return ticker, nil
}

// UpdateThesis appends the next thesis version and makes it current.
func (s *Service) UpdateThesis(ctx context.Context, symbol, content string, tags []string) (*models.ThesisLog, error) {
	symbol = models.NormalizeSymbol(symbol)
	ticker, err := s.getTracked(ctx, symbol)
	if err != nil {
		return nil, err
	}

	version, err := s.store.NextThesisVersion(ctx, symbol)
	if err != nil {
		return nil, err
	}
	entry := &models.ThesisLog{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Version:   version,
		Content:   content,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendThesisLog(ctx, entry); err != nil {
		return nil, err
	}

	ticker.Thesis = content
	ticker.Tags = tags
	ticker.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveTicker(ctx, ticker); err != nil {
		return nil, err
	}

	s.logger.Info().Str("symbol", symbol).Int("version", version).Msg("Ticker: thesis updated")
	return entry, nil
}

// ChangeCategory moves a ticker to another category.
func (s *Service) ChangeCategory(ctx context.Context, symbol string, category models.Category) (*models.TrackedTicker, error) {
	symbol = models.NormalizeSymbol(symbol)
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	ticker, err := s.getTracked(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if ticker.Category == category {
		return nil, fmt.Errorf("%s is already %s: %w", symbol, category, ErrCategoryUnchanged)
	}

	ticker.Category = category
	ticker.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveTicker(ctx, ticker); err != nil {
		return nil, err
	}
	return ticker, nil
}

// Get returns one tracked ticker.
func (s *Service) Get(ctx context.Context, symbol string) (*models.TrackedTicker, error) {
	return s.getTracked(ctx, models.NormalizeSymbol(symbol))
}

// List returns tracked tickers, optionally active only.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]models.TrackedTicker, error) {
	return s.store.ListTickers(ctx, activeOnly)
}

func (s *Service) getTracked(ctx context.Context, symbol string) (*models.TrackedTicker, error) {
	ticker, err := s.store.GetTicker(ctx, symbol)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", symbol, ErrTickerNotFound)
	}
	if err != nil {
		return nil, err
	}
	return ticker, nil
}

// AddPriceAlert creates an active alert on a tracked symbol.
func (s *Service) AddPriceAlert(ctx context.Context, symbol string, metric models.AlertMetric, op models.AlertOperator, threshold float64) (*models.PriceAlert, error) {
	symbol = models.NormalizeSymbol(symbol)
	if _, err := s.getTracked(ctx, symbol); err != nil {
		return nil, err
	}

	switch metric {
	case models.AlertMetricRSI, models.AlertMetricPrice, models.AlertMetricBias:
	default:
		return nil, fmt.Errorf("unknown alert metric %q", metric)
	}
	switch op {
	case models.AlertOpLT, models.AlertOpGT:
	default:
		return nil, fmt.Errorf("unknown alert operator %q", op)
	}

	alert := &models.PriceAlert{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Metric:    metric,
		Operator:  op,
		Threshold: threshold,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SavePriceAlert(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// ListPriceAlerts returns the alerts for one symbol, or all when empty.
func (s *Service) ListPriceAlerts(ctx context.Context, symbol string) ([]models.PriceAlert, error) {
	return s.store.ListPriceAlerts(ctx, models.NormalizeSymbol(symbol), false)
}

// RemovePriceAlert deletes an alert by id.
func (s *Service) RemovePriceAlert(ctx context.Context, id string) error {
	return s.store.DeletePriceAlert(ctx, id)
}
