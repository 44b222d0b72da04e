package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/models"
)

// profileKey is the singleton key for the investment profile.
const profileKey = "investment_profile"

type portfolioStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

func (s *portfolioStore) SaveHolding(_ context.Context, holding *models.Holding) error {
	holding.UpdatedAt = time.Now().UTC()
	if err := s.db.Upsert(holding.Symbol, holding); err != nil {
		return fmt.Errorf("failed to save holding %s: %w", holding.Symbol, err)
	}
	return nil
}

func (s *portfolioStore) GetHolding(_ context.Context, symbol string) (*models.Holding, error) {
	var holding models.Holding
	if err := s.db.Get(models.NormalizeSymbol(symbol), &holding); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get holding %s: %w", symbol, err)
	}
	return &holding, nil
}

func (s *portfolioStore) DeleteHolding(_ context.Context, symbol string) error {
	err := s.db.Delete(models.NormalizeSymbol(symbol), models.Holding{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete holding %s: %w", symbol, err)
	}
	return nil
}

func (s *portfolioStore) ListHoldings(_ context.Context) ([]models.Holding, error) {
	var holdings []models.Holding
	if err := s.db.Find(&holdings, nil); err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Symbol < holdings[j].Symbol
	})
	return holdings, nil
}

func (s *portfolioStore) GetProfile(_ context.Context) (*models.InvestmentProfile, error) {
	var profile models.InvestmentProfile
	if err := s.db.Get(profileKey, &profile); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get investment profile: %w", err)
	}
	return &profile, nil
}

func (s *portfolioStore) SaveProfile(_ context.Context, profile *models.InvestmentProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	profile.UpdatedAt = time.Now().UTC()
	if err := s.db.Upsert(profileKey, profile); err != nil {
		return fmt.Errorf("failed to save investment profile: %w", err)
	}
	return nil
}

func (s *portfolioStore) UpsertSnapshot(_ context.Context, snapshot *models.PortfolioSnapshot) error {
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Upsert(snapshot.Date, snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.Date, err)
	}
	s.logger.Debug().Str("date", snapshot.Date).Float64("total", snapshot.TotalValue).Msg("Storage: snapshot saved")
	return nil
}

func (s *portfolioStore) GetSnapshot(_ context.Context, date string) (*models.PortfolioSnapshot, error) {
	var snapshot models.PortfolioSnapshot
	if err := s.db.Get(date, &snapshot); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot %s: %w", date, err)
	}
	return &snapshot, nil
}

// ListSnapshots returns snapshots dated on or after fromDate, oldest
// first. An empty fromDate returns the full history.
func (s *portfolioStore) ListSnapshots(_ context.Context, fromDate string) ([]models.PortfolioSnapshot, error) {
	var snapshots []models.PortfolioSnapshot
	var query *badgerhold.Query
	if fromDate != "" {
		query = badgerhold.Where("Date").Ge(fromDate)
	}
	if err := s.db.Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Date < snapshots[j].Date
	})
	return snapshots, nil
}
