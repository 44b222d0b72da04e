package marketdata

import (
	"context"

	"github.com/bvanryn/specula/internal/analytics"
	"github.com/bvanryn/specula/internal/cache"
	"github.com/bvanryn/specula/internal/clients/yahoo"
	"github.com/bvanryn/specula/internal/models"
)

// getFundamentals resolves the one-call quoteSummary extraction through
// the cache; every fundamentals-derived accessor reads from it.
func (s *Service) getFundamentals(ctx context.Context, symbol string) (*yahoo.Fundamentals, error) {
	return cache.Fetch(ctx, s.fabric, nsFundamentals, symbol, func(ctx context.Context) (*yahoo.Fundamentals, error) {
		return s.client.Fundamentals(ctx, symbol)
	})
}

// AnalyzeMoatTrend classifies the gross-margin trend. Bonds, cash and
// ETFs have no margin to track: they read NOT_AVAILABLE without an
// upstream call.
func (s *Service) AnalyzeMoatTrend(ctx context.Context, symbol string, category models.Category, isETF bool) (*models.MoatTrend, error) {
	if !category.MoatEligible() || isETF {
		return &models.MoatTrend{Symbol: symbol, Status: models.MoatNotAvailable}, nil
	}

	return cache.Fetch(ctx, s.fabric, nsMoat, symbol, func(ctx context.Context) (*models.MoatTrend, error) {
		f, err := s.getFundamentals(ctx, symbol)
		if err != nil {
			return nil, err
		}
		status, change := analytics.ClassifyMoat(f.GrossMarginCurrent, f.GrossMarginPrevious)
		return &models.MoatTrend{
			Symbol:         symbol,
			Status:         status,
			MarginChange:   change,
			CurrentMargin:  f.GrossMarginCurrent,
			PreviousMargin: f.GrossMarginPrevious,
		}, nil
	})
}

// GetStockBeta returns the provider beta. (nil, nil) means the provider
// was asked and has no figure; the absence is cached like any value.
func (s *Service) GetStockBeta(ctx context.Context, symbol string) (*float64, error) {
	beta, err := cache.Fetch(ctx, s.fabric, nsBeta, symbol, func(ctx context.Context) (float64, error) {
		f, err := s.getFundamentals(ctx, symbol)
		if err != nil {
			return 0, err
		}
		if f.Beta == nil {
			return 0, cache.ErrNoValue
		}
		return *f.Beta, nil
	})
	if err == cache.ErrNoValue {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &beta, nil
}

// GetTickerSector returns the company's sector, or "" when unknown.
func (s *Service) GetTickerSector(ctx context.Context, symbol string) (string, error) {
	sector, err := cache.Fetch(ctx, s.fabric, nsSector, symbol, func(ctx context.Context) (string, error) {
		f, err := s.getFundamentals(ctx, symbol)
		if err != nil {
			return "", err
		}
		if f.Sector == "" {
			return "", cache.ErrNoValue
		}
		return f.Sector, nil
	})
	if err == cache.ErrNoValue {
		return "", nil
	}
	return sector, err
}

// GetDividendInfo returns the symbol's dividend profile.
func (s *Service) GetDividendInfo(ctx context.Context, symbol string) (*models.DividendInfo, error) {
	return cache.Fetch(ctx, s.fabric, nsDividend, symbol, func(ctx context.Context) (*models.DividendInfo, error) {
		f, err := s.getFundamentals(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return &models.DividendInfo{
			Symbol:      symbol,
			Rate:        f.DividendRate,
			Yield:       f.DividendYield,
			ExDate:      f.ExDividendDate,
			PayoutRatio: f.PayoutRatio,
		}, nil
	})
}

// GetEarningsDate returns the next scheduled earnings date, when known.
func (s *Service) GetEarningsDate(ctx context.Context, symbol string) (*models.EarningsInfo, error) {
	return cache.Fetch(ctx, s.fabric, nsEarnings, symbol, func(ctx context.Context) (*models.EarningsInfo, error) {
		f, err := s.getFundamentals(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return &models.EarningsInfo{Symbol: symbol, NextDate: f.EarningsDate}, nil
	})
}

// DetectIsETF reports whether the provider classifies the symbol as an
// exchange-traded fund.
func (s *Service) DetectIsETF(ctx context.Context, symbol string) (bool, error) {
	f, err := s.getFundamentals(ctx, symbol)
	if err != nil {
		return false, err
	}
	return f.IsETF(), nil
}

func (s *Service) getETFProfile(ctx context.Context, symbol string) (*yahoo.ETFProfile, error) {
	return cache.Fetch(ctx, s.fabric, nsETFHoldings, symbol, func(ctx context.Context) (*yahoo.ETFProfile, error) {
		return s.client.ETFProfile(ctx, symbol)
	})
}

// GetETFTopHoldings returns the fund's top constituents.
func (s *Service) GetETFTopHoldings(ctx context.Context, symbol string) ([]models.ETFHolding, error) {
	profile, err := s.getETFProfile(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return profile.Holdings, nil
}

// GetETFSectorWeights returns the fund's sector allocation.
func (s *Service) GetETFSectorWeights(ctx context.Context, symbol string) ([]models.SectorWeight, error) {
	return cache.Fetch(ctx, s.fabric, nsSectorWeights, symbol, func(ctx context.Context) ([]models.SectorWeight, error) {
		profile, err := s.getETFProfile(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return profile.SectorWeights, nil
	})
}
