package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/models"
)

type guruStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

func (s *guruStore) SaveGuru(_ context.Context, guru *models.Guru) error {
	if err := s.db.Upsert(guru.ID, guru); err != nil {
		return fmt.Errorf("failed to save guru %s: %w", guru.Name, err)
	}
	return nil
}

func (s *guruStore) GetGuru(_ context.Context, id string) (*models.Guru, error) {
	var guru models.Guru
	if err := s.db.Get(id, &guru); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get guru %s: %w", id, err)
	}
	return &guru, nil
}

func (s *guruStore) GetGuruByCIK(_ context.Context, cik string) (*models.Guru, error) {
	var gurus []models.Guru
	if err := s.db.Find(&gurus, badgerhold.Where("CIK").Eq(cik)); err != nil {
		return nil, fmt.Errorf("failed to find guru by CIK %s: %w", cik, err)
	}
	if len(gurus) == 0 {
		return nil, ErrNotFound
	}
	return &gurus[0], nil
}

func (s *guruStore) ListGurus(_ context.Context, activeOnly bool) ([]models.Guru, error) {
	var gurus []models.Guru
	var query *badgerhold.Query
	if activeOnly {
		query = badgerhold.Where("Active").Eq(true)
	}
	if err := s.db.Find(&gurus, query); err != nil {
		return nil, fmt.Errorf("failed to list gurus: %w", err)
	}
	sort.Slice(gurus, func(i, j int) bool {
		return gurus[i].Name < gurus[j].Name
	})
	return gurus, nil
}

func (s *guruStore) SaveFiling(_ context.Context, filing *models.GuruFiling) error {
	if err := s.db.Upsert(filing.ID, filing); err != nil {
		return fmt.Errorf("failed to save filing %s: %w", filing.AccessionNumber, err)
	}
	s.logger.Debug().
		Str("accession", filing.AccessionNumber).
		Str("guru_id", filing.GuruID).
		Msg("Storage: filing saved")
	return nil
}

func (s *guruStore) GetFilingByAccession(_ context.Context, accession string) (*models.GuruFiling, error) {
	var filings []models.GuruFiling
	if err := s.db.Find(&filings, badgerhold.Where("AccessionNumber").Eq(accession)); err != nil {
		return nil, fmt.Errorf("failed to find filing %s: %w", accession, err)
	}
	if len(filings) == 0 {
		return nil, ErrNotFound
	}
	return &filings[0], nil
}

func (s *guruStore) LatestFilingByGuru(ctx context.Context, guruID string) (*models.GuruFiling, error) {
	filings, err := s.ListFilingsByGuru(ctx, guruID)
	if err != nil {
		return nil, err
	}
	if len(filings) == 0 {
		return nil, ErrNotFound
	}
	return &filings[0], nil
}

// ListFilingsByGuru returns filings newest report first.
func (s *guruStore) ListFilingsByGuru(_ context.Context, guruID string) ([]models.GuruFiling, error) {
	var filings []models.GuruFiling
	if err := s.db.Find(&filings, badgerhold.Where("GuruID").Eq(guruID)); err != nil {
		return nil, fmt.Errorf("failed to list filings for guru %s: %w", guruID, err)
	}
	sort.Slice(filings, func(i, j int) bool {
		return filings[i].ReportDate.After(filings[j].ReportDate)
	})
	return filings, nil
}

func (s *guruStore) SaveHoldings(_ context.Context, holdings []models.GuruHolding) error {
	for i := range holdings {
		if err := s.db.Upsert(holdings[i].ID, &holdings[i]); err != nil {
			return fmt.Errorf("failed to save holding %s: %w", holdings[i].CUSIP, err)
		}
	}
	return nil
}

func (s *guruStore) ListHoldingsByFiling(_ context.Context, filingID string) ([]models.GuruHolding, error) {
	var holdings []models.GuruHolding
	if err := s.db.Find(&holdings, badgerhold.Where("FilingID").Eq(filingID)); err != nil {
		return nil, fmt.Errorf("failed to list holdings for filing %s: %w", filingID, err)
	}
	// Largest positions first
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Value > holdings[j].Value
	})
	return holdings, nil
}
