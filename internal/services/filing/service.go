// Package filing syncs guru 13F filings from EDGAR into the local
// store. A filing, once synced, is never re-fetched: the accession
// number is the idempotency key.
package filing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bvanryn/specula/internal/analytics"
	"github.com/bvanryn/specula/internal/clients/edgar"
	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/interfaces"
	"github.com/bvanryn/specula/internal/models"
	"github.com/bvanryn/specula/internal/storage"
)

// topHoldingsCount is how many positions a sync summary reports.
const topHoldingsCount = 5

// Service implements interfaces.FilingService.
type Service struct {
	edgar        interfaces.EdgarClient
	gurus        interfaces.GuruStore
	market       interfaces.MarketDataService // nil disables sector lookup
	logger       *common.Logger
	thresholdPct float64
}

// NewService creates the filing sync service.
func NewService(logger *common.Logger, gurus interfaces.GuruStore, edgarClient interfaces.EdgarClient, market interfaces.MarketDataService) *Service {
	return &Service{
		edgar:        edgarClient,
		gurus:        gurus,
		market:       market,
		logger:       logger,
		thresholdPct: analytics.DefaultChangeThresholdPct,
	}
}

// SyncGuruFiling syncs the guru's two most recent 13F-HR filings,
// oldest first so quarter-over-quarter diffs chain correctly.
func (s *Service) SyncGuruFiling(ctx context.Context, guruID string) ([]models.FilingSyncSummary, error) {
	guru, err := s.gurus.GetGuru(ctx, guruID)
	if err != nil {
		return nil, err
	}

	filings, err := s.edgar.Latest13F(ctx, guru.CIK, 2)
	if err != nil {
		return nil, fmt.Errorf("sync %s: %w", guru.Name, err)
	}
	return s.syncAll(ctx, guru, filings)
}

// BackfillGuruFilings syncs every 13F-HR whose report date falls within
// the last years, oldest first.
func (s *Service) BackfillGuruFilings(ctx context.Context, guruID string, years int) ([]models.FilingSyncSummary, error) {
	guru, err := s.gurus.GetGuru(ctx, guruID)
	if err != nil {
		return nil, err
	}

	all, err := s.edgar.CompanyFilings(ctx, guru.CIK)
	if err != nil {
		return nil, fmt.Errorf("backfill %s: %w", guru.Name, err)
	}

	cutoff := time.Now().UTC().AddDate(-years, 0, 0)
	var filings []models.Filing13F
	for _, f := range all {
		if f.Form == "13F-HR" && !f.ReportDate.Before(cutoff) {
			filings = append(filings, f)
		}
	}
	return s.syncAll(ctx, guru, filings)
}

func (s *Service) syncAll(ctx context.Context, guru *models.Guru, filings []models.Filing13F) ([]models.FilingSyncSummary, error) {
	sort.Slice(filings, func(i, j int) bool {
		return filings[i].ReportDate.Before(filings[j].ReportDate)
	})

	summaries := make([]models.FilingSyncSummary, 0, len(filings))
	for _, f := range filings {
		summary, err := s.syncFiling(ctx, guru, f)
		if err != nil {
			// A failed quarter must not block later ones
			s.logger.Error().Err(err).
				Str("guru", guru.Name).
				Str("accession", f.AccessionNumber).
				Msg("Filing: sync failed")
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// syncFiling processes one filing end to end. The previous-quarter
// share snapshot is taken before anything is persisted, so the diff is
// computed against the state the filing arrived into.
func (s *Service) syncFiling(ctx context.Context, guru *models.Guru, filing models.Filing13F) (models.FilingSyncSummary, error) {
	summary := models.FilingSyncSummary{
		AccessionNumber: filing.AccessionNumber,
		ReportDate:      filing.ReportDate,
	}

	if existing, err := s.gurus.GetFilingByAccession(ctx, filing.AccessionNumber); err == nil && existing != nil {
		summary.Status = "skipped"
		summary.HoldingsCount = existing.HoldingsCount
		return summary, nil
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return summary, err
	}

	prevShares, err := s.previousShares(ctx, guru.ID)
	if err != nil {
		return summary, err
	}

	raw, _, err := s.edgar.FilingDetail(ctx, guru.CIK, filing.AccessionNumber)
	if err != nil {
		return summary, err
	}

	positions := dedupe(raw)
	var totalValue float64
	for _, p := range positions {
		totalValue += p.value
	}

	sectors := s.resolveSectors(ctx, positions)

	filingRecord := &models.GuruFiling{
		ID:              uuid.NewString(),
		GuruID:          guru.ID,
		AccessionNumber: filing.AccessionNumber,
		ReportDate:      filing.ReportDate,
		FilingDate:      filing.FilingDate,
		TotalValue:      totalValue,
		HoldingsCount:   len(positions),
		FilingURL:       filing.FilingURL,
		SyncedAt:        time.Now().UTC(),
	}

	holdings := make([]models.GuruHolding, 0, len(positions))
	seen := make(map[string]bool, len(positions))
	for _, p := range positions {
		seen[p.key] = true
		action := analytics.ClassifyHoldingChange(p.shares, prevShares[p.key], s.thresholdPct)
		holding := models.GuruHolding{
			ID:          uuid.NewString(),
			FilingID:    filingRecord.ID,
			GuruID:      guru.ID,
			CUSIP:       p.cusip,
			Ticker:      p.ticker,
			CompanyName: p.name,
			Value:       p.value,
			Shares:      p.shares,
			Action:      action,
			ChangePct:   analytics.ChangePct(p.shares, prevShares[p.key]),
			WeightPct:   analytics.WeightPct(p.value, totalValue),
			Sector:      sectors[p.ticker],
		}
		holdings = append(holdings, holding)

		switch action {
		case models.ActionNewPosition:
			summary.NewPositions++
		case models.ActionIncreased:
			summary.Increased++
		case models.ActionDecreased:
			summary.Decreased++
		}
	}

	// Positions present last quarter but absent now become synthetic
	// SOLD_OUT rows, so the filing's holdings are the union of both
	// quarters' keys.
	for key, prev := range prevShares {
		if seen[key] || prev <= 0 {
			continue
		}
		ticker := tickerOf(key)
		cusip := ""
		if ticker == "" {
			cusip = key
		}
		holdings = append(holdings, models.GuruHolding{
			ID:        uuid.NewString(),
			FilingID:  filingRecord.ID,
			GuruID:    guru.ID,
			CUSIP:     cusip,
			Ticker:    ticker,
			Action:    models.ActionSoldOut,
			ChangePct: analytics.ChangePct(0, prev),
		})
		summary.SoldOut++
	}

	if err := s.gurus.SaveFiling(ctx, filingRecord); err != nil {
		return summary, err
	}
	if err := s.gurus.SaveHoldings(ctx, holdings); err != nil {
		return summary, err
	}

	summary.Status = "synced"
	summary.HoldingsCount = len(positions)
	summary.TopHoldings = topByWeight(holdings, topHoldingsCount)

	s.logger.Info().
		Str("guru", guru.Name).
		Str("accession", filing.AccessionNumber).
		Int("holdings", len(positions)).
		Int("new", summary.NewPositions).
		Int("sold_out", summary.SoldOut).
		Msg("Filing: synced")
	return summary, nil
}

// previousShares snapshots the latest synced filing's share counts,
// keyed the same way current positions are.
func (s *Service) previousShares(ctx context.Context, guruID string) (map[string]float64, error) {
	prev, err := s.gurus.LatestFilingByGuru(ctx, guruID)
	if errors.Is(err, storage.ErrNotFound) {
		return map[string]float64{}, nil
	}
	if err != nil {
		return nil, err
	}

	holdings, err := s.gurus.ListHoldingsByFiling(ctx, prev.ID)
	if err != nil {
		return nil, err
	}

	shares := make(map[string]float64, len(holdings))
	for _, h := range holdings {
		shares[positionKey(h.Ticker, h.CUSIP)] += h.Shares
	}
	return shares, nil
}

// position is one deduplicated holding of the current filing.
type position struct {
	key    string
	cusip  string
	ticker string
	name   string
	value  float64 // USD
	shares float64
}

// dedupe resolves CUSIPs to tickers and merges rows of the same
// security (filers often split one position across share classes or
// managers). Filed values are in thousands of USD and are scaled here.
func dedupe(raw []models.Raw13FHolding) []position {
	index := map[string]int{}
	var positions []position
	for _, r := range raw {
		ticker := edgar.MapCUSIPToTicker(r.CUSIP, r.CompanyName)
		key := positionKey(ticker, r.CUSIP)
		if i, ok := index[key]; ok {
			positions[i].value += r.Value * 1000
			positions[i].shares += r.Shares
			continue
		}
		index[key] = len(positions)
		positions = append(positions, position{
			key:    key,
			cusip:  r.CUSIP,
			ticker: ticker,
			name:   r.CompanyName,
			value:  r.Value * 1000,
			shares: r.Shares,
		})
	}
	return positions
}

// positionKey identifies a security across quarters: ticker when
// resolved, raw CUSIP otherwise.
func positionKey(ticker, cusip string) string {
	if ticker != "" {
		return ticker
	}
	return cusip
}

// tickerOf inverts positionKey for synthetic rows: a key that is not a
// 9-character CUSIP is a ticker.
func tickerOf(key string) string {
	if len(key) == 9 {
		return ""
	}
	return key
}

// resolveSectors looks up one sector per unique resolved ticker.
func (s *Service) resolveSectors(ctx context.Context, positions []position) map[string]string {
	sectors := map[string]string{}
	if s.market == nil {
		return sectors
	}
	for _, p := range positions {
		if p.ticker == "" {
			continue
		}
		if _, done := sectors[p.ticker]; done {
			continue
		}
		sector, err := s.market.GetTickerSector(ctx, p.ticker)
		if err != nil {
			s.logger.Debug().Err(err).Str("ticker", p.ticker).Msg("Filing: sector lookup failed")
			sector = ""
		}
		sectors[p.ticker] = sector
	}
	return sectors
}

func topByWeight(holdings []models.GuruHolding, n int) []models.GuruHolding {
	sorted := make([]models.GuruHolding, len(holdings))
	copy(sorted, holdings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].WeightPct > sorted[j].WeightPct
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// GuruPortfolio returns the holdings of the guru's latest synced filing.
func (s *Service) GuruPortfolio(ctx context.Context, guruID string) ([]models.GuruHolding, error) {
	latest, err := s.gurus.LatestFilingByGuru(ctx, guruID)
	if err != nil {
		return nil, err
	}
	return s.gurus.ListHoldingsByFiling(ctx, latest.ID)
}

// FilingHistory returns the guru's synced filings, newest first.
func (s *Service) FilingHistory(ctx context.Context, guruID string) ([]models.GuruFiling, error) {
	return s.gurus.ListFilingsByGuru(ctx, guruID)
}
