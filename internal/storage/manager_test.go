package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestTickerStore_RoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	ticker := &models.TrackedTicker{
		Symbol:    "NVDA",
		Category:  models.CategoryGrowth,
		Thesis:    "AI capex cycle",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, m.Tickers().SaveTicker(ctx, ticker))

	got, err := m.Tickers().GetTicker(ctx, "nvda")
	require.NoError(t, err)
	assert.Equal(t, "NVDA", got.Symbol)
	assert.Equal(t, models.CategoryGrowth, got.Category)

	_, err = m.Tickers().GetTicker(ctx, "MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTickerStore_ListActiveOnly(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for _, tc := range []struct {
		symbol string
		active bool
	}{
		{"AAPL", true},
		{"INTC", false},
		{"MSFT", true},
	} {
		require.NoError(t, m.Tickers().SaveTicker(ctx, &models.TrackedTicker{
			Symbol: tc.symbol, Category: models.CategoryMoat, Active: tc.active,
		}))
	}

	active, err := m.Tickers().ListTickers(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "AAPL", active[0].Symbol)
	assert.Equal(t, "MSFT", active[1].Symbol)

	all, err := m.Tickers().ListTickers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTickerStore_ThesisVersionsDense(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		v, err := m.Tickers().NextThesisVersion(ctx, "NVDA")
		require.NoError(t, err)
		assert.Equal(t, i, v)

		require.NoError(t, m.Tickers().AppendThesisLog(ctx, &models.ThesisLog{
			ID:        uuid.NewString(),
			Symbol:    "NVDA",
			Version:   v,
			Content:   fmt.Sprintf("thesis v%d", v),
			CreatedAt: time.Now().UTC(),
		}))
	}

	// Another symbol starts its own chain at 1
	v, err := m.Tickers().NextThesisVersion(ctx, "AMD")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	logs, err := m.Tickers().ListThesisLogs(ctx, "NVDA")
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, 1, logs[0].Version)
	assert.Equal(t, 3, logs[2].Version)
}

func TestTickerStore_PriceAlerts(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	alert := &models.PriceAlert{
		ID:        uuid.NewString(),
		Symbol:    "NVDA",
		Metric:    models.AlertMetricRSI,
		Operator:  models.AlertOpLT,
		Threshold: 30,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, m.Tickers().SavePriceAlert(ctx, alert))

	alerts, err := m.Tickers().ListPriceAlerts(ctx, "NVDA", true)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertMetricRSI, alerts[0].Metric)

	require.NoError(t, m.Tickers().DeletePriceAlert(ctx, alert.ID))
	alerts, err = m.Tickers().ListPriceAlerts(ctx, "NVDA", false)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestGuruStore_FilingsAndHoldings(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	guru := &models.Guru{ID: uuid.NewString(), Name: "Berkshire Hathaway", CIK: "1067983", Active: true}
	require.NoError(t, m.Gurus().SaveGuru(ctx, guru))

	byCIK, err := m.Gurus().GetGuruByCIK(ctx, "1067983")
	require.NoError(t, err)
	assert.Equal(t, guru.ID, byCIK.ID)

	older := &models.GuruFiling{
		ID:              uuid.NewString(),
		GuruID:          guru.ID,
		AccessionNumber: "0000950123-24-001518",
		ReportDate:      time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	newer := &models.GuruFiling{
		ID:              uuid.NewString(),
		GuruID:          guru.ID,
		AccessionNumber: "0000950123-24-008740",
		ReportDate:      time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, m.Gurus().SaveFiling(ctx, older))
	require.NoError(t, m.Gurus().SaveFiling(ctx, newer))

	latest, err := m.Gurus().LatestFilingByGuru(ctx, guru.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.AccessionNumber, latest.AccessionNumber)

	byAccession, err := m.Gurus().GetFilingByAccession(ctx, older.AccessionNumber)
	require.NoError(t, err)
	assert.Equal(t, older.ID, byAccession.ID)

	_, err = m.Gurus().GetFilingByAccession(ctx, "0000000000-00-000000")
	assert.ErrorIs(t, err, ErrNotFound)

	holdings := []models.GuruHolding{
		{ID: uuid.NewString(), FilingID: newer.ID, GuruID: guru.ID, CUSIP: "037833100", Ticker: "AAPL", Value: 174300000},
		{ID: uuid.NewString(), FilingID: newer.ID, GuruID: guru.ID, CUSIP: "060505104", Ticker: "BAC", Value: 29500000},
	}
	require.NoError(t, m.Gurus().SaveHoldings(ctx, holdings))

	got, err := m.Gurus().ListHoldingsByFiling(ctx, newer.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Largest first
	assert.Equal(t, "AAPL", got[0].Ticker)
}

func TestPortfolioStore_ProfileValidation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	bad := &models.InvestmentProfile{
		TargetAllocation: map[models.Category]float64{models.CategoryGrowth: 50},
		HomeCurrency:     "USD",
	}
	assert.Error(t, m.Portfolio().SaveProfile(ctx, bad))

	good := &models.InvestmentProfile{
		TargetAllocation: map[models.Category]float64{
			models.CategoryTrendSetter: 30,
			models.CategoryMoat:        25,
			models.CategoryGrowth:      25,
			models.CategoryBond:        15,
			models.CategoryCash:        5,
		},
		HomeCurrency: "USD",
	}
	require.NoError(t, m.Portfolio().SaveProfile(ctx, good))

	got, err := m.Portfolio().GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD", got.HomeCurrency)
	assert.Equal(t, 30.0, got.TargetAllocation[models.CategoryTrendSetter])
}

func TestPortfolioStore_SnapshotUpsertByDate(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first := &models.PortfolioSnapshot{Date: "2026-08-24", TotalValue: 100000, Currency: "USD"}
	require.NoError(t, m.Portfolio().UpsertSnapshot(ctx, first))

	// Same date overwrites, no second row
	second := &models.PortfolioSnapshot{Date: "2026-08-24", TotalValue: 101500, Currency: "USD"}
	require.NoError(t, m.Portfolio().UpsertSnapshot(ctx, second))

	require.NoError(t, m.Portfolio().UpsertSnapshot(ctx, &models.PortfolioSnapshot{
		Date: "2026-08-25", TotalValue: 102000, Currency: "USD",
	}))

	all, err := m.Portfolio().ListSnapshots(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2026-08-24", all[0].Date)
	assert.Equal(t, 101500.0, all[0].TotalValue)

	recent, err := m.Portfolio().ListSnapshots(ctx, "2026-08-25")
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "2026-08-25", recent[0].Date)
}

func TestNotifyStore_LastSent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	last, err := m.Notify().LastSent(ctx, "scan_signal")
	require.NoError(t, err)
	assert.Nil(t, last)

	sent := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	require.NoError(t, m.Notify().RecordSent(ctx, "scan_signal", sent))

	last, err = m.Notify().LastSent(ctx, "scan_signal")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, sent, *last)
}

func TestNotifyStore_FXWatches(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	watch := &models.FXWatchConfig{
		ID:                   uuid.NewString(),
		Base:                 "EUR",
		Quote:                "USD",
		LookbackDays:         90,
		ConsecutiveThreshold: 3,
		AlertOnConsecutive:   true,
		Active:               true,
	}
	require.NoError(t, m.Notify().SaveFXWatch(ctx, watch))

	watches, err := m.Notify().ListFXWatches(ctx, true)
	require.NoError(t, err)
	require.Len(t, watches, 1)
	assert.Equal(t, "EURUSD", watches[0].Pair())

	require.NoError(t, m.Notify().DeleteFXWatch(ctx, watch.ID))
	watches, err = m.Notify().ListFXWatches(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, watches)
}
