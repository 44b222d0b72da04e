package portfolio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/interfaces"
	"github.com/bvanryn/specula/internal/models"
	"github.com/bvanryn/specula/internal/services/notify"
	"github.com/bvanryn/specula/internal/storage"
)

func ptr(v float64) *float64 { return &v }

// stubMarket serves canned prices, rates and fundamentals.
type stubMarket struct {
	prices   map[string]float64
	changes  map[string]float64
	rates    map[string]float64 // "EURUSD" -> 1.1
	betas    map[string]*float64
	sectors  map[string]string
	etfs     map[string]bool
	fxSeries map[string][]float64
}

func (m *stubMarket) GetTechnicalSignals(_ context.Context, symbol string) (*models.TechnicalSignals, error) {
	price, ok := m.prices[symbol]
	if !ok {
		return nil, errors.New("no price for " + symbol)
	}
	s := &models.TechnicalSignals{Symbol: symbol, Price: price}
	if c, ok := m.changes[symbol]; ok {
		s.DailyChangePct = ptr(c)
	}
	return s, nil
}

func (m *stubMarket) GetForexRate(_ context.Context, base, quote string) (float64, error) {
	if base == quote {
		return 1, nil
	}
	if r, ok := m.rates[base+quote]; ok {
		return r, nil
	}
	return 0, errors.New("no rate for " + base + quote)
}

func (m *stubMarket) GetForexHistory(_ context.Context, base, quote string, days int) ([]models.Candle, error) {
	closes, ok := m.fxSeries[base+quote]
	if !ok {
		return nil, errors.New("no series for " + base + quote)
	}
	candles := make([]models.Candle, len(closes))
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = models.Candle{Date: start.AddDate(0, 0, i), Close: c}
	}
	return candles, nil
}

func (m *stubMarket) GetStockBeta(_ context.Context, symbol string) (*float64, error) {
	return m.betas[symbol], nil
}

func (m *stubMarket) GetTickerSector(_ context.Context, symbol string) (string, error) {
	return m.sectors[symbol], nil
}

func (m *stubMarket) DetectIsETF(_ context.Context, symbol string) (bool, error) {
	return m.etfs[symbol], nil
}

func (m *stubMarket) GetETFTopHoldings(_ context.Context, symbol string) ([]models.ETFHolding, error) {
	if symbol == "QQQ" {
		// 60% resolved across two constituents; the residual must scale
		// the resolved sectors, never create an Unknown bucket.
		return []models.ETFHolding{
			{Symbol: "AAPL", Name: "Apple", Weight: 0.40},
			{Symbol: "AMZN", Name: "Amazon", Weight: 0.20},
		}, nil
	}
	return nil, errors.New("no holdings")
}

func (m *stubMarket) GetETFSectorWeights(_ context.Context, symbol string) ([]models.SectorWeight, error) {
	if symbol == "SPY" {
		return []models.SectorWeight{
			{Sector: "Technology", Weight: 0.30},
			{Sector: "Financials", Weight: 0.70},
		}, nil
	}
	return nil, errors.New("no sector weights")
}

func (m *stubMarket) GetBiasDistribution(context.Context, string) ([]float64, error) {
	return nil, errors.New("not implemented")
}
func (m *stubMarket) AnalyzeMoatTrend(context.Context, string, models.Category, bool) (*models.MoatTrend, error) {
	return nil, errors.New("not implemented")
}
func (m *stubMarket) GetDividendInfo(context.Context, string) (*models.DividendInfo, error) {
	return nil, errors.New("not implemented")
}
func (m *stubMarket) GetEarningsDate(context.Context, string) (*models.EarningsInfo, error) {
	return nil, errors.New("not implemented")
}
func (m *stubMarket) GetVIX(context.Context) (float64, error) { return 20, nil }
func (m *stubMarket) GetFearGreedIndex(context.Context) (*models.FearGreedIndex, error) {
	return &models.FearGreedIndex{Score: 55, Level: models.Greed, Source: "cnn"}, nil
}
func (m *stubMarket) BatchDownloadHistory(_ context.Context, symbols []string) (map[string][]models.Candle, error) {
	return map[string][]models.Candle{}, nil
}
func (m *stubMarket) PrimeSignalsCacheBatch(context.Context, map[string][]models.Candle) {}
func (m *stubMarket) PrimeMoatCacheBatch(context.Context, []string)                     {}
func (m *stubMarket) PrimeETFHoldingsBatch(context.Context, []string)                   {}
func (m *stubMarket) PrimeSectorWeightsBatch(context.Context, []string)                 {}
func (m *stubMarket) PrimeBetaBatch(context.Context, []string)                          {}

var _ interfaces.MarketDataService = (*stubMarket)(nil)

type recordedMsg struct {
	typ  string
	text string
	png  []byte
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []recordedMsg
}

func (n *recordingNotifier) Send(_ context.Context, typ, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, recordedMsg{typ: typ, text: text})
	return nil
}

func (n *recordingNotifier) SendPhoto(_ context.Context, typ, caption string, png []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, recordedMsg{typ: typ, text: caption, png: png})
	return nil
}

func (n *recordingNotifier) SendWithPhoto(_ context.Context, typ, text, _ string, png []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, recordedMsg{typ: typ, text: text, png: png})
	return nil
}

func (n *recordingNotifier) byType(typ string) []recordedMsg {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedMsg
	for _, m := range n.sent {
		if m.typ == typ {
			out = append(out, m)
		}
	}
	return out
}

func fixtureMarket() *stubMarket {
	return &stubMarket{
		prices:  map[string]float64{"AAPL": 200, "SAP": 100, "SPY": 500},
		changes: map[string]float64{"AAPL": 1.2, "SAP": -3.4},
		rates:   map[string]float64{"EURUSD": 1.1},
		betas:   map[string]*float64{"AAPL": ptr(1.2)}, // SAP has none, defaults to 1.0
		sectors: map[string]string{"AAPL": "Technology", "SAP": "Technology", "AMZN": "Consumer Cyclical"},
		etfs:    map[string]bool{"SPY": true, "QQQ": true},
		fxSeries: map[string][]float64{
			"EURUSD": {1.15, 1.14, 1.16, 1.13, 1.12, 1.11},
		},
	}
}

// fixturePortfolio: AAPL 2000 (Moat), SAP 1100 (Growth, EUR), 900 cash.
// Total 4000 in display USD.
func seedPortfolio(t *testing.T, store interfaces.PortfolioStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.SaveProfile(ctx, &models.InvestmentProfile{
		TargetAllocation: map[models.Category]float64{
			models.CategoryTrendSetter: 20,
			models.CategoryMoat:        25,
			models.CategoryGrowth:      30,
			models.CategoryBond:        15,
			models.CategoryCash:        10,
		},
		HomeCurrency: "USD",
		UpdatedAt:    now,
	}))

	holdings := []models.Holding{
		{Symbol: "AAPL", Category: models.CategoryMoat, Quantity: 10, CostBasis: ptr(150), Currency: "USD", UpdatedAt: now},
		{Symbol: "SAP", Category: models.CategoryGrowth, Quantity: 10, CostBasis: ptr(120), Currency: "EUR", UpdatedAt: now},
		{Symbol: "USD", Category: models.CategoryCash, Quantity: 900, Currency: "USD", IsCash: true, UpdatedAt: now},
	}
	for i := range holdings {
		require.NoError(t, store.SaveHolding(ctx, &holdings[i]))
	}
}

func newTestService(t *testing.T, market *stubMarket, notifier interfaces.Notifier) (*Service, *storage.Manager) {
	t.Helper()
	mgr, err := storage.NewManager(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	seedPortfolio(t, mgr.Portfolio())

	svc := NewService(common.NewSilentLogger(), mgr.Portfolio(), mgr.Notify(), mgr.Tickers(), market, notifier, "USD", "SPY")
	return svc, mgr
}

func breakdownFor(t *testing.T, plan *models.RebalancePlan, cat models.Category) models.CategoryBreakdown {
	t.Helper()
	for _, b := range plan.Breakdown {
		if b.Category == cat {
			return b
		}
	}
	t.Fatalf("no breakdown for %s", cat)
	return models.CategoryBreakdown{}
}

func TestRebalance(t *testing.T) {
	svc, _ := newTestService(t, fixtureMarket(), nil)

	plan, err := svc.Rebalance(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4000.0, plan.TotalValue)
	assert.Equal(t, "USD", plan.Currency)

	moat := breakdownFor(t, plan, models.CategoryMoat)
	assert.Equal(t, 50.0, moat.ActualPct)
	assert.Equal(t, 25.0, moat.Drift)

	growth := breakdownFor(t, plan, models.CategoryGrowth)
	assert.InDelta(t, 27.5, growth.ActualPct, 0.01) // 10 SAP at 100 EUR, 1.10 direct
	assert.InDelta(t, -2.5, growth.Drift, 0.01)

	// Growth sits inside the 5pp band; the other four act, largest first
	require.Len(t, plan.Actions, 4)
	assert.Equal(t, models.CategoryMoat, plan.Actions[0].Category)
	assert.Equal(t, "reduce", plan.Actions[0].Direction)
	assert.Equal(t, 1000.0, plan.Actions[0].Amount)
	assert.Equal(t, models.CategoryTrendSetter, plan.Actions[1].Category)
	assert.Equal(t, "increase", plan.Actions[1].Direction)
	assert.Equal(t, 800.0, plan.Actions[1].Amount)

	// SAP carries an unrealized loss: cost 120 EUR vs price 100 EUR
	for _, hv := range plan.Holdings {
		if hv.Symbol == "SAP" {
			require.NotNil(t, hv.GainLoss)
			assert.InDelta(t, -220.0, *hv.GainLoss, 0.01)
		}
	}
}

func TestRebalance_XRay(t *testing.T) {
	svc, _ := newTestService(t, fixtureMarket(), nil)

	plan, err := svc.Rebalance(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, plan.XRay)

	bySector := map[string]models.XRaySector{}
	for _, x := range plan.XRay {
		bySector[x.Sector] = x
	}
	assert.Equal(t, 3100.0, bySector["Technology"].Value) // AAPL + SAP
	assert.Equal(t, 900.0, bySector["Cash"].Value)
	assert.NotContains(t, bySector, "Unknown")

	var pctSum float64
	for _, x := range plan.XRay {
		pctSum += x.Pct
	}
	assert.InDelta(t, 100.0, pctSum, 0.1)
}

func TestExpandETF_ResidualRedistribution(t *testing.T) {
	svc, _ := newTestService(t, fixtureMarket(), nil)
	ctx := context.Background()

	// SPY has published sector weights: strategy A
	spy := svc.expandETF(ctx, "SPY", 1000)
	assert.InDelta(t, 300.0, spy["Technology"], 0.01)
	assert.InDelta(t, 700.0, spy["Financials"], 0.01)

	// QQQ only resolves 60% through constituents: strategy B scales the
	// resolved sectors to cover the residual
	qqq := svc.expandETF(ctx, "QQQ", 1000)
	var total float64
	for sector, v := range qqq {
		assert.NotEqual(t, "Unknown", sector)
		total += v
	}
	assert.InDelta(t, 1000.0, total, 0.01)
	assert.InDelta(t, 666.67, qqq["Technology"], 0.01) // AAPL's 40% of the resolved 60%
}

func TestFXExposure(t *testing.T) {
	svc, _ := newTestService(t, fixtureMarket(), nil)

	report, err := svc.FXExposure(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "USD", report.HomeCurrency)
	assert.Equal(t, 4000.0, report.TotalValue)
	require.Len(t, report.Exposures, 2)
	assert.Equal(t, "USD", report.Exposures[0].Currency)
	assert.Equal(t, 2900.0, report.Exposures[0].Value)
	assert.Equal(t, "EUR", report.Exposures[1].Currency)
	assert.Equal(t, 1100.0, report.Exposures[1].Value)
	assert.InDelta(t, 27.5, report.ForeignPct, 0.01)
}

func TestStressTest(t *testing.T) {
	svc, _ := newTestService(t, fixtureMarket(), nil)

	result, err := svc.StressTest(context.Background(), 20)
	require.NoError(t, err)

	// AAPL beta 1.2 -> 24% of 2000 = 480; SAP defaults to 1.0 -> 220;
	// cash does not drop.
	assert.Equal(t, 4000.0, result.TotalValue)
	assert.Equal(t, 700.0, result.ExpectedLoss)
	assert.InDelta(t, 17.5, result.ExpectedLossPct, 0.01)
	assert.Equal(t, models.PainModerate, result.PainLevel)
	assert.InDelta(t, 0.875, result.PortfolioBeta, 0.001)

	_, err = svc.StressTest(context.Background(), -5)
	assert.Error(t, err)
}

func TestPlanWithdrawal(t *testing.T) {
	svc, _ := newTestService(t, fixtureMarket(), nil)

	plan, err := svc.PlanWithdrawal(context.Background(), 600)
	require.NoError(t, err)

	// Moat is 25pp overweight (cap 1000), so AAPL funds the whole need
	assert.Equal(t, 600.0, plan.TotalSellValue)
	assert.Zero(t, plan.Shortfall)
	require.NotEmpty(t, plan.Recommendations)
	first := plan.Recommendations[0]
	assert.Equal(t, 1, first.Priority)
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, 600.0, first.SellValue)
	assert.Equal(t, 3.0, first.QuantityToSell)
}

func TestTakeSnapshotAndTWR(t *testing.T) {
	svc, mgr := newTestService(t, fixtureMarket(), nil)
	ctx := context.Background()

	base := time.Date(2024, 6, 3, 22, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	snap, err := svc.TakeSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", snap.Date)
	assert.Equal(t, 4000.0, snap.TotalValue)
	assert.Equal(t, 2000.0, snap.CategoryValues[models.CategoryMoat])
	assert.Equal(t, 500.0, snap.BenchmarkValue) // SPY close

	// Same day again: still one snapshot
	_, err = svc.TakeSnapshot(ctx)
	require.NoError(t, err)
	all, err := mgr.Portfolio().ListSnapshots(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Two earlier days make a chain: 1000 -> 1100 -> 4000
	for _, seed := range []struct {
		date  string
		value float64
	}{{"2024-06-01", 1000}, {"2024-06-02", 1100}} {
		require.NoError(t, mgr.Portfolio().UpsertSnapshot(ctx, &models.PortfolioSnapshot{
			Date: seed.date, TotalValue: seed.value, Currency: "USD", CreatedAt: base,
		}))
	}

	twr, err := svc.TimeWeightedReturn(ctx, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	// 1.1 * (4000/1100) = 4.0 -> +300%
	assert.InDelta(t, 300.0, twr, 0.01)

	_, err = svc.TimeWeightedReturn(ctx, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err) // single snapshot is not a chain
}

func TestCheckFXWatches(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, mgr := newTestService(t, fixtureMarket(), notifier)
	ctx := context.Background()

	// The EURUSD fixture ends 1.13 > 1.12 > 1.11: three consecutive down
	// closes, and 1.11 is the lookback low.
	watch := &models.FXWatchConfig{
		ID: "w1", Base: "EUR", Quote: "USD",
		LookbackDays: 10, ConsecutiveThreshold: 3,
		AlertOnConsecutive: true, AlertOnLookbackLow: true,
		ReminderIntervalHours: 24, Active: true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, mgr.Notify().SaveFXWatch(ctx, watch))

	base := time.Date(2024, 6, 7, 7, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	require.NoError(t, svc.CheckFXWatches(ctx))

	msgs := notifier.byType(notify.TypeFXWatch)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].text, "EUR/USD")
	assert.Contains(t, msgs[0].text, "3 consecutive down")
	assert.Contains(t, msgs[0].text, "low")

	saved, err := mgr.Notify().GetFXWatch(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, saved.LastAlertedAt)

	// Within the reminder interval the watch stays quiet
	svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, svc.CheckFXWatches(ctx))
	assert.Len(t, notifier.byType(notify.TypeFXWatch), 1)

	// After the interval it reminds again
	svc.now = func() time.Time { return base.Add(25 * time.Hour) }
	require.NoError(t, svc.CheckFXWatches(ctx))
	assert.Len(t, notifier.byType(notify.TypeFXWatch), 2)
}

func TestWeeklyDigest(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, mgr := newTestService(t, fixtureMarket(), notifier)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, mgr.Tickers().SaveTicker(ctx, &models.TrackedTicker{
		Symbol: "NVDA", Category: models.CategoryGrowth, Active: true,
		LastScanSignal: models.SignalDeepValue, CreatedAt: now, UpdatedAt: now,
	}))

	// Enough value history for the digest chart
	for days, value := range map[int]float64{-7: 3800, 0: 4000} {
		d := now.AddDate(0, 0, days)
		require.NoError(t, mgr.Portfolio().UpsertSnapshot(ctx, &models.PortfolioSnapshot{
			Date: d.Format("2006-01-02"), TotalValue: value, Currency: "USD", CreatedAt: d,
		}))
	}

	require.NoError(t, svc.WeeklyDigest(ctx))

	msgs := notifier.byType(notify.TypeDigest)
	require.Len(t, msgs, 1) // text and chart ride one dispatch
	text := msgs[0].text
	assert.Contains(t, text, "Weekly digest")
	assert.Contains(t, text, "Fear & Greed: 55")
	assert.Contains(t, text, "DEEP_VALUE x1")
	assert.Contains(t, text, "SAP -3.4%") // biggest daily move
	assert.NotEmpty(t, msgs[0].png, "digest chart delivered with the text")
}
