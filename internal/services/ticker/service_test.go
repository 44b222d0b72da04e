package ticker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/models"
	"github.com/bvanryn/specula/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	m, err := storage.NewManager(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return NewService(common.NewSilentLogger(), m.Tickers(), nil)
}

func TestAdd(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ticker, err := svc.Add(ctx, "nvda", models.CategoryGrowth, "AI capex cycle", []string{"semis"})
	require.NoError(t, err)
	assert.Equal(t, "NVDA", ticker.Symbol)
	assert.True(t, ticker.Active)

	logs, err := svc.store.ListThesisLogs(ctx, "NVDA")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 1, logs[0].Version)
	assert.Equal(t, "AI capex cycle", logs[0].Content)

	_, err = svc.Add(ctx, "NVDA", models.CategoryGrowth, "again", nil)
	assert.ErrorIs(t, err, ErrTickerExists)
}

func TestRemoveAndReactivate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "INTC", models.CategoryMoat, "foundry turnaround", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "INTC", "thesis broken: foundry delays"))

	got, err := svc.Get(ctx, "INTC")
	require.NoError(t, err)
	assert.False(t, got.Active)

	removals, err := svc.store.ListRemovalLogs(ctx, "INTC")
	require.NoError(t, err)
	require.Len(t, removals, 1)
	assert.Contains(t, removals[0].Reason, "foundry delays")

	// Double remove and re-add both conflict
	assert.ErrorIs(t, svc.Remove(ctx, "INTC", "again"), ErrTickerInactive)
	_, err = svc.Add(ctx, "INTC", models.CategoryMoat, "fresh", nil)
	assert.ErrorIs(t, err, ErrTickerInactive)

	reactivated, err := svc.Reactivate(ctx, "INTC")
	require.NoError(t, err)
	assert.True(t, reactivated.Active)

	_, err = svc.Reactivate(ctx, "INTC")
	assert.ErrorIs(t, err, ErrTickerActive)
}

func TestUpdateThesis_DenseVersions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "AAPL", models.CategoryMoat, "services flywheel", nil)
	require.NoError(t, err)

	entry, err := svc.UpdateThesis(ctx, "AAPL", "services flywheel + on-device AI", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Version)

	// Versions survive a removal cycle
	require.NoError(t, svc.Remove(ctx, "AAPL", "valuation"))
	_, err = svc.Reactivate(ctx, "AAPL")
	require.NoError(t, err)

	entry, err = svc.UpdateThesis(ctx, "AAPL", "back in on weakness", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Version)

	got, err := svc.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "back in on weakness", got.Thesis)
}

func TestChangeCategory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "TSLA", models.CategoryGrowth, "robotaxi optionality", nil)
	require.NoError(t, err)

	_, err = svc.ChangeCategory(ctx, "TSLA", models.CategoryGrowth)
	assert.ErrorIs(t, err, ErrCategoryUnchanged)

	changed, err := svc.ChangeCategory(ctx, "TSLA", models.CategoryTrendSetter)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryTrendSetter, changed.Category)
}

func TestPriceAlerts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddPriceAlert(ctx, "GHOST", models.AlertMetricRSI, models.AlertOpLT, 30)
	assert.ErrorIs(t, err, ErrTickerNotFound)

	_, err = svc.Add(ctx, "NVDA", models.CategoryGrowth, "AI", nil)
	require.NoError(t, err)

	_, err = svc.AddPriceAlert(ctx, "NVDA", "volume", models.AlertOpLT, 30)
	assert.Error(t, err)

	alert, err := svc.AddPriceAlert(ctx, "NVDA", models.AlertMetricRSI, models.AlertOpLT, 30)
	require.NoError(t, err)

	alerts, err := svc.ListPriceAlerts(ctx, "NVDA")
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	require.NoError(t, svc.RemovePriceAlert(ctx, alert.ID))
	alerts, err = svc.ListPriceAlerts(ctx, "NVDA")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
