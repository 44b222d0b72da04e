package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bvanryn/specula/internal/analytics"
	"github.com/bvanryn/specula/internal/models"
	"github.com/bvanryn/specula/internal/services/notify"
)

// snapshotDateLayout keys one snapshot per calendar day.
const snapshotDateLayout = "2006-01-02"

// digestChartDays is how much value history the digest chart shows.
const digestChartDays = 90

// TakeSnapshot values the portfolio and upserts today's snapshot,
// recording the benchmark close alongside.
func (s *Service) TakeSnapshot(ctx context.Context) (*models.PortfolioSnapshot, error) {
	vp, err := s.value(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	snapshot := &models.PortfolioSnapshot{
		Date:           now.Format(snapshotDateLayout),
		TotalValue:     round2(vp.total),
		CategoryValues: map[models.Category]float64{},
		Currency:       s.display,
		Benchmark:      s.benchmark,
		CreatedAt:      now,
	}
	for cat, value := range vp.byCategory {
		snapshot.CategoryValues[cat] = round2(value)
	}

	if s.benchmark != "" {
		if signals, err := s.market.GetTechnicalSignals(ctx, s.benchmark); err == nil {
			snapshot.BenchmarkValue = signals.Price
		} else {
			s.logger.Warn().Err(err).Str("benchmark", s.benchmark).Msg("Snapshot: benchmark close unavailable")
		}
	}

	if err := s.store.UpsertSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("date", snapshot.Date).
		Float64("total", snapshot.TotalValue).
		Msg("Snapshot: recorded")
	return snapshot, nil
}

// TimeWeightedReturn chain-links snapshot values from the given date.
func (s *Service) TimeWeightedReturn(ctx context.Context, since time.Time) (float64, error) {
	snapshots, err := s.store.ListSnapshots(ctx, since.UTC().Format(snapshotDateLayout))
	if err != nil {
		return 0, err
	}

	values := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		values[i] = snap.TotalValue
	}
	twr, ok := analytics.TimeWeightedReturn(values)
	if !ok {
		return 0, fmt.Errorf("need at least 2 positive snapshots since %s, got %d", since.Format(snapshotDateLayout), len(values))
	}
	return twr, nil
}

// WeeklyDigest composes and sends the weekly summary: return, market
// mood, signal counts and the biggest movers, with a value-history
// chart attached when enough snapshots exist.
func (s *Service) WeeklyDigest(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}
	now := s.now()

	var lines []string
	lines = append(lines, fmt.Sprintf("Weekly digest — %s", now.Format("Mon 2 Jan 2006")))

	if twr, err := s.TimeWeightedReturn(ctx, now.AddDate(0, 0, -7)); err == nil {
		lines = append(lines, fmt.Sprintf("7d return: %+.2f%%", twr))
	} else {
		s.logger.Debug().Err(err).Msg("Digest: weekly return unavailable")
	}

	if fg, err := s.market.GetFearGreedIndex(ctx); err == nil {
		lines = append(lines, fmt.Sprintf("Fear & Greed: %.0f (%s)", fg.Score, fg.Level))
	}

	if counts := s.signalCounts(ctx); counts != "" {
		lines = append(lines, "Signals: "+counts)
	}
	if movers := s.topMovers(ctx); movers != "" {
		lines = append(lines, "Movers: "+movers)
	}

	// Text and chart go out as one dispatch, so the chart cannot be
	// suppressed by the message it belongs to.
	text := strings.Join(lines, "\n")
	if png := s.digestChart(ctx, now); png != nil {
		caption := fmt.Sprintf("Portfolio value, last %d days", digestChartDays)
		return s.notifier.SendWithPhoto(ctx, notify.TypeDigest, text, caption, png)
	}
	return s.notifier.Send(ctx, notify.TypeDigest, text)
}

// digestChart renders the value-history PNG, or nil when there is not
// enough history or the render fails; the digest then goes text-only.
func (s *Service) digestChart(ctx context.Context, now time.Time) []byte {
	snapshots, err := s.store.ListSnapshots(ctx, now.AddDate(0, 0, -digestChartDays).Format(snapshotDateLayout))
	if err != nil || len(snapshots) < 2 {
		return nil
	}
	png, err := RenderSnapshotChart(snapshots)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Digest: chart render failed")
		return nil
	}
	return png
}

// signalCounts summarizes the current scan signals of active tickers.
func (s *Service) signalCounts(ctx context.Context) string {
	tickers, err := s.tickers.ListTickers(ctx, true)
	if err != nil {
		return ""
	}
	counts := map[models.Signal]int{}
	for _, t := range tickers {
		if t.LastScanSignal != "" && t.LastScanSignal != models.SignalNormal {
			counts[t.LastScanSignal]++
		}
	}
	if len(counts) == 0 {
		return "all NORMAL"
	}

	parts := make([]string, 0, len(counts))
	for signal, n := range counts {
		parts = append(parts, fmt.Sprintf("%s x%d", signal, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// topMovers names the three largest daily moves among holdings.
func (s *Service) topMovers(ctx context.Context) string {
	holdings, err := s.store.ListHoldings(ctx)
	if err != nil {
		return ""
	}

	type mover struct {
		symbol string
		change float64
	}
	var movers []mover
	for _, h := range holdings {
		if h.IsCash {
			continue
		}
		signals, err := s.market.GetTechnicalSignals(ctx, h.Symbol)
		if err != nil || signals.DailyChangePct == nil {
			continue
		}
		movers = append(movers, mover{h.Symbol, *signals.DailyChangePct})
	}
	sort.Slice(movers, func(i, j int) bool {
		ai, aj := movers[i].change, movers[j].change
		if ai < 0 {
			ai = -ai
		}
		if aj < 0 {
			aj = -aj
		}
		return ai > aj
	})
	if len(movers) > 3 {
		movers = movers[:3]
	}

	parts := make([]string, len(movers))
	for i, m := range movers {
		parts[i] = fmt.Sprintf("%s %+.1f%%", m.symbol, m.change)
	}
	return strings.Join(parts, ", ")
}
