// Package scan runs the daily assessment pipeline: market sentiment,
// per-ticker indicators through the decision funnel, scan logging,
// signal-transition tracking and notification dispatch.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bvanryn/specula/internal/analytics"
	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/interfaces"
	"github.com/bvanryn/specula/internal/models"
	"github.com/bvanryn/specula/internal/services/notify"
)

// ErrScanInProgress is returned when a scan is started while another
// one is still running.
var ErrScanInProgress = errors.New("scan already in progress")

// Service implements interfaces.ScanService.
type Service struct {
	market   interfaces.MarketDataService
	tickers  interfaces.TickerStore
	notifier interfaces.Notifier
	logger   *common.Logger
	poolSize int

	running atomic.Bool
	now     func() time.Time
}

// NewService creates the scan service. notifier may be nil, disabling
// dispatch.
func NewService(logger *common.Logger, market interfaces.MarketDataService, tickers interfaces.TickerStore, notifier interfaces.Notifier, poolSize int) *Service {
	if poolSize <= 0 {
		poolSize = 5
	}
	return &Service{
		market:   market,
		tickers:  tickers,
		notifier: notifier,
		logger:   logger,
		poolSize: poolSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunScan executes one full scan over all active tracked tickers. Only
// one scan runs at a time.
func (s *Service) RunScan(ctx context.Context) (*models.ScanSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	started := s.now()
	tickers, err := s.tickers.ListTickers(ctx, true)
	if err != nil {
		return nil, err
	}

	// Cash positions carry no price series and are excluded from scans.
	var scannable []models.TrackedTicker
	for _, t := range tickers {
		if t.Category != models.CategoryCash {
			scannable = append(scannable, t)
		}
	}

	s.prefetch(ctx, scannable)
	status := s.marketStatus(ctx, scannable)

	results := make([]models.ScanResult, len(scannable))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolSize)
	for i, t := range scannable {
		i, t := i, t
		g.Go(func() error {
			results[i] = s.scanOne(gctx, t)
			return nil
		})
	}
	_ = g.Wait()

	summary := &models.ScanSummary{
		StartedAt:    started,
		MarketStatus: status,
		Total:        len(scannable),
		SignalCounts: map[models.Signal]int{},
		Results:      results,
	}
	for _, r := range results {
		if r.Err != "" {
			summary.Failed++
			continue
		}
		summary.Scanned++
		summary.SignalCounts[r.Signal]++
	}

	if err := s.persistResults(ctx, started, status, results); err != nil {
		s.logger.Error().Err(err).Msg("Scan: persist failed")
	}

	s.dispatchSignals(ctx, results)

	// Price alerts are evaluated in isolation: their failure never
	// suppresses the signal notifications above.
	if err := s.EvaluatePriceAlerts(ctx, results); err != nil {
		s.logger.Error().Err(err).Msg("Scan: price alert evaluation failed")
	}

	summary.Duration = s.now().Sub(started).Round(time.Millisecond).String()
	s.logger.Info().
		Int("total", summary.Total).
		Int("scanned", summary.Scanned).
		Int("failed", summary.Failed).
		Str("sentiment", string(status.Sentiment)).
		Str("duration", summary.Duration).
		Msg("Scan: complete")
	return summary, nil
}

// prefetch batch-downloads history and primes the signal cache so the
// worker pool mostly reads memory.
func (s *Service) prefetch(ctx context.Context, tickers []models.TrackedTicker) {
	symbols := make([]string, len(tickers))
	for i, t := range tickers {
		symbols[i] = t.Symbol
	}
	histories, err := s.market.BatchDownloadHistory(ctx, symbols)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Scan: batch prefetch failed, falling back to per-ticker fetches")
		return
	}
	s.market.PrimeSignalsCacheBatch(ctx, histories)
}

// marketStatus derives sentiment from the Trend_Setter subset and
// attaches the fear & greed reading when reachable.
func (s *Service) marketStatus(ctx context.Context, tickers []models.TrackedTicker) models.MarketStatus {
	var total, below int
	for _, t := range tickers {
		if t.Category != models.CategoryTrendSetter {
			continue
		}
		total++
		signals, err := s.market.GetTechnicalSignals(ctx, t.Symbol)
		if err != nil || signals.MA60 == nil {
			continue
		}
		if signals.Price < *signals.MA60 {
			below++
		}
	}

	status := models.MarketStatus{
		Sentiment:      analytics.MarketSentiment(total, below),
		BelowMA60Count: below,
		TrendSetters:   total,
	}
	if fg, err := s.market.GetFearGreedIndex(ctx); err == nil {
		status.FearGreed = fg
	} else {
		s.logger.Warn().Err(err).Msg("Scan: fear & greed unavailable")
	}
	return status
}

// scanOne assesses a single ticker. Failures degrade to a result with
// Err set rather than aborting the run.
func (s *Service) scanOne(ctx context.Context, t models.TrackedTicker) models.ScanResult {
	result := models.ScanResult{
		Symbol:     t.Symbol,
		Category:   t.Category,
		PrevSignal: t.LastScanSignal,
	}

	signals, err := s.market.GetTechnicalSignals(ctx, t.Symbol)
	if err != nil {
		result.Err = err.Error()
		s.logger.Warn().Err(err).Str("symbol", t.Symbol).Msg("Scan: signals unavailable")
		return result
	}
	result.Signals = *signals

	if signals.Bias != nil {
		if dist, err := s.market.GetBiasDistribution(ctx, t.Symbol); err == nil {
			if pct, ok := analytics.BiasPercentile(*signals.Bias, dist); ok {
				result.BiasPercentile = &pct
			}
		}
	}

	moatStatus := models.MoatNotAvailable
	if moat, err := s.market.AnalyzeMoatTrend(ctx, t.Symbol, t.Category, t.IsETF); err == nil && moat != nil {
		result.Moat = moat
		moatStatus = moat.Status
	}

	result.RogueWave = analytics.RogueWave(result.BiasPercentile, signals.VolumeRatio)
	result.Signal = analytics.DecideSignal(analytics.SignalInputs{
		Category: t.Category,
		Moat:     moatStatus,
		RSI:      signals.RSI,
		Bias:     signals.Bias,
		Bias200:  signals.Bias200,
	})
	result.Alerts = buildAlerts(result)
	return result
}

// buildAlerts renders the human-readable alert lines for one result.
func buildAlerts(r models.ScanResult) []string {
	var alerts []string
	if r.Signal.Noteworthy() {
		detail := ""
		if r.Signals.RSI != nil && r.Signals.Bias != nil {
			detail = fmt.Sprintf(" (rsi %.1f, bias %.1f%%)", *r.Signals.RSI, *r.Signals.Bias)
		}
		alerts = append(alerts, fmt.Sprintf("%s: %s%s", r.Symbol, r.Signal, detail))
	}
	if r.RogueWave {
		alerts = append(alerts, fmt.Sprintf("%s: rogue wave, bias percentile %.1f with %.1fx volume",
			r.Symbol, *r.BiasPercentile, *r.Signals.VolumeRatio))
	}
	return alerts
}

// persistResults writes scan logs and records signal transitions.
// SignalSince moves only when the signal actually changed.
func (s *Service) persistResults(ctx context.Context, at time.Time, status models.MarketStatus, results []models.ScanResult) error {
	logs := make([]models.ScanLog, 0, len(results))
	for _, r := range results {
		if r.Err != "" {
			continue
		}
		logs = append(logs, models.ScanLog{
			ID:           uuid.NewString(),
			Symbol:       r.Symbol,
			Signal:       r.Signal,
			MarketStatus: status,
			Signals:      r.Signals,
			Alerts:       r.Alerts,
			CreatedAt:    at,
		})
	}
	if err := s.tickers.AppendScanLogs(ctx, logs); err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != "" || r.Signal == r.PrevSignal {
			continue
		}
		ticker, err := s.tickers.GetTicker(ctx, r.Symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", r.Symbol).Msg("Scan: transition update failed")
			continue
		}
		since := at
		ticker.LastScanSignal = r.Signal
		ticker.SignalSince = &since
		ticker.UpdatedAt = at
		if err := s.tickers.SaveTicker(ctx, ticker); err != nil {
			s.logger.Warn().Err(err).Str("symbol", r.Symbol).Msg("Scan: transition update failed")
		}
	}
	return nil
}

// dispatchSignals sends one aggregated message for noteworthy signal
// transitions and one per rogue wave sighting.
func (s *Service) dispatchSignals(ctx context.Context, results []models.ScanResult) {
	if s.notifier == nil {
		return
	}

	var lines, waves []string
	for _, r := range results {
		if r.Err != "" {
			continue
		}
		if r.Signal.Noteworthy() && r.Signal != r.PrevSignal {
			lines = append(lines, r.Alerts...)
		}
		if r.RogueWave {
			waves = append(waves, fmt.Sprintf("%s rogue wave", r.Symbol))
		}
	}
	sort.Strings(lines)

	if len(lines) > 0 {
		text := "Scan signals:\n" + strings.Join(lines, "\n")
		if err := s.notifier.Send(ctx, notify.TypeScanSignal, text); err != nil {
			s.logger.Warn().Err(err).Msg("Scan: signal notification failed")
		}
	}
	if len(waves) > 0 {
		if err := s.notifier.Send(ctx, notify.TypeRogueWave, strings.Join(waves, "\n")); err != nil {
			s.logger.Warn().Err(err).Msg("Scan: rogue wave notification failed")
		}
	}
}
