package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/bvanryn/specula/internal/models"
	"github.com/bvanryn/specula/internal/services/notify"
)

// defaultAlertCooldown suppresses repeat triggers of the same alert.
const defaultAlertCooldown = 24 * time.Hour

// EvaluatePriceAlerts checks every active alert against the scan
// results and fires the ones whose condition holds and whose cooldown
// has elapsed.
func (s *Service) EvaluatePriceAlerts(ctx context.Context, results []models.ScanResult) error {
	alerts, err := s.tickers.ListPriceAlerts(ctx, "", true)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		return nil
	}

	bySymbol := make(map[string]models.ScanResult, len(results))
	for _, r := range results {
		if r.Err == "" {
			bySymbol[r.Symbol] = r
		}
	}

	now := s.now()
	for i := range alerts {
		alert := alerts[i]
		result, ok := bySymbol[alert.Symbol]
		if !ok {
			continue
		}
		value, ok := metricValue(alert.Metric, result.Signals)
		if !ok {
			continue
		}
		if !compare(alert.Operator, value, alert.Threshold) {
			continue
		}
		if withinCooldown(alert.LastTriggeredAt, now, defaultAlertCooldown) {
			continue
		}

		text := fmt.Sprintf("%s %s %s %.2f (now %.2f)",
			alert.Symbol, alert.Metric, alert.Operator, alert.Threshold, value)
		if s.notifier != nil {
			if err := s.notifier.Send(ctx, notify.TypePriceAlert, text); err != nil {
				s.logger.Warn().Err(err).Str("symbol", alert.Symbol).Msg("Scan: price alert notification failed")
				continue
			}
		}

		triggered := now
		alert.LastTriggeredAt = &triggered
		if err := s.tickers.SavePriceAlert(ctx, &alert); err != nil {
			s.logger.Warn().Err(err).Str("symbol", alert.Symbol).Msg("Scan: price alert persist failed")
		}
	}
	return nil
}

// metricValue extracts the watched metric from a result's signals.
func metricValue(metric models.AlertMetric, signals models.TechnicalSignals) (float64, bool) {
	switch metric {
	case models.AlertMetricPrice:
		return signals.Price, true
	case models.AlertMetricRSI:
		if signals.RSI != nil {
			return *signals.RSI, true
		}
	case models.AlertMetricBias:
		if signals.Bias != nil {
			return *signals.Bias, true
		}
	}
	return 0, false
}

func compare(op models.AlertOperator, value, threshold float64) bool {
	switch op {
	case models.AlertOpLT:
		return value < threshold
	case models.AlertOpGT:
		return value > threshold
	default:
		return false
	}
}

// withinCooldown treats persisted timestamps as UTC regardless of their
// location: stores round-tripping naive values must not defeat the
// suppression window.
func withinCooldown(last *time.Time, now time.Time, cooldown time.Duration) bool {
	if last == nil {
		return false
	}
	lastUTC := time.Date(last.Year(), last.Month(), last.Day(),
		last.Hour(), last.Minute(), last.Second(), last.Nanosecond(), time.UTC)
	return now.UTC().Sub(lastUTC) < cooldown
}
