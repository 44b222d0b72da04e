package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bvanryn/specula/internal/models"
	"github.com/bvanryn/specula/internal/services/notify"
)

// FXExposure aggregates the portfolio by native currency.
func (s *Service) FXExposure(ctx context.Context) (*models.FXExposureReport, error) {
	vp, err := s.value(ctx)
	if err != nil {
		return nil, err
	}

	home := strings.ToUpper(vp.profile.HomeCurrency)
	if home == "" {
		home = s.display
	}

	byCurrency := map[string]float64{}
	for _, hv := range vp.holdings {
		byCurrency[strings.ToUpper(hv.Currency)] += hv.MarketValue
	}

	report := &models.FXExposureReport{
		HomeCurrency: home,
		TotalValue:   round2(vp.total),
		AsOf:         s.now(),
	}
	for currency, value := range byCurrency {
		pct := 0.0
		if vp.total > 0 {
			pct = value / vp.total * 100
		}
		report.Exposures = append(report.Exposures, models.CurrencyExposure{
			Currency: currency,
			Value:    round2(value),
			Pct:      round2(pct),
		})
		if currency != home {
			report.ForeignPct += pct
		}
	}
	report.ForeignPct = round2(report.ForeignPct)
	sort.Slice(report.Exposures, func(i, j int) bool {
		return report.Exposures[i].Value > report.Exposures[j].Value
	})
	return report, nil
}

// CheckFXWatches evaluates every active FX watch against recent forex
// history and alerts on the enabled entry conditions. A watch alerts at
// most once per its reminder interval.
func (s *Service) CheckFXWatches(ctx context.Context) error {
	watches, err := s.notifyDB.ListFXWatches(ctx, true)
	if err != nil {
		return err
	}

	now := s.now()
	for i := range watches {
		watch := watches[i]
		triggered, detail, err := s.evaluateWatch(ctx, &watch)
		if err != nil {
			s.logger.Warn().Err(err).Str("pair", watch.Pair()).Msg("FXWatch: evaluation failed")
			continue
		}
		if !triggered {
			continue
		}
		if withinReminder(watch.LastAlertedAt, now, watch.ReminderIntervalHours) {
			continue
		}

		if s.notifier != nil {
			text := fmt.Sprintf("FX watch %s/%s: %s", watch.Base, watch.Quote, detail)
			if err := s.notifier.Send(ctx, notify.TypeFXWatch, text); err != nil {
				s.logger.Warn().Err(err).Str("pair", watch.Pair()).Msg("FXWatch: notification failed")
				continue
			}
		}

		alerted := now
		watch.LastAlertedAt = &alerted
		if err := s.notifyDB.SaveFXWatch(ctx, &watch); err != nil {
			s.logger.Warn().Err(err).Str("pair", watch.Pair()).Msg("FXWatch: persist failed")
		}
	}
	return nil
}

// evaluateWatch checks the enabled conditions for one watch. Any
// enabled condition holding triggers the alert; the detail string
// names every condition that fired.
func (s *Service) evaluateWatch(ctx context.Context, watch *models.FXWatchConfig) (bool, string, error) {
	days := watch.LookbackDays
	if days <= 0 {
		days = 30
	}
	candles, err := s.market.GetForexHistory(ctx, watch.Base, watch.Quote, days)
	if err != nil {
		return false, "", err
	}
	if len(candles) < 2 {
		return false, "", fmt.Errorf("only %d candles for %s", len(candles), watch.Pair())
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	last := closes[len(closes)-1]

	var details []string
	if watch.AlertOnConsecutive && watch.ConsecutiveThreshold > 0 {
		streak, direction := trailingStreak(closes)
		if streak >= watch.ConsecutiveThreshold {
			details = append(details, fmt.Sprintf("%d consecutive %s closes (now %.4f)", streak, direction, last))
		}
	}
	if watch.AlertOnLookbackLow {
		low := closes[0]
		for _, c := range closes[:len(closes)-1] {
			if c < low {
				low = c
			}
		}
		if last <= low {
			details = append(details, fmt.Sprintf("new %d-day low %.4f", days, last))
		}
	}
	if len(details) == 0 {
		return false, "", nil
	}
	return true, strings.Join(details, "; "), nil
}

// trailingStreak counts how many closes at the end of the series moved
// in one unbroken direction.
func trailingStreak(closes []float64) (int, string) {
	if len(closes) < 2 {
		return 0, ""
	}
	last := len(closes) - 1
	switch {
	case closes[last] < closes[last-1]:
		streak := 0
		for i := last; i > 0 && closes[i] < closes[i-1]; i-- {
			streak++
		}
		return streak, "down"
	case closes[last] > closes[last-1]:
		streak := 0
		for i := last; i > 0 && closes[i] > closes[i-1]; i-- {
			streak++
		}
		return streak, "up"
	default:
		return 0, "flat"
	}
}

// withinReminder treats the persisted timestamp as UTC, same contract
// as price-alert cooldowns.
func withinReminder(last *time.Time, now time.Time, intervalHours int) bool {
	if last == nil || intervalHours <= 0 {
		return false
	}
	lastUTC := time.Date(last.Year(), last.Month(), last.Day(),
		last.Hour(), last.Minute(), last.Second(), last.Nanosecond(), time.UTC)
	return now.UTC().Sub(lastUTC) < time.Duration(intervalHours)*time.Hour
}
