package marketdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/bvanryn/specula/internal/cache"
	"github.com/bvanryn/specula/internal/models"
)

// rangeForDays picks the smallest chart range covering the lookback.
func rangeForDays(days int) string {
	switch {
	case days <= 28:
		return "1mo"
	case days <= 88:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	default:
		return "2y"
	}
}

// GetForexHistory returns the daily base->quote rate series over the
// last days calendar days, oldest first.
func (s *Service) GetForexHistory(ctx context.Context, base, quote string, days int) ([]models.Candle, error) {
	base = strings.ToUpper(base)
	quote = strings.ToUpper(quote)
	if base == quote {
		return nil, fmt.Errorf("forex history: identical currencies %s", base)
	}

	rng := rangeForDays(days)
	key := base + quote + ":" + rng
	candles, err := cache.Fetch(ctx, s.fabric, nsFX, key, func(ctx context.Context) ([]models.Candle, error) {
		return s.client.FXHistory(ctx, base, quote, rng)
	})
	if err != nil {
		return nil, err
	}
	if days > 0 && len(candles) > days {
		candles = candles[len(candles)-days:]
	}
	return candles, nil
}

// GetForexRate returns the latest base->quote rate; converting an amount
// is value * rate. Identical currencies rate 1.
func (s *Service) GetForexRate(ctx context.Context, base, quote string) (float64, error) {
	if strings.EqualFold(base, quote) {
		return 1, nil
	}
	candles, err := s.GetForexHistory(ctx, base, quote, 7)
	if err != nil {
		return 0, err
	}
	return candles[len(candles)-1].Close, nil
}

// GetVIX returns the latest CBOE volatility index close.
func (s *Service) GetVIX(ctx context.Context) (float64, error) {
	return cache.Fetch(ctx, s.fabric, nsVIX, "^VIX", func(ctx context.Context) (float64, error) {
		return s.client.VIX(ctx)
	})
}
