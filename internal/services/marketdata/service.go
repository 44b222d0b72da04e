// Package marketdata is the typed, cached gateway to market data. Every
// accessor routes through the cache fabric under its own namespace TTL;
// callers never see provider wire shapes, and a cached absence surfaces
// as cache.ErrNoValue rather than a provider round trip.
package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bvanryn/specula/internal/analytics"
	"github.com/bvanryn/specula/internal/cache"
	"github.com/bvanryn/specula/internal/clients/cnn"
	"github.com/bvanryn/specula/internal/clients/yahoo"
	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/models"
)

// Cache namespaces. Each carries its own TTL; see Namespaces.
const (
	nsHistory       = "history"
	nsSignals       = "signals"
	nsBiasDist      = "bias_dist"
	nsFundamentals  = "fundamentals"
	nsMoat          = "moat"
	nsDividend      = "dividend"
	nsEarnings      = "earnings"
	nsSector        = "sector"
	nsETFHoldings   = "etf_holdings"
	nsSectorWeights = "sector_weights"
	nsBeta          = "beta"
	nsFX            = "fx"
	nsVIX           = "vix"
	nsFearGreed     = "feargreed"
)

// Namespaces returns the cache configuration for every market-data
// namespace. Fundamentals-derived data moves slowly and caches long;
// prices and market mood stay fresh.
func Namespaces() map[string]cache.NamespaceConfig {
	return map[string]cache.NamespaceConfig{
		nsHistory:       {TTL: time.Hour, Cap: 2048},
		nsSignals:       {TTL: 15 * time.Minute, Cap: 2048},
		nsBiasDist:      {TTL: 6 * time.Hour, Cap: 1024},
		nsFundamentals:  {TTL: 24 * time.Hour, Cap: 1024},
		nsMoat:          {TTL: 24 * time.Hour, Cap: 1024},
		nsDividend:      {TTL: 24 * time.Hour, Cap: 1024},
		nsEarnings:      {TTL: 24 * time.Hour, Cap: 1024},
		nsSector:        {TTL: 7 * 24 * time.Hour, Cap: 1024},
		nsETFHoldings:   {TTL: 24 * time.Hour, Cap: 512},
		nsSectorWeights: {TTL: 24 * time.Hour, Cap: 512},
		nsBeta:          {TTL: 24 * time.Hour, Cap: 1024},
		nsFX:            {TTL: time.Hour, Cap: 256},
		nsVIX:           {TTL: 15 * time.Minute, Cap: 8},
		nsFearGreed:     {TTL: time.Hour, Cap: 8},
	}
}

// Service adapts the market providers behind the cache fabric.
type Service struct {
	client       *yahoo.Client
	cnn          *cnn.Client // nil when disabled
	fabric       *cache.Fabric
	logger       *common.Logger
	historyRange string
	rsiPeriod    int
	poolSize     int
	moatPoolSize int
}

// NewService creates the market data service. cnnClient may be nil.
func NewService(logger *common.Logger, fabric *cache.Fabric, client *yahoo.Client, cnnClient *cnn.Client, historyRange string, rsiPeriod int) *Service {
	if historyRange == "" {
		historyRange = "2y"
	}
	if rsiPeriod <= 0 {
		rsiPeriod = 14
	}
	return &Service{
		client:       client,
		cnn:          cnnClient,
		fabric:       fabric,
		logger:       logger,
		historyRange: historyRange,
		rsiPeriod:    rsiPeriod,
		poolSize:     4,
		moatPoolSize: 8,
	}
}

// SetPrewarmPools overrides the bounded pool sizes the Prime helpers
// run with. The moat pool runs wider since the rate limiter, not the
// pool, is its bottleneck. Zero values keep the defaults.
func (s *Service) SetPrewarmPools(defaultSize, moatSize int) {
	if defaultSize > 0 {
		s.poolSize = defaultSize
	}
	if moatSize > 0 {
		s.moatPoolSize = moatSize
	}
}

// getHistory resolves the daily candle series through the cache.
func (s *Service) getHistory(ctx context.Context, symbol string) ([]models.Candle, error) {
	key := symbol + ":" + s.historyRange
	return cache.Fetch(ctx, s.fabric, nsHistory, key, func(ctx context.Context) ([]models.Candle, error) {
		return s.client.History(ctx, symbol, s.historyRange)
	})
}

// GetTechnicalSignals computes the indicator set for a symbol from its
// cached history.
func (s *Service) GetTechnicalSignals(ctx context.Context, symbol string) (*models.TechnicalSignals, error) {
	return cache.Fetch(ctx, s.fabric, nsSignals, symbol, func(ctx context.Context) (*models.TechnicalSignals, error) {
		candles, err := s.getHistory(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return s.computeSignals(symbol, candles), nil
	})
}

// computeSignals is the single place indicators are derived from candles.
func (s *Service) computeSignals(symbol string, candles []models.Candle) *models.TechnicalSignals {
	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = float64(c.Volume)
	}

	signals := &models.TechnicalSignals{
		Symbol: symbol,
		AsOf:   time.Now().UTC(),
	}
	if len(closes) == 0 {
		return signals
	}
	signals.Price = closes[len(closes)-1]

	if rsi, err := analytics.RSI(closes, s.rsiPeriod); err == nil {
		signals.RSI = &rsi
	}
	for _, ma := range []struct {
		window int
		field  **float64
	}{
		{20, &signals.MA20},
		{60, &signals.MA60},
		{120, &signals.MA120},
		{200, &signals.MA200},
	} {
		if v, ok := analytics.SMA(closes, ma.window); ok {
			*ma.field = &v
		}
	}
	if signals.MA60 != nil {
		if bias, ok := analytics.Bias(signals.Price, *signals.MA60); ok {
			signals.Bias = &bias
		}
	}
	if signals.MA200 != nil {
		if bias, ok := analytics.Bias(signals.Price, *signals.MA200); ok {
			signals.Bias200 = &bias
		}
	}
	if ratio, ok := analytics.VolumeRatio(volumes); ok {
		signals.VolumeRatio = &ratio
	}
	if len(closes) >= 2 {
		if change, ok := analytics.DailyChange(signals.Price, closes[len(closes)-2]); ok {
			signals.DailyChangePct = &change
		}
	}
	return signals
}

// GetBiasDistribution returns the sorted history of the symbol's own
// bias-vs-MA60 readings, the reference set for percentile ranking.
func (s *Service) GetBiasDistribution(ctx context.Context, symbol string) ([]float64, error) {
	return cache.Fetch(ctx, s.fabric, nsBiasDist, symbol, func(ctx context.Context) ([]float64, error) {
		candles, err := s.getHistory(ctx, symbol)
		if err != nil {
			return nil, err
		}

		closes := make([]float64, len(candles))
		for i, c := range candles {
			closes[i] = c.Close
		}

		const window = 60
		if len(closes) < window {
			return nil, fmt.Errorf("bias distribution for %s: %w", symbol, analytics.ErrInsufficientData)
		}

		biases := make([]float64, 0, len(closes)-window+1)
		for i := window; i <= len(closes); i++ {
			ma, ok := analytics.SMA(closes[:i], window)
			if !ok {
				continue
			}
			if bias, ok := analytics.Bias(closes[i-1], ma); ok {
				biases = append(biases, bias)
			}
		}
		sort.Float64s(biases)
		return biases, nil
	})
}
