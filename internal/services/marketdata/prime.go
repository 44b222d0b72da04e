package marketdata

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/bvanryn/specula/internal/cache"
	"github.com/bvanryn/specula/internal/models"
)

// BatchDownloadHistory fetches history for many symbols at once and
// primes the history namespace. Failed symbols are absent from the
// result, never fatal.
func (s *Service) BatchDownloadHistory(ctx context.Context, symbols []string) (map[string][]models.Candle, error) {
	histories, err := s.client.BatchHistory(ctx, symbols, s.historyRange)
	if err != nil {
		return nil, err
	}
	for symbol, candles := range histories {
		key := symbol + ":" + s.historyRange
		if perr := cache.Put(s.fabric, nsHistory, key, candles); perr != nil {
			s.logger.Warn().Err(perr).Str("symbol", symbol).Msg("Prime: history cache write failed")
		}
	}
	s.logger.Info().Int("requested", len(symbols)).Int("primed", len(histories)).Msg("Prime: history batch complete")
	return histories, nil
}

// PrimeSignalsCacheBatch derives and caches indicator sets from already
// downloaded histories, so the first scan after startup hits no network.
func (s *Service) PrimeSignalsCacheBatch(_ context.Context, histories map[string][]models.Candle) {
	for symbol, candles := range histories {
		signals := s.computeSignals(symbol, candles)
		if err := cache.Put(s.fabric, nsSignals, symbol, signals); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Prime: signals cache write failed")
		}
	}
}

// primeEach runs fn per symbol in a bounded pool; failures are logged
// and skipped.
func (s *Service) primeEach(ctx context.Context, phase string, symbols []string, limit int, fn func(context.Context, string) error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			if err := fn(gctx, symbol); err != nil {
				s.logger.Debug().Err(err).Str("symbol", symbol).Str("phase", phase).Msg("Prime: symbol skipped")
			}
			return nil
		})
	}
	_ = g.Wait()
	s.logger.Info().Str("phase", phase).Int("symbols", len(symbols)).Msg("Prime: phase complete")
}

// PrimeMoatCacheBatch warms fundamentals and moat classification.
func (s *Service) PrimeMoatCacheBatch(ctx context.Context, symbols []string) {
	s.primeEach(ctx, "moat", symbols, s.moatPoolSize, func(ctx context.Context, symbol string) error {
		_, err := s.AnalyzeMoatTrend(ctx, symbol, models.CategoryMoat, false)
		return err
	})
}

// PrimeETFHoldingsBatch warms the ETF constituent cache.
func (s *Service) PrimeETFHoldingsBatch(ctx context.Context, symbols []string) {
	s.primeEach(ctx, "etf_holdings", symbols, s.poolSize, func(ctx context.Context, symbol string) error {
		_, err := s.GetETFTopHoldings(ctx, symbol)
		return err
	})
}

// PrimeSectorWeightsBatch warms the ETF sector-weight cache.
func (s *Service) PrimeSectorWeightsBatch(ctx context.Context, symbols []string) {
	s.primeEach(ctx, "sector_weights", symbols, s.poolSize, func(ctx context.Context, symbol string) error {
		_, err := s.GetETFSectorWeights(ctx, symbol)
		return err
	})
}

// PrimeBetaBatch warms the beta cache, absences included.
func (s *Service) PrimeBetaBatch(ctx context.Context, symbols []string) {
	s.primeEach(ctx, "beta", symbols, s.poolSize, func(ctx context.Context, symbol string) error {
		_, err := s.GetStockBeta(ctx, symbol)
		return err
	})
}
