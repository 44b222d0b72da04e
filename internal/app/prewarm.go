package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bvanryn/specula/internal/models"
)

// prewarmState tracks the background warmer lifecycle.
type prewarmState struct {
	ready atomic.Bool

	mu       sync.Mutex
	cancelFn context.CancelFunc
}

func newPrewarmState() *prewarmState {
	return &prewarmState{}
}

func (p *prewarmState) setCancel(fn context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelFn = fn
}

func (p *prewarmState) cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelFn != nil {
		p.cancelFn()
		p.cancelFn = nil
	}
}

// PrewarmReady reports whether the background warmer has finished.
// Starts false, flips true exactly once.
func (a *App) PrewarmReady() bool {
	return a.prewarm.ready.Load()
}

// StartPrewarm launches the cache warmer in the background. When
// pre-warming is disabled the engine is ready immediately.
func (a *App) StartPrewarm() {
	if !a.Config.Prewarm.Enabled {
		a.prewarm.ready.Store(true)
		a.Logger.Info().Msg("Prewarm: disabled, skipping")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Prewarm.GetTimeout())
	a.prewarm.setCancel(cancel)
	go func() {
		defer cancel()
		start := time.Now()
		a.runPrewarm(ctx)
		a.prewarm.ready.Store(true)
		a.Logger.Info().Dur("elapsed", time.Since(start)).Msg("Prewarm: complete")
	}()
}

// warmTarget is one symbol the warmer cares about, with the metadata
// that decides which phases apply to it.
type warmTarget struct {
	category models.Category
	isETF    bool
}

// collectTargets gathers all symbols worth warming: active tracked
// tickers plus non-cash portfolio holdings. Cash never needs a price.
func (a *App) collectTargets(ctx context.Context) map[string]warmTarget {
	targets := map[string]warmTarget{}

	tickers, err := a.Storage.Tickers().ListTickers(ctx, true)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Prewarm: ticker collection failed")
	}
	for _, t := range tickers {
		if t.Category == models.CategoryCash {
			continue
		}
		targets[t.Symbol] = warmTarget{category: t.Category, isETF: t.IsETF}
	}

	holdings, err := a.Storage.Portfolio().ListHoldings(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Prewarm: holding collection failed")
	}
	for _, h := range holdings {
		if h.IsCash {
			continue
		}
		if _, tracked := targets[h.Symbol]; !tracked {
			targets[h.Symbol] = warmTarget{category: h.Category}
		}
	}
	return targets
}

// runPrewarm executes the phases. Phase 1 fills the history cache
// everything else reads from; the remaining phases run in parallel,
// each isolated so one failure never aborts the rest.
func (a *App) runPrewarm(ctx context.Context) {
	targets := a.collectTargets(ctx)
	if len(targets) == 0 {
		a.Logger.Info().Msg("Prewarm: nothing to warm")
		return
	}

	all := make([]string, 0, len(targets))
	var moat, etf []string
	for symbol, t := range targets {
		all = append(all, symbol)
		if t.category.MoatEligible() && !t.isETF {
			moat = append(moat, symbol)
		}
		if t.isETF {
			etf = append(etf, symbol)
		}
	}

	a.warmHistory(ctx, all)

	var wg sync.WaitGroup
	phase := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.Logger.Error().Interface("panic", r).Str("phase", name).Msg("Prewarm: phase panicked")
				}
			}()
			start := time.Now()
			if err := fn(ctx); err != nil {
				a.Logger.Warn().Err(err).Str("phase", name).Msg("Prewarm: phase failed")
				return
			}
			a.Logger.Debug().Str("phase", name).Dur("elapsed", time.Since(start)).Msg("Prewarm: phase done")
		}()
	}

	phase("fear_greed", func(ctx context.Context) error {
		_, err := a.MarketData.GetFearGreedIndex(ctx)
		return err
	})
	phase("moat", func(ctx context.Context) error {
		a.MarketData.PrimeMoatCacheBatch(ctx, moat)
		return nil
	})
	phase("etf_holdings", func(ctx context.Context) error {
		a.MarketData.PrimeETFHoldingsBatch(ctx, etf)
		return nil
	})
	phase("sector_weights", func(ctx context.Context) error {
		a.MarketData.PrimeSectorWeightsBatch(ctx, etf)
		return nil
	})
	phase("beta", func(ctx context.Context) error {
		a.MarketData.PrimeBetaBatch(ctx, all)
		return nil
	})
	phase("sectors", func(ctx context.Context) error {
		return a.warmSectors(ctx, all)
	})
	phase("guru_backfill", a.warmGurus)

	wg.Wait()
}

// warmHistory batch-downloads price history, falling back to per-ticker
// fetches when the batch call fails wholesale.
func (a *App) warmHistory(ctx context.Context, symbols []string) {
	histories, err := a.MarketData.BatchDownloadHistory(ctx, symbols)
	if err == nil {
		a.MarketData.PrimeSignalsCacheBatch(ctx, histories)
		return
	}
	a.Logger.Warn().Err(err).Msg("Prewarm: batch history failed, falling back to per-ticker")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Config.Prewarm.PoolSize)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			if _, err := a.MarketData.GetTechnicalSignals(gctx, symbol); err != nil {
				a.Logger.Debug().Err(err).Str("symbol", symbol).Msg("Prewarm: history fallback failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (a *App) warmSectors(ctx context.Context, symbols []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Config.Prewarm.PoolSize)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			_, _ = a.MarketData.GetTickerSector(gctx, symbol)
			return nil
		})
	}
	return g.Wait()
}

// warmGurus backfills 13F filings for every active guru.
func (a *App) warmGurus(ctx context.Context) error {
	gurus, err := a.Storage.Gurus().ListGurus(ctx, true)
	if err != nil {
		return err
	}
	for _, g := range gurus {
		if _, err := a.Filings.BackfillGuruFilings(ctx, g.ID, a.Config.Prewarm.BackfillYears); err != nil {
			a.Logger.Warn().Err(err).Str("guru", g.Name).Msg("Prewarm: guru backfill failed")
		}
	}
	return nil
}
