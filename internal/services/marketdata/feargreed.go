package marketdata

import (
	"context"
	"time"

	"github.com/bvanryn/specula/internal/analytics"
	"github.com/bvanryn/specula/internal/cache"
	"github.com/bvanryn/specula/internal/models"
)

// Proxy symbols for the self-calculated fear & greed components:
// breadth is the equal-weight index against the cap-weight index, junk
// demand is high-yield against treasuries, safe haven is treasuries
// inverted, rotation is growth against staples.
const (
	symSP500       = "SPY"
	symEqualWeight = "RSP"
	symTreasury    = "TLT"
	symJunkBonds   = "HYG"
	symGrowth      = "QQQ"
	symDefensive   = "XLP"
)

// minCompositeComponents is the floor under which the self-calculated
// composite is not trusted and the chain degrades to VIX alone.
const minCompositeComponents = 3

// GetFearGreedIndex resolves the market mood through a degrading chain:
// CNN first, then the self-calculated composite, then VIX alone, then a
// neutral placeholder. The placeholder is error-shaped: it lives only in
// the memory tier, briefly, so recovery is retried soon.
func (s *Service) GetFearGreedIndex(ctx context.Context) (*models.FearGreedIndex, error) {
	return cache.Fetch(ctx, s.fabric, nsFearGreed, "index",
		func(ctx context.Context) (*models.FearGreedIndex, error) {
			return s.resolveFearGreed(ctx), nil
		},
		cache.WithErrorPredicate(func(v any) bool {
			index, ok := v.(*models.FearGreedIndex)
			return ok && index != nil && index.Source == "none"
		}, 5*time.Minute),
	)
}

func (s *Service) resolveFearGreed(ctx context.Context) *models.FearGreedIndex {
	now := time.Now().UTC()

	if s.cnn != nil {
		if idx, err := s.cnn.Index(ctx); err == nil {
			return &models.FearGreedIndex{
				Score:  idx.Score,
				Level:  analytics.ClassifyFearGreedScore(idx.Score),
				Source: "cnn",
				AsOf:   now,
			}
		} else {
			s.logger.Warn().Err(err).Msg("Fear & greed: CNN unavailable, falling back to composite")
		}
	}

	components, vix := s.collectComponents(ctx)
	if score, ok := analytics.CompositeScore(components); ok && len(components) >= minCompositeComponents {
		return &models.FearGreedIndex{
			Score:      score,
			Level:      analytics.ClassifyFearGreedScore(score),
			Source:     "calculated",
			VIX:        vix,
			Components: components,
			AsOf:       now,
		}
	}

	if vix != nil {
		score := analytics.VIXToScore(*vix)
		return &models.FearGreedIndex{
			Score:  score,
			Level:  analytics.ClassifyFearGreedScore(score),
			Source: "vix",
			VIX:    vix,
			AsOf:   now,
		}
	}

	s.logger.Warn().Msg("Fear & greed: no source available")
	return &models.FearGreedIndex{
		Score:  50,
		Level:  models.NeutralLevel,
		Source: "none",
		AsOf:   now,
	}
}

// collectComponents gathers whichever composite inputs are reachable.
// Each component fails in isolation; the composite renormalizes over
// what is present.
func (s *Service) collectComponents(ctx context.Context) ([]models.FearGreedComponent, *float64) {
	var components []models.FearGreedComponent
	var vixOut *float64

	if vix, err := s.GetVIX(ctx); err == nil {
		vixOut = &vix
		components = append(components, analytics.NewComponent(analytics.ComponentVIX, analytics.VIXToScore(vix)))
	}

	spCloses := s.closesOf(ctx, symSP500)
	if len(spCloses) > 0 {
		price := spCloses[len(spCloses)-1]
		if ma, ok := analytics.SMA(spCloses, 125); ok {
			if bias, ok := analytics.Bias(price, ma); ok {
				components = append(components, analytics.NewComponent(analytics.ComponentSPStrength, analytics.TrendStrengthScore(bias)))
			}
		}
		if rsi, err := analytics.RSI(spCloses, s.rsiPeriod); err == nil {
			if ma50, ok := analytics.SMA(spCloses, 50); ok {
				if bias50, ok := analytics.Bias(price, ma50); ok {
					components = append(components, analytics.NewComponent(analytics.ComponentMomentum, analytics.MomentumScore(rsi, bias50)))
				}
			}
		}
	}

	if retEqual, retCap, ok := s.pairReturns(ctx, symEqualWeight, symSP500, 20); ok {
		components = append(components, analytics.NewComponent(analytics.ComponentBreadth, analytics.RelativeReturnScore(retEqual, retCap)))
	}
	if retJunk, retSafe, ok := s.pairReturns(ctx, symJunkBonds, symTreasury, 20); ok {
		components = append(components, analytics.NewComponent(analytics.ComponentJunkDemand, analytics.RelativeReturnScore(retJunk, retSafe)))
	}
	if retBond, ok := periodReturn(s.closesOf(ctx, symTreasury), 20); ok {
		components = append(components, analytics.NewComponent(analytics.ComponentSafeHaven, analytics.InvertedReturnScore(retBond)))
	}
	if retGrowth, retDef, ok := s.pairReturns(ctx, symGrowth, symDefensive, 20); ok {
		components = append(components, analytics.NewComponent(analytics.ComponentRotation, analytics.RelativeReturnScore(retGrowth, retDef)))
	}

	return components, vixOut
}

func (s *Service) closesOf(ctx context.Context, symbol string) []float64 {
	candles, err := s.getHistory(ctx, symbol)
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", symbol).Msg("Fear & greed: component history unavailable")
		return nil
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

func (s *Service) pairReturns(ctx context.Context, symA, symB string, days int) (float64, float64, bool) {
	a := s.closesOf(ctx, symA)
	b := s.closesOf(ctx, symB)
	retA, okA := periodReturn(a, days)
	retB, okB := periodReturn(b, days)
	return retA, retB, okA && okB
}

// periodReturn is the percent change over the last days bars.
func periodReturn(closes []float64, days int) (float64, bool) {
	if len(closes) <= days || closes[len(closes)-1-days] <= 0 {
		return 0, false
	}
	start := closes[len(closes)-1-days]
	end := closes[len(closes)-1]
	return (end - start) / start * 100, true
}
