package portfolio

import (
	"context"
	"sort"

	"github.com/bvanryn/specula/internal/models"
)

// xrayTopN caps how many ETF constituents the look-through resolves.
const xrayTopN = 10

// Rebalance values the portfolio, measures allocation drift and
// suggests adjustments, with an ETF look-through by sector.
func (s *Service) Rebalance(ctx context.Context) (*models.RebalancePlan, error) {
	vp, err := s.value(ctx)
	if err != nil {
		return nil, err
	}

	breakdown := vp.breakdown()
	plan := &models.RebalancePlan{
		TotalValue: round2(vp.total),
		Currency:   s.display,
		Breakdown:  breakdown,
		Holdings:   vp.holdings,
		Actions:    actions(breakdown, vp.total),
		XRay:       s.xray(ctx, vp),
		AsOf:       s.now(),
	}

	s.logger.Info().
		Float64("total", plan.TotalValue).
		Int("holdings", len(plan.Holdings)).
		Int("actions", len(plan.Actions)).
		Msg("Portfolio: rebalance computed")
	return plan, nil
}

// actions turns drifts beyond the threshold into reduce/increase
// suggestions, largest drift first.
func actions(breakdown []models.CategoryBreakdown, total float64) []models.RebalanceAction {
	var out []models.RebalanceAction
	for _, b := range breakdown {
		drift := b.Drift
		if drift < actionThresholdPct && drift > -actionThresholdPct {
			continue
		}
		direction := "increase"
		if drift > 0 {
			direction = "reduce"
		}
		amount := drift
		if amount < 0 {
			amount = -amount
		}
		out = append(out, models.RebalanceAction{
			Category:  b.Category,
			Direction: direction,
			Amount:    round2(amount / 100 * total),
			Drift:     drift,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].Drift, out[j].Drift
		if di < 0 {
			di = -di
		}
		if dj < 0 {
			dj = -dj
		}
		return di > dj
	})
	return out
}

// xray decomposes the portfolio into sector buckets, expanding ETFs
// into their constituents. Failures degrade to coarser buckets, never
// to an error.
func (s *Service) xray(ctx context.Context, vp *valuedPortfolio) []models.XRaySector {
	if vp.total <= 0 {
		return nil
	}

	sectors := map[string]float64{}
	for _, hv := range vp.holdings {
		switch {
		case hv.Category == models.CategoryCash:
			sectors["Cash"] += hv.MarketValue
		case s.isETF(ctx, hv.Symbol):
			for sector, value := range s.expandETF(ctx, hv.Symbol, hv.MarketValue) {
				sectors[sector] += value
			}
		default:
			sectors[s.sectorOf(ctx, hv.Symbol)] += hv.MarketValue
		}
	}

	out := make([]models.XRaySector, 0, len(sectors))
	for sector, value := range sectors {
		out = append(out, models.XRaySector{
			Sector: sector,
			Value:  round2(value),
			Pct:    round2(value / vp.total * 100),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// expandETF distributes an ETF position's market value across sectors.
// Strategy A uses the fund's published sector weights. Strategy B falls
// back to the top constituents, redistributing the unresolved residual
// proportionally across the sectors already found so nothing lands in
// an artificial bucket.
func (s *Service) expandETF(ctx context.Context, symbol string, marketValue float64) map[string]float64 {
	if weights, err := s.market.GetETFSectorWeights(ctx, symbol); err == nil && len(weights) > 0 {
		out := make(map[string]float64, len(weights))
		var covered float64
		for _, w := range weights {
			out[w.Sector] += marketValue * w.Weight
			covered += w.Weight
		}
		if covered > 0 && covered < 1 {
			scale := 1 / covered
			for sector := range out {
				out[sector] *= scale
			}
		}
		return out
	}

	holdings, err := s.market.GetETFTopHoldings(ctx, symbol)
	if err != nil || len(holdings) == 0 {
		return map[string]float64{s.sectorOf(ctx, symbol): marketValue}
	}
	if len(holdings) > xrayTopN {
		holdings = holdings[:xrayTopN]
	}

	out := map[string]float64{}
	var covered float64
	for _, h := range holdings {
		if h.Weight <= 0 {
			continue
		}
		out[s.sectorOf(ctx, h.Symbol)] += marketValue * h.Weight
		covered += h.Weight
	}
	if covered <= 0 {
		return map[string]float64{s.sectorOf(ctx, symbol): marketValue}
	}
	// Residual weight scales the resolved sectors up proportionally.
	if covered < 1 {
		scale := 1 / covered
		for sector := range out {
			out[sector] *= scale
		}
	}
	return out
}

func (s *Service) isETF(ctx context.Context, symbol string) bool {
	etf, err := s.market.DetectIsETF(ctx, symbol)
	return err == nil && etf
}

func (s *Service) sectorOf(ctx context.Context, symbol string) string {
	sector, err := s.market.GetTickerSector(ctx, symbol)
	if err != nil || sector == "" {
		return "Other"
	}
	return sector
}
