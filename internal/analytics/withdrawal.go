package analytics

import (
	"sort"

	"github.com/bvanryn/specula/internal/models"
)

// WithdrawalHolding is one sellable position, already converted to the
// display currency.
type WithdrawalHolding struct {
	Symbol      string
	Category    models.Category
	Quantity    float64
	Price       float64 // display currency, per unit
	MarketValue float64
	CostValue   *float64 // total cost in display currency, nil when unknown
}

// GainLoss returns market value minus cost, when the cost is known.
func (h WithdrawalHolding) GainLoss() (float64, bool) {
	if h.CostValue == nil {
		return 0, false
	}
	return h.MarketValue - *h.CostValue, true
}

// PlanWithdrawal builds a priority-ordered funding plan for a cash need.
//
// Sales are drawn in three passes: overweight categories first (capped by
// their drift), then positions in the red (largest absolute loss first),
// then everything else in liquidity order. Amounts under minSale are
// skipped, and a position is never sold past its available value across
// passes.
func PlanWithdrawal(target float64, holdings []WithdrawalHolding, drifts map[models.Category]float64, totalValue float64, targets map[models.Category]float64, minSale float64) models.WithdrawalPlan {
	plan := models.WithdrawalPlan{
		TargetAmount:   target,
		PostSellDrifts: map[models.Category]float64{},
	}
	if target <= 0 || len(holdings) == 0 {
		for cat, d := range drifts {
			plan.PostSellDrifts[cat] = d
		}
		plan.Shortfall = target
		if plan.Shortfall < 0 {
			plan.Shortfall = 0
		}
		return plan
	}

	alreadySold := make(map[string]float64, len(holdings))
	remaining := target

	sell := func(priority int, h WithdrawalHolding, amount float64, reason string) {
		available := h.MarketValue - alreadySold[h.Symbol]
		if amount > available {
			amount = available
		}
		if amount > remaining {
			amount = remaining
		}
		if amount <= 0 || amount < minSale {
			return
		}

		rec := models.SellRecommendation{
			Priority:  priority,
			Symbol:    h.Symbol,
			Category:  h.Category,
			SellValue: round2(amount),
			Reason:    reason,
		}
		if h.Price > 0 {
			rec.QuantityToSell = round2(amount / h.Price)
		}
		if loss, ok := h.GainLoss(); ok && loss < 0 {
			// Realized loss proportional to the slice being sold
			realized := round2(loss * amount / h.MarketValue)
			rec.EstimatedLoss = &realized
		}

		plan.Recommendations = append(plan.Recommendations, rec)
		alreadySold[h.Symbol] += amount
		remaining -= amount
	}

	// Pass 1: rebalance. Trim overweight categories, largest drift first.
	type overweight struct {
		cat   models.Category
		drift float64
	}
	var over []overweight
	for cat, d := range drifts {
		if d > 0 {
			over = append(over, overweight{cat, d})
		}
	}
	sort.Slice(over, func(i, j int) bool { return over[i].drift > over[j].drift })

	for _, ow := range over {
		if remaining < minSale {
			break
		}
		cap := ow.drift / 100 * totalValue
		for _, h := range sortedByValue(holdings, ow.cat) {
			if remaining < minSale || cap < minSale {
				break
			}
			amount := cap
			available := h.MarketValue - alreadySold[h.Symbol]
			if amount > available {
				amount = available
			}
			before := remaining
			sell(1, h, amount, "rebalance: trim overweight "+string(ow.cat))
			cap -= before - remaining
		}
	}

	// Pass 2: tax-loss harvesting, largest absolute loss first.
	losers := make([]WithdrawalHolding, 0, len(holdings))
	for _, h := range holdings {
		if loss, ok := h.GainLoss(); ok && loss < 0 {
			losers = append(losers, h)
		}
	}
	sort.Slice(losers, func(i, j int) bool {
		li, _ := losers[i].GainLoss()
		lj, _ := losers[j].GainLoss()
		return li < lj
	})
	for _, h := range losers {
		if remaining < minSale {
			break
		}
		sell(2, h, h.MarketValue-alreadySold[h.Symbol], "tax-loss harvest")
	}

	// Pass 3: liquidity order, cash and bonds before conviction positions.
	ordered := make([]WithdrawalHolding, len(holdings))
	copy(ordered, holdings)
	sort.Slice(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Category.LiquidityRank(), ordered[j].Category.LiquidityRank()
		if ri != rj {
			return ri < rj
		}
		return ordered[i].MarketValue > ordered[j].MarketValue
	})
	for _, h := range ordered {
		if remaining < minSale {
			break
		}
		sell(3, h, h.MarketValue-alreadySold[h.Symbol], "liquidity order")
	}

	plan.TotalSellValue = round2(target - remaining)
	plan.Shortfall = round2(remaining)

	// Simulate the sales to report where the allocation lands.
	catValue := map[models.Category]float64{}
	for _, h := range holdings {
		catValue[h.Category] += h.MarketValue
	}
	soldByCat := map[models.Category]float64{}
	for _, h := range holdings {
		if s := alreadySold[h.Symbol]; s > 0 {
			soldByCat[h.Category] += s
		}
	}
	newTotal := totalValue - (target - remaining)
	for cat, tgt := range targets {
		if newTotal <= 0 {
			plan.PostSellDrifts[cat] = -tgt
			continue
		}
		actual := (catValue[cat] - soldByCat[cat]) / newTotal * 100
		plan.PostSellDrifts[cat] = round2(actual - tgt)
	}

	return plan
}

// sortedByValue returns the holdings of one category, largest market value first.
func sortedByValue(holdings []WithdrawalHolding, cat models.Category) []WithdrawalHolding {
	var out []WithdrawalHolding
	for _, h := range holdings {
		if h.Category == cat {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketValue > out[j].MarketValue })
	return out
}
