package portfolio

import (
	"context"
	"fmt"

	"github.com/bvanryn/specula/internal/analytics"
	"github.com/bvanryn/specula/internal/models"
)

// StressTest projects a market-wide drop onto the portfolio through
// per-holding betas. A missing beta defaults to 1.0; cash does not
// participate in the drawdown.
func (s *Service) StressTest(ctx context.Context, scenarioDropPct float64) (*models.StressTestResult, error) {
	if scenarioDropPct <= 0 {
		return nil, fmt.Errorf("scenario drop must be positive, got %.1f", scenarioDropPct)
	}

	vp, err := s.value(ctx)
	if err != nil {
		return nil, err
	}

	var symbols []string
	for _, hv := range vp.holdings {
		if hv.Category != models.CategoryCash {
			symbols = append(symbols, hv.Symbol)
		}
	}
	s.market.PrimeBetaBatch(ctx, symbols)

	stress := make([]analytics.StressHolding, 0, len(vp.holdings))
	for _, hv := range vp.holdings {
		beta := 1.0
		if hv.Category == models.CategoryCash {
			beta = 0
		} else if b, err := s.market.GetStockBeta(ctx, hv.Symbol); err == nil && b != nil {
			beta = *b
		}
		stress = append(stress, analytics.StressHolding{
			Symbol:      hv.Symbol,
			MarketValue: hv.MarketValue,
			Beta:        beta,
		})
	}

	result := analytics.RunStressTest(stress, scenarioDropPct)
	s.logger.Info().
		Float64("scenario", scenarioDropPct).
		Float64("expected_loss", result.ExpectedLoss).
		Str("pain", string(result.PainLevel)).
		Msg("Portfolio: stress test computed")
	return &result, nil
}

// PlanWithdrawal builds the sell waterfall funding a cash need.
func (s *Service) PlanWithdrawal(ctx context.Context, amount float64) (*models.WithdrawalPlan, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %.2f", amount)
	}

	vp, err := s.value(ctx)
	if err != nil {
		return nil, err
	}

	holdings := make([]analytics.WithdrawalHolding, 0, len(vp.holdings))
	for _, hv := range vp.holdings {
		holdings = append(holdings, analytics.WithdrawalHolding{
			Symbol:      hv.Symbol,
			Category:    hv.Category,
			Quantity:    hv.Quantity,
			Price:       hv.Price * hv.FXRate,
			MarketValue: hv.MarketValue,
			CostValue:   hv.CostValue,
		})
	}

	plan := analytics.PlanWithdrawal(amount, holdings,
		drifts(vp.breakdown()), vp.total, vp.profile.TargetAllocation, minSaleAmount)

	s.logger.Info().
		Float64("target", amount).
		Float64("planned", plan.TotalSellValue).
		Float64("shortfall", plan.Shortfall).
		Int("sales", len(plan.Recommendations)).
		Msg("Portfolio: withdrawal planned")
	return &plan, nil
}
