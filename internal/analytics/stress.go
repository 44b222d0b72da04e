package analytics

import (
	"github.com/bvanryn/specula/internal/models"
)

// StressHolding is one position entering a stress scenario, in display
// currency. Beta defaults to 1.0 upstream when the provider has none.
type StressHolding struct {
	Symbol      string
	MarketValue float64
	Beta        float64
}

// RunStressTest projects a market-wide drop onto the portfolio through
// per-holding betas. scenarioDropPct is the magnitude of the market
// decline, e.g. 20 for a 20% drawdown.
func RunStressTest(holdings []StressHolding, scenarioDropPct float64) models.StressTestResult {
	result := models.StressTestResult{
		ScenarioDropPct: scenarioDropPct,
		PainLevel:       models.PainLow,
	}

	var total, weightedBeta float64
	for _, h := range holdings {
		total += h.MarketValue
	}
	result.TotalValue = round2(total)
	if total <= 0 {
		return result
	}

	for _, h := range holdings {
		dropPct := scenarioDropPct * h.Beta
		loss := h.MarketValue * dropPct / 100
		weightedBeta += h.MarketValue / total * h.Beta

		result.Holdings = append(result.Holdings, models.StressHoldingResult{
			Symbol:       h.Symbol,
			MarketValue:  round2(h.MarketValue),
			Beta:         h.Beta,
			ExpectedDrop: round2(dropPct),
			ExpectedLoss: round2(loss),
		})
		result.ExpectedLoss += loss
	}

	result.PortfolioBeta = round2(weightedBeta)
	result.ExpectedLoss = round2(result.ExpectedLoss)
	result.ExpectedLossPct = round2(result.ExpectedLoss / total * 100)
	result.PainLevel = painLevel(result.ExpectedLossPct)

	if result.PainLevel == models.PainPanic {
		result.Advice = panicAdvice(result.PortfolioBeta)
	}
	return result
}

func painLevel(lossPct float64) models.PainLevel {
	if lossPct < 0 {
		lossPct = -lossPct
	}
	switch {
	case lossPct < 10:
		return models.PainLow
	case lossPct < 20:
		return models.PainModerate
	case lossPct < 30:
		return models.PainHigh
	default:
		return models.PainPanic
	}
}

func panicAdvice(portfolioBeta float64) string {
	switch {
	case portfolioBeta >= 1.2:
		return "Portfolio beta is well above market. Consider trimming the highest-beta positions or raising the bond/cash allocation before the next drawdown."
	case portfolioBeta >= 0.8:
		return "Loss exceeds the panic threshold at market-like beta. Review position sizing and keep a cash buffer for the scenario."
	default:
		return "Even at low beta the projected loss breaches the panic threshold. The portfolio is likely too large relative to the loss budget; reduce overall exposure."
	}
}
