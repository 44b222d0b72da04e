package models

import (
	"fmt"
	"math"
	"time"
)

// Holding is one position in the portfolio. Cash holdings carry the currency
// code as their symbol and IsCash set.
type Holding struct {
	Symbol    string    `json:"symbol" badgerhold:"unique"`
	Category  Category  `json:"category"`
	Quantity  float64   `json:"quantity"`
	CostBasis *float64  `json:"cost_basis,omitempty"` // per unit, holding currency
	Currency  string    `json:"currency"`
	Broker    string    `json:"broker,omitempty"`
	IsCash    bool      `json:"is_cash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InvestmentProfile is the user's target allocation and home currency.
type InvestmentProfile struct {
	TargetAllocation map[Category]float64 `json:"target_allocation"`
	HomeCurrency     string               `json:"home_currency"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Validate checks the target allocation sums to 100 percent.
func (p *InvestmentProfile) Validate() error {
	var sum float64
	for cat, pct := range p.TargetAllocation {
		if !cat.Valid() {
			return fmt.Errorf("unknown category %q in target allocation", cat)
		}
		if pct < 0 {
			return fmt.Errorf("negative allocation for %s", cat)
		}
		sum += pct
	}
	if math.Abs(sum-100) > 0.01 {
		return fmt.Errorf("target allocation sums to %.2f, want 100", sum)
	}
	return nil
}

// PortfolioSnapshot is the daily portfolio valuation, unique per date.
type PortfolioSnapshot struct {
	Date           string               `json:"date" badgerhold:"unique"` // YYYY-MM-DD
	TotalValue     float64              `json:"total_value"`
	CategoryValues map[Category]float64 `json:"category_values"`
	Currency       string               `json:"currency"`
	Benchmark      string               `json:"benchmark,omitempty"`
	BenchmarkValue float64              `json:"benchmark_value,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// CategoryBreakdown aggregates holdings of one category in display currency.
type CategoryBreakdown struct {
	Category  Category `json:"category"`
	Value     float64  `json:"value"`
	ActualPct float64  `json:"actual_pct"`
	TargetPct float64  `json:"target_pct"`
	Drift     float64  `json:"drift"` // actual - target, percentage points
}

// HoldingValue is one holding converted to display currency.
type HoldingValue struct {
	Symbol      string   `json:"symbol"`
	Category    Category `json:"category"`
	Quantity    float64  `json:"quantity"`
	Price       float64  `json:"price"` // native currency
	Currency    string   `json:"currency"`
	FXRate      float64  `json:"fx_rate"` // native -> display, direct multiplication
	MarketValue float64  `json:"market_value"`
	CostValue   *float64 `json:"cost_value,omitempty"`
	GainLoss    *float64 `json:"gain_loss,omitempty"`
}

// RebalanceAction is one suggested adjustment toward the target allocation.
type RebalanceAction struct {
	Category  Category `json:"category"`
	Direction string   `json:"direction"` // "reduce" or "increase"
	Amount    float64  `json:"amount"`    // display currency
	Drift     float64  `json:"drift"`
}

// XRaySector is one sector bucket after ETF look-through.
type XRaySector struct {
	Sector string  `json:"sector"`
	Value  float64 `json:"value"`
	Pct    float64 `json:"pct"`
}

// RebalancePlan is the full rebalance analysis.
type RebalancePlan struct {
	TotalValue float64             `json:"total_value"`
	Currency   string              `json:"currency"`
	Breakdown  []CategoryBreakdown `json:"breakdown"`
	Holdings   []HoldingValue      `json:"holdings"`
	Actions    []RebalanceAction   `json:"actions"`
	XRay       []XRaySector        `json:"xray,omitempty"`
	AsOf       time.Time           `json:"as_of"`
}

// CurrencyExposure aggregates portfolio value by native currency.
type CurrencyExposure struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"` // display currency
	Pct      float64 `json:"pct"`
}

// FXExposureReport is the currency exposure analysis.
type FXExposureReport struct {
	HomeCurrency string             `json:"home_currency"`
	TotalValue   float64            `json:"total_value"`
	Exposures    []CurrencyExposure `json:"exposures"`
	ForeignPct   float64            `json:"foreign_pct"`
	AsOf         time.Time          `json:"as_of"`
}

// PainLevel buckets a stress-test loss by severity.
type PainLevel string

const (
	PainLow      PainLevel = "LOW"
	PainModerate PainLevel = "MODERATE"
	PainHigh     PainLevel = "HIGH"
	PainPanic    PainLevel = "PANIC"
)

// StressHoldingResult is the per-holding outcome of a stress scenario.
type StressHoldingResult struct {
	Symbol       string  `json:"symbol"`
	MarketValue  float64 `json:"market_value"`
	Beta         float64 `json:"beta"`
	ExpectedDrop float64 `json:"expected_drop"` // percent
	ExpectedLoss float64 `json:"expected_loss"` // display currency
}

// StressTestResult is the portfolio-wide stress scenario outcome.
type StressTestResult struct {
	ScenarioDropPct float64               `json:"scenario_drop_pct"`
	PortfolioBeta   float64               `json:"portfolio_beta"`
	TotalValue      float64               `json:"total_value"`
	ExpectedLoss    float64               `json:"expected_loss"`
	ExpectedLossPct float64               `json:"expected_loss_pct"`
	PainLevel       PainLevel             `json:"pain_level"`
	Holdings        []StressHoldingResult `json:"holdings"`
	Advice          string                `json:"advice,omitempty"`
}

// SellRecommendation is one entry in the withdrawal waterfall.
type SellRecommendation struct {
	Priority       int      `json:"priority"` // 1 rebalance, 2 tax loss, 3 liquidity
	Symbol         string   `json:"symbol"`
	Category       Category `json:"category"`
	QuantityToSell float64  `json:"quantity_to_sell"`
	SellValue      float64  `json:"sell_value"`
	Reason         string   `json:"reason"`
	EstimatedLoss  *float64 `json:"estimated_loss,omitempty"`
}

// WithdrawalPlan is the priority-ordered funding plan for a cash need.
type WithdrawalPlan struct {
	TargetAmount    float64              `json:"target_amount"`
	TotalSellValue  float64              `json:"total_sell_value"`
	Shortfall       float64              `json:"shortfall"`
	Recommendations []SellRecommendation `json:"recommendations"`
	PostSellDrifts  map[Category]float64 `json:"post_sell_drifts"`
}
