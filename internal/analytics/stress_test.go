package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvanryn/specula/internal/models"
)

func TestRunStressTest(t *testing.T) {
	holdings := []StressHolding{
		{Symbol: "NVDA", MarketValue: 4000, Beta: 1.8},
		{Symbol: "KO", MarketValue: 4000, Beta: 0.6},
		{Symbol: "SGOV", MarketValue: 2000, Beta: 0.1},
	}
	result := RunStressTest(holdings, 20)

	// Portfolio beta is the value-weighted average
	assert.InDelta(t, (4000*1.8+4000*0.6+2000*0.1)/10000, result.PortfolioBeta, 0.001)
	assert.Equal(t, 10000.0, result.TotalValue)

	require.Len(t, result.Holdings, 3)
	nvda := result.Holdings[0]
	assert.InDelta(t, 36, nvda.ExpectedDrop, 0.001) // 20% x 1.8
	assert.InDelta(t, 1440, nvda.ExpectedLoss, 0.001)

	// 1440 + 480 + 40 = 1960 -> 19.6% -> MODERATE
	assert.InDelta(t, 1960, result.ExpectedLoss, 0.01)
	assert.InDelta(t, 19.6, result.ExpectedLossPct, 0.01)
	assert.Equal(t, models.PainModerate, result.PainLevel)
	assert.Empty(t, result.Advice)
}

func TestRunStressTest_PainBuckets(t *testing.T) {
	one := func(beta, drop float64) models.PainLevel {
		return RunStressTest([]StressHolding{{Symbol: "X", MarketValue: 1000, Beta: beta}}, drop).PainLevel
	}
	assert.Equal(t, models.PainLow, one(0.4, 20))      // 8%
	assert.Equal(t, models.PainModerate, one(0.7, 20)) // 14%
	assert.Equal(t, models.PainHigh, one(1.2, 20))     // 24%
	assert.Equal(t, models.PainPanic, one(1.5, 20))    // 30%
}

func TestRunStressTest_PanicAdviceBranches(t *testing.T) {
	highBeta := RunStressTest([]StressHolding{{Symbol: "X", MarketValue: 1000, Beta: 1.6}}, 20)
	assert.Equal(t, models.PainPanic, highBeta.PainLevel)
	assert.Contains(t, highBeta.Advice, "beta")

	marketBeta := RunStressTest([]StressHolding{{Symbol: "X", MarketValue: 1000, Beta: 1.0}}, 35)
	assert.Equal(t, models.PainPanic, marketBeta.PainLevel)
	assert.NotEmpty(t, marketBeta.Advice)
	assert.NotEqual(t, highBeta.Advice, marketBeta.Advice)

	lowBeta := RunStressTest([]StressHolding{{Symbol: "X", MarketValue: 1000, Beta: 0.7}}, 50)
	assert.Equal(t, models.PainPanic, lowBeta.PainLevel)
	assert.NotEmpty(t, lowBeta.Advice)
	assert.NotEqual(t, marketBeta.Advice, lowBeta.Advice)
}

func TestRunStressTest_EmptyPortfolio(t *testing.T) {
	result := RunStressTest(nil, 20)
	assert.Equal(t, models.PainLow, result.PainLevel)
	assert.Zero(t, result.ExpectedLoss)
	assert.Zero(t, result.PortfolioBeta)
}
