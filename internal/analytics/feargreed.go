package analytics

import (
	"github.com/bvanryn/specula/internal/models"
)

// Canonical component names of the self-calculated fear & greed composite.
const (
	ComponentVIX        = "vix"
	ComponentSPStrength = "sp500_strength"
	ComponentMomentum   = "momentum"
	ComponentBreadth    = "breadth"
	ComponentJunkDemand = "junk_bond_demand"
	ComponentSafeHaven  = "safe_haven"
	ComponentRotation   = "sector_rotation"
)

// componentWeights is the composite weighting, in percent.
var componentWeights = map[string]float64{
	ComponentVIX:        25,
	ComponentSPStrength: 20,
	ComponentMomentum:   20,
	ComponentBreadth:    10,
	ComponentJunkDemand: 10,
	ComponentSafeHaven:  10,
	ComponentRotation:   5,
}

// NewComponent builds a named composite component with its canonical weight.
func NewComponent(name string, score float64) models.FearGreedComponent {
	return models.FearGreedComponent{
		Name:   name,
		Score:  clampScore(score),
		Weight: componentWeights[name],
	}
}

// ClassifyVIX buckets a VIX level into market mood.
func ClassifyVIX(vix float64) models.FearGreedLevel {
	switch {
	case vix > 30:
		return models.ExtremeFear
	case vix > 20:
		return models.Fear
	case vix > 15:
		return models.NeutralLevel
	case vix > 10:
		return models.Greed
	default:
		return models.ExtremeGreed
	}
}

// ClassifyFearGreedScore buckets a 0-100 score into market mood.
func ClassifyFearGreedScore(score float64) models.FearGreedLevel {
	switch {
	case score <= 25:
		return models.ExtremeFear
	case score <= 45:
		return models.Fear
	case score <= 55:
		return models.NeutralLevel
	case score <= 75:
		return models.Greed
	default:
		return models.ExtremeGreed
	}
}

// vixFloor and vixCeil bound the linear VIX-to-score mapping. Readings
// outside the band carry no extra information.
const (
	vixFloor = 8.0
	vixCeil  = 40.0
)

// VIXToScore maps a VIX level onto the 0-100 fear & greed scale.
// High VIX reads as fear (low score), low VIX as greed.
func VIXToScore(vix float64) float64 {
	if vix < vixFloor {
		vix = vixFloor
	}
	if vix > vixCeil {
		vix = vixCeil
	}
	return round2((vixCeil - vix) / (vixCeil - vixFloor) * 100)
}

// RelativeReturnScore maps the outperformance of series A over series B
// onto the 0-100 scale: one percentage point of outperformance moves the
// score five points from neutral.
func RelativeReturnScore(retA, retB float64) float64 {
	return clampScore(50 + 5*(retA-retB))
}

// InvertedReturnScore maps a flight-to-safety return onto the 0-100
// scale inverted: money flowing into the safe asset reads as fear.
func InvertedReturnScore(ret float64) float64 {
	return clampScore(50 - 5*ret)
}

// TrendStrengthScore maps a percent deviation from a moving average onto
// the 0-100 scale, five points per percentage point.
func TrendStrengthScore(bias float64) float64 {
	return clampScore(50 + 5*bias)
}

// MomentumScore blends RSI with price-versus-MA50 strength.
func MomentumScore(rsi, biasVsMA50 float64) float64 {
	return clampScore(0.7*rsi + 0.3*TrendStrengthScore(biasVsMA50))
}

// CompositeScore is the weighted average of the available components.
// Components the caller could not compute are simply absent; the average
// renormalizes over the weights that are present.
func CompositeScore(components []models.FearGreedComponent) (float64, bool) {
	var weighted, totalWeight float64
	for _, c := range components {
		weighted += c.Score * c.Weight
		totalWeight += c.Weight
	}
	if totalWeight == 0 {
		return 0, false
	}
	return round2(weighted / totalWeight), true
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return round2(v)
}
