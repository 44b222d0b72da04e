package analytics

import (
	"math"

	"github.com/bvanryn/specula/internal/models"
)

// DefaultChangeThresholdPct is the quarter-over-quarter share change, in
// percent, at which a position counts as increased or decreased.
const DefaultChangeThresholdPct = 20.0

// ClassifyHoldingChange compares current against previous share counts.
// The threshold boundaries are inclusive on the changed side.
func ClassifyHoldingChange(current, previous, thresholdPct float64) models.HoldingAction {
	if previous <= 0 {
		if current <= 0 {
			return models.ActionUnchanged
		}
		return models.ActionNewPosition
	}
	if current <= 0 {
		return models.ActionSoldOut
	}

	changePct := (current - previous) / previous * 100
	if math.Abs(changePct) >= thresholdPct {
		if changePct > 0 {
			return models.ActionIncreased
		}
		return models.ActionDecreased
	}
	return models.ActionUnchanged
}

// ChangePct is the percent share change, nil when there was no previous
// position to compare against.
func ChangePct(current, previous float64) *float64 {
	if previous <= 0 {
		return nil
	}
	pct := round2((current - previous) / previous * 100)
	return &pct
}

// WeightPct is the position's share of the filing's total value, in percent.
func WeightPct(value, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return round2(value / total * 100)
}
