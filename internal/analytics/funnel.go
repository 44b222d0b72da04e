package analytics

import (
	"github.com/bvanryn/specula/internal/models"
)

// SignalInputs are the only inputs the decision funnel depends on.
// Nil pointers mean the metric is unavailable; a nil value never
// satisfies a threshold condition.
type SignalInputs struct {
	Category models.Category
	Moat     models.MoatStatus
	RSI      *float64
	Bias     *float64 // price vs MA60, percent
	Bias200  *float64 // price vs MA200, percent
}

// rsiOffset shifts the RSI thresholds per category. Higher-beta
// categories trigger earlier on the buy side, defensives later.
func rsiOffset(c models.Category) float64 {
	switch c {
	case models.CategoryMoat:
		return 1
	case models.CategoryGrowth:
		return 2
	case models.CategoryBond:
		return -3
	default: // Trend_Setter, Cash
		return 0
	}
}

func lessThan(v *float64, threshold float64) bool {
	return v != nil && *v < threshold
}

func greaterThan(v *float64, threshold float64) bool {
	return v != nil && *v > threshold
}

// DecideSignal runs the two-phase decision funnel.
//
// Phase 1 walks the priority ladder, first match wins:
//
//	P1   deteriorating moat          -> THESIS_BROKEN
//	P2   bias < -20 and rsi < 35+off -> DEEP_VALUE
//	P3   bias < -20                  -> OVERSOLD
//	P4   rsi < 35+off, bias absent or < 20 -> CONTRARIAN_BUY
//	P4.5 rsi < 37+off and bias < -15 -> APPROACHING_BUY
//	P5   bias > 20 and rsi > 70+off  -> OVERHEATED
//	P6   bias > 20 or rsi > 70+off   -> CAUTION_HIGH
//	P7   bias < -15 and rsi < 38+off -> WEAKENING
//	P8   otherwise                   -> NORMAL
//
// Phase 2 amplifies mid-ladder results using the MA200 bias when present:
// a deeply stretched long-term bias promotes WEAKENING and APPROACHING_BUY
// one step toward the buy signals, and pushes CAUTION_HIGH to OVERHEATED.
// Terminal results (P1-P3, OVERHEATED, NORMAL) are never amplified.
func DecideSignal(in SignalInputs) models.Signal {
	offset := rsiOffset(in.Category)
	signal := phaseOne(in, offset)

	if in.Bias200 == nil {
		return signal
	}
	switch signal {
	case models.SignalThesisBroken, models.SignalDeepValue, models.SignalOversold,
		models.SignalOverheated, models.SignalNormal:
		return signal
	}

	if *in.Bias200 < -15 {
		switch signal {
		case models.SignalWeakening:
			return models.SignalApproachBuy
		case models.SignalApproachBuy:
			return models.SignalContrarianBuy
		}
	}
	if *in.Bias200 > 20 && signal == models.SignalCautionHigh {
		return models.SignalOverheated
	}
	return signal
}

func phaseOne(in SignalInputs, offset float64) models.Signal {
	if in.Moat == models.MoatDeteriorating {
		return models.SignalThesisBroken
	}
	if lessThan(in.Bias, -20) && lessThan(in.RSI, 35+offset) {
		return models.SignalDeepValue
	}
	if lessThan(in.Bias, -20) {
		return models.SignalOversold
	}
	if lessThan(in.RSI, 35+offset) && (in.Bias == nil || *in.Bias < 20) {
		return models.SignalContrarianBuy
	}
	if lessThan(in.RSI, 37+offset) && lessThan(in.Bias, -15) {
		return models.SignalApproachBuy
	}
	if greaterThan(in.Bias, 20) && greaterThan(in.RSI, 70+offset) {
		return models.SignalOverheated
	}
	if greaterThan(in.Bias, 20) || greaterThan(in.RSI, 70+offset) {
		return models.SignalCautionHigh
	}
	if lessThan(in.Bias, -15) && lessThan(in.RSI, 38+offset) {
		return models.SignalWeakening
	}
	return models.SignalNormal
}
