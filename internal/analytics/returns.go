package analytics

import (
	"math"
)

// TimeWeightedReturn chain-links the ratios between successive snapshot
// values, so the result is insensitive to when money entered or left.
// Values must be ordered oldest first. Fewer than two snapshots, or a
// non-terminal value of zero or less, yields no result. The return is a
// percentage rounded to 2 dp.
func TimeWeightedReturn(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}

	chained := 1.0
	for i := 0; i < len(values)-1; i++ {
		if values[i] <= 0 {
			return 0, false
		}
		chained *= values[i+1] / values[i]
	}

	return round2((chained - 1) * 100), true
}

// AnnualizeReturn converts a cumulative percent return over the given
// number of days to an annualized percent return. Periods under a year
// are reported cumulative, unchanged.
func AnnualizeReturn(cumulativePct float64, days float64) float64 {
	if days < 365 {
		return cumulativePct
	}
	base := 1 + cumulativePct/100
	if base <= 0 {
		// Total loss or worse; a fractional power of a negative is undefined
		return cumulativePct
	}
	return round2((math.Pow(base, 365/days) - 1) * 100)
}
