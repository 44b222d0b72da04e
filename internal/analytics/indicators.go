// Package analytics provides the pure analytical primitives of the engine:
// technical indicators, the scan-signal decision funnel, fear & greed
// compositing, time-weighted return, the withdrawal waterfall, stress
// testing and 13F diff classification. Everything here is deterministic and
// performs no I/O. Price series are ordered oldest first.
package analytics

import (
	"errors"
	"math"
	"sort"
)

// ErrInsufficientData is returned when a series is too short for the
// requested indicator.
var ErrInsufficientData = errors.New("insufficient data")

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RSI calculates the Wilder-smoothed Relative Strength Index over the last
// period bars. Requires at least period+1 closes. When the average loss is
// zero the result is exactly 100.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInsufficientData
	}
	if len(closes) <= period {
		return 0, ErrInsufficientData
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	// Wilder smoothing over the remainder of the series
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss
	return round2(100 - (100 / (1 + rs))), nil
}

// SMA calculates the simple moving average of the last window closes.
func SMA(closes []float64, window int) (float64, bool) {
	if window <= 0 || len(closes) < window {
		return 0, false
	}

	sum := 0.0
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	return sum / float64(window), true
}

// Bias is the percentage deviation of price from a moving average,
// rounded to 2 dp. A zero or missing MA yields no value.
func Bias(price, ma float64) (float64, bool) {
	if ma <= 0 {
		return 0, false
	}
	return round2((price - ma) / ma * 100), true
}

// VolumeRatio compares recent volume against the monthly norm:
// mean of the last 5 samples over mean of the last 20.
func VolumeRatio(volumes []float64) (float64, bool) {
	if len(volumes) < 20 {
		return 0, false
	}

	mean := func(vs []float64) float64 {
		sum := 0.0
		for _, v := range vs {
			sum += v
		}
		return sum / float64(len(vs))
	}

	short := mean(volumes[len(volumes)-5:])
	long := mean(volumes[len(volumes)-20:])
	if long == 0 {
		return 0, false
	}
	return round2(short / long), true
}

// DailyChange is the percent change from the previous close.
func DailyChange(current, previous float64) (float64, bool) {
	if previous <= 0 {
		return 0, false
	}
	return round2((current - previous) / previous * 100), true
}

// BiasPercentile ranks the current bias within its own history using a
// lower-bound rank: the share of historical values strictly below current.
// The history must be sorted ascending and hold at least 200 samples.
func BiasPercentile(current float64, history []float64) (float64, bool) {
	if len(history) < 200 {
		return 0, false
	}

	rank := sort.SearchFloat64s(history, current)
	return round2(float64(rank) / float64(len(history)) * 100), true
}

// RogueWave reports an extreme positive bias (top 5% of its own history)
// coinciding with abnormally high volume. A missing input is never a wave.
func RogueWave(biasPercentile, volumeRatio *float64) bool {
	if biasPercentile == nil || volumeRatio == nil {
		return false
	}
	return *biasPercentile >= 95 && *volumeRatio >= 1.5
}
