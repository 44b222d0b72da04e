package analytics

import (
	"github.com/bvanryn/specula/internal/models"
)

// moatDeteriorationPP is the gross-margin drop, in percentage points,
// below which a moat is considered deteriorating.
const moatDeteriorationPP = -2.0

// ClassifyMoat compares the current gross margin against the previous one.
// Margins are percentages; the returned change is in percentage points.
func ClassifyMoat(current, previous *float64) (models.MoatStatus, *float64) {
	if current == nil || previous == nil {
		return models.MoatNotAvailable, nil
	}

	change := round2(*current - *previous)
	if change < moatDeteriorationPP {
		return models.MoatDeteriorating, &change
	}
	return models.MoatStable, &change
}

// MarketSentiment classifies market breadth by the share of tracked
// trend setters trading below their 60-day moving average. An empty
// universe reads as bullish.
func MarketSentiment(total, belowMA60 int) models.Sentiment {
	if total <= 0 {
		return models.SentimentBullish
	}

	pct := float64(belowMA60) / float64(total) * 100
	switch {
	case pct <= 10:
		return models.SentimentStrongBullish
	case pct <= 30:
		return models.SentimentBullish
	case pct <= 50:
		return models.SentimentNeutral
	case pct <= 70:
		return models.SentimentBearish
	default:
		return models.SentimentStrongBearish
	}
}
