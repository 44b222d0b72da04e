package models

import (
	"time"
)

// Candle represents a single day's price data. Series are ordered oldest first.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// TechnicalSignals holds the per-ticker indicator set computed from history.
// Pointer fields are nil when the underlying series is too short.
type TechnicalSignals struct {
	Symbol         string     `json:"symbol"`
	Price          float64    `json:"price"`
	RSI            *float64   `json:"rsi,omitempty"`
	MA20           *float64   `json:"ma20,omitempty"`
	MA60           *float64   `json:"ma60,omitempty"`
	MA120          *float64   `json:"ma120,omitempty"`
	MA200          *float64   `json:"ma200,omitempty"`
	Bias           *float64   `json:"bias,omitempty"`     // price vs MA60, percent
	Bias200        *float64   `json:"bias_200,omitempty"` // price vs MA200, percent
	VolumeRatio    *float64   `json:"volume_ratio,omitempty"`
	DailyChangePct *float64   `json:"daily_change_pct,omitempty"`
	AsOf           time.Time  `json:"as_of"`
}

// MoatStatus classifies the trend of a company's gross margin.
type MoatStatus string

const (
	MoatStable        MoatStatus = "STABLE"
	MoatDeteriorating MoatStatus = "DETERIORATING"
	MoatNotAvailable  MoatStatus = "NOT_AVAILABLE"
)

// MoatTrend is the result of moat analysis for one ticker.
type MoatTrend struct {
	Symbol         string     `json:"symbol"`
	Status         MoatStatus `json:"status"`
	MarginChange   *float64   `json:"margin_change,omitempty"` // percentage points
	CurrentMargin  *float64   `json:"current_margin,omitempty"`
	PreviousMargin *float64   `json:"previous_margin,omitempty"`
}

// Sentiment is the five-level market breadth classification.
type Sentiment string

const (
	SentimentStrongBullish Sentiment = "STRONG_BULLISH"
	SentimentBullish       Sentiment = "BULLISH"
	SentimentNeutral       Sentiment = "NEUTRAL"
	SentimentBearish       Sentiment = "BEARISH"
	SentimentStrongBearish Sentiment = "STRONG_BEARISH"
)

// FearGreedLevel buckets a 0-100 fear & greed score.
type FearGreedLevel string

const (
	ExtremeFear  FearGreedLevel = "EXTREME_FEAR"
	Fear         FearGreedLevel = "FEAR"
	NeutralLevel FearGreedLevel = "NEUTRAL"
	Greed        FearGreedLevel = "GREED"
	ExtremeGreed FearGreedLevel = "EXTREME_GREED"
)

// FearGreedComponent is one weighted input to the self-calculated composite.
type FearGreedComponent struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`  // 0-100
	Weight float64 `json:"weight"` // percent of composite
}

// FearGreedIndex is the composite market mood reading.
// Source is "cnn", "calculated", "vix" or "none".
type FearGreedIndex struct {
	Score      float64              `json:"score"`
	Level      FearGreedLevel       `json:"level"`
	Source     string               `json:"source"`
	VIX        *float64             `json:"vix,omitempty"`
	Components []FearGreedComponent `json:"components,omitempty"`
	AsOf       time.Time            `json:"as_of"`
}

// DividendInfo summarizes a ticker's dividend profile.
type DividendInfo struct {
	Symbol       string     `json:"symbol"`
	Rate         *float64   `json:"rate,omitempty"`  // annual, per share
	Yield        *float64   `json:"yield,omitempty"` // percent
	ExDate       *time.Time `json:"ex_date,omitempty"`
	PayoutRatio  *float64   `json:"payout_ratio,omitempty"`
	LastDividend *float64   `json:"last_dividend,omitempty"`
}

// EarningsInfo carries the next scheduled earnings date, when known.
type EarningsInfo struct {
	Symbol   string     `json:"symbol"`
	NextDate *time.Time `json:"next_date,omitempty"`
}

// ETFHolding represents a constituent within an ETF.
type ETFHolding struct {
	Symbol string  `json:"symbol,omitempty"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"` // fraction of fund, 0-1
}

// SectorWeight represents sector allocation within an ETF.
type SectorWeight struct {
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"` // fraction of fund, 0-1
}

// MarketStatus is the market-wide context captured once per scan run.
type MarketStatus struct {
	Sentiment      Sentiment       `json:"sentiment"`
	BelowMA60Count int             `json:"below_ma60_count"`
	TrendSetters   int             `json:"trend_setters"`
	FearGreed      *FearGreedIndex `json:"fear_greed,omitempty"`
}

// ScanResult is the full assessment of one ticker from one scan run.
type ScanResult struct {
	Symbol         string           `json:"symbol"`
	Category       Category         `json:"category"`
	Signals        TechnicalSignals `json:"signals"`
	Moat           *MoatTrend       `json:"moat,omitempty"`
	BiasPercentile *float64         `json:"bias_percentile,omitempty"`
	RogueWave      bool             `json:"rogue_wave"`
	Signal         Signal           `json:"signal"`
	PrevSignal     Signal           `json:"prev_signal,omitempty"`
	Alerts         []string         `json:"alerts,omitempty"`
	Err            string           `json:"error,omitempty"`
}

// ScanSummary is what a scan run returns to its caller.
type ScanSummary struct {
	StartedAt    time.Time    `json:"started_at"`
	Duration     string       `json:"duration"`
	MarketStatus MarketStatus `json:"market_status"`
	Total        int          `json:"total"`
	Scanned      int          `json:"scanned"`
	Failed       int          `json:"failed"`
	SignalCounts map[Signal]int `json:"signal_counts"`
	Results      []ScanResult `json:"results"`
}
