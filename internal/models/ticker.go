package models

import (
	"strings"
	"time"
)

// Signal is the discrete classification assigned to a ticker by the decision funnel.
type Signal string

const (
	SignalNormal        Signal = "NORMAL"
	SignalThesisBroken  Signal = "THESIS_BROKEN"
	SignalDeepValue     Signal = "DEEP_VALUE"
	SignalOversold      Signal = "OVERSOLD"
	SignalContrarianBuy Signal = "CONTRARIAN_BUY"
	SignalApproachBuy   Signal = "APPROACHING_BUY"
	SignalOverheated    Signal = "OVERHEATED"
	SignalCautionHigh   Signal = "CAUTION_HIGH"
	SignalWeakening     Signal = "WEAKENING"
)

// Noteworthy reports whether the signal warrants a notification.
func (s Signal) Noteworthy() bool {
	switch s {
	case SignalThesisBroken, SignalDeepValue, SignalOversold, SignalContrarianBuy, SignalOverheated:
		return true
	default:
		return false
	}
}

// TrackedTicker is a symbol under observation, carrying the investment thesis
// and the result of the most recent scan.
type TrackedTicker struct {
	Symbol         string     `json:"symbol" badgerhold:"unique"`
	Category       Category   `json:"category"`
	Thesis         string     `json:"thesis"`
	Tags           []string   `json:"tags,omitempty"`
	IsETF          bool       `json:"is_etf"`
	LastScanSignal Signal     `json:"last_scan_signal,omitempty"`
	SignalSince    *time.Time `json:"signal_since,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NormalizeSymbol uppercases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ThesisLog is one version in the append-only thesis chain of a ticker.
// Versions are dense and strictly ascending per symbol.
type ThesisLog struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol" badgerhold:"index"`
	Version   int       `json:"version"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RemovalLog records why a ticker was deactivated. A symbol may accumulate
// several entries across reactivation cycles.
type RemovalLog struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol" badgerhold:"index"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// ScanLog is one row per (ticker, scan run).
type ScanLog struct {
	ID           string           `json:"id"`
	Symbol       string           `json:"symbol" badgerhold:"index"`
	Signal       Signal           `json:"signal"`
	MarketStatus MarketStatus     `json:"market_status"`
	Signals      TechnicalSignals `json:"signals"`
	Alerts       []string         `json:"alerts,omitempty"`
	CreatedAt    time.Time        `json:"created_at" badgerhold:"index"`
}

// AlertMetric names the scan metric a price alert watches.
type AlertMetric string

const (
	AlertMetricRSI   AlertMetric = "rsi"
	AlertMetricPrice AlertMetric = "price"
	AlertMetricBias  AlertMetric = "bias"
)

// AlertOperator is the comparison direction of a price alert.
type AlertOperator string

const (
	AlertOpLT AlertOperator = "lt"
	AlertOpGT AlertOperator = "gt"
)

// PriceAlert fires when a scan metric crosses a user-set threshold.
// LastTriggeredAt may be persisted naive; it is always interpreted as UTC.
type PriceAlert struct {
	ID              string        `json:"id"`
	Symbol          string        `json:"symbol" badgerhold:"index"`
	Metric          AlertMetric   `json:"metric"`
	Operator        AlertOperator `json:"operator"`
	Threshold       float64       `json:"threshold"`
	Active          bool          `json:"active"`
	LastTriggeredAt *time.Time    `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}
