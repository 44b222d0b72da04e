package models

import (
	"time"
)

// FXWatchConfig watches one currency pair for entry conditions.
type FXWatchConfig struct {
	ID                    string     `json:"id"`
	Base                  string     `json:"base"`
	Quote                 string     `json:"quote"`
	LookbackDays          int        `json:"lookback_days"`
	ConsecutiveThreshold  int        `json:"consecutive_threshold"`
	AlertOnConsecutive    bool       `json:"alert_on_consecutive"`
	AlertOnLookbackLow    bool       `json:"alert_on_lookback_low"`
	ReminderIntervalHours int        `json:"reminder_interval_hours"`
	LastAlertedAt         *time.Time `json:"last_alerted_at,omitempty"`
	Active                bool       `json:"active"`
	CreatedAt             time.Time  `json:"created_at"`
}

// Pair returns the provider symbol for the watched pair, e.g. "EURUSD".
func (c *FXWatchConfig) Pair() string {
	return c.Base + c.Quote
}

// NotificationLog records when a notification type was last dispatched.
// It is the only state needed for notification rate limiting.
type NotificationLog struct {
	Type   string    `json:"type" badgerhold:"index"`
	SentAt time.Time `json:"sent_at"`
}
