package models

import (
	"time"
)

// Guru is an institutional manager whose 13F filings are tracked.
type Guru struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CIK         string    `json:"cik" badgerhold:"index"`
	DisplayName string    `json:"display_name"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filing13F is one 13F-HR record discovered in the EDGAR submissions index.
type Filing13F struct {
	AccessionNumber string    `json:"accession_number"`
	Form            string    `json:"form"`
	ReportDate      time.Time `json:"report_date"`
	FilingDate      time.Time `json:"filing_date"`
	PrimaryDoc      string    `json:"primary_doc,omitempty"`
	FilingURL       string    `json:"filing_url"`
	AccessionPath   string    `json:"accession_path"` // accession number without dashes
}

// Raw13FHolding is one infoTable row parsed from an infotable XML document.
// Value is in thousands of USD as filed.
type Raw13FHolding struct {
	CUSIP       string  `json:"cusip"`
	CompanyName string  `json:"company_name"`
	Value       float64 `json:"value"`
	Shares      float64 `json:"shares"`
}

// GuruFiling is a synced 13F filing. AccessionNumber is the idempotency key:
// a filing once synced is never re-synced.
type GuruFiling struct {
	ID              string    `json:"id"`
	GuruID          string    `json:"guru_id" badgerhold:"index"`
	AccessionNumber string    `json:"accession_number" badgerhold:"unique"`
	ReportDate      time.Time `json:"report_date"`
	FilingDate      time.Time `json:"filing_date"`
	TotalValue      float64   `json:"total_value"` // USD
	HoldingsCount   int       `json:"holdings_count"`
	FilingURL       string    `json:"filing_url"`
	SyncedAt        time.Time `json:"synced_at"`
}

// HoldingAction classifies a position's quarter-over-quarter change.
type HoldingAction string

const (
	ActionNewPosition HoldingAction = "NEW_POSITION"
	ActionSoldOut     HoldingAction = "SOLD_OUT"
	ActionIncreased   HoldingAction = "INCREASED"
	ActionDecreased   HoldingAction = "DECREASED"
	ActionUnchanged   HoldingAction = "UNCHANGED"
)

// GuruHolding is one position inside a synced filing. Filing and guru are
// referenced by id; there are no back-pointers.
type GuruHolding struct {
	ID          string        `json:"id"`
	FilingID    string        `json:"filing_id" badgerhold:"index"`
	GuruID      string        `json:"guru_id" badgerhold:"index"`
	CUSIP       string        `json:"cusip"`
	Ticker      string        `json:"ticker,omitempty"`
	CompanyName string        `json:"company_name"`
	Value       float64       `json:"value"` // USD
	Shares      float64       `json:"shares"`
	Action      HoldingAction `json:"action"`
	ChangePct   *float64      `json:"change_pct,omitempty"` // nil when no previous position
	WeightPct   float64       `json:"weight_pct"`
	Sector      string        `json:"sector,omitempty"`
}

// FilingSyncSummary reports the outcome of syncing one filing.
type FilingSyncSummary struct {
	AccessionNumber string        `json:"accession_number"`
	Status          string        `json:"status"` // "synced" or "skipped"
	ReportDate      time.Time     `json:"report_date"`
	HoldingsCount   int           `json:"holdings_count"`
	NewPositions    int           `json:"new_positions"`
	SoldOut         int           `json:"sold_out"`
	Increased       int           `json:"increased"`
	Decreased       int           `json:"decreased"`
	TopHoldings     []GuruHolding `json:"top_holdings,omitempty"`
}
