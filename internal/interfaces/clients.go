// Package interfaces defines the service and storage contracts for Specula.
package interfaces

import (
	"context"

	"github.com/bvanryn/specula/internal/models"
)

// EdgarClient provides access to the SEC EDGAR submissions index and
// 13F infotable documents.
type EdgarClient interface {
	// CompanyFilings fetches the recent filings index for a CIK.
	CompanyFilings(ctx context.Context, cik string) ([]models.Filing13F, error)

	// Latest13F returns the newest 13F-HR filings, most recent report
	// first, capped at count.
	Latest13F(ctx context.Context, cik string, count int) ([]models.Filing13F, error)

	// FilingDetail downloads and parses one filing's infotable. The
	// discovered infotable filename is returned alongside the holdings.
	FilingDetail(ctx context.Context, cik, accession string) ([]models.Raw13FHolding, string, error)
}

// Notifier dispatches outbound notifications, honoring per-type
// minimum intervals. A disabled transport degrades to log-only.
type Notifier interface {
	// Send delivers text for the given notification type. A send
	// suppressed by the type's rate limit is not an error.
	Send(ctx context.Context, notifType, text string) error

	// SendPhoto delivers a PNG with a caption.
	SendPhoto(ctx context.Context, notifType, caption string, png []byte) error

	// SendWithPhoto delivers text with an attached PNG as one gated
	// dispatch: the type's minimum interval is consulted once, so the
	// photo always rides the message it belongs to.
	SendWithPhoto(ctx context.Context, notifType, text, caption string, png []byte) error
}
