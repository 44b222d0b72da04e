package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bvanryn/specula/internal/models"
)

// Fundamentals carries the per-ticker quoteSummary extraction. Pointer
// fields are nil when the provider has no figure.
type Fundamentals struct {
	Symbol              string     `json:"symbol"`
	Beta                *float64   `json:"beta,omitempty"`
	Sector              string     `json:"sector,omitempty"`
	QuoteType           string     `json:"quote_type,omitempty"`
	GrossMarginCurrent  *float64   `json:"gross_margin_current,omitempty"`  // percent, latest fiscal year
	GrossMarginPrevious *float64   `json:"gross_margin_previous,omitempty"` // percent, prior fiscal year
	DividendRate        *float64   `json:"dividend_rate,omitempty"`
	DividendYield       *float64   `json:"dividend_yield,omitempty"` // percent
	ExDividendDate      *time.Time `json:"ex_dividend_date,omitempty"`
	PayoutRatio         *float64   `json:"payout_ratio,omitempty"`
	EarningsDate        *time.Time `json:"earnings_date,omitempty"`
}

// IsETF reports whether the quote type marks an exchange-traded fund.
func (f *Fundamentals) IsETF() bool {
	return strings.EqualFold(f.QuoteType, "ETF")
}

// quoteSummaryResponse mirrors /v10/finance/quoteSummary.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	SummaryDetail *struct {
		Beta           *rawValue `json:"beta"`
		DividendRate   *rawValue `json:"dividendRate"`
		DividendYield  *rawValue `json:"dividendYield"`
		ExDividendDate *rawValue `json:"exDividendDate"`
		PayoutRatio    *rawValue `json:"payoutRatio"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics *struct {
		Beta *rawValue `json:"beta"`
	} `json:"defaultKeyStatistics"`
	AssetProfile *struct {
		Sector string `json:"sector"`
	} `json:"assetProfile"`
	QuoteType *struct {
		QuoteType string `json:"quoteType"`
	} `json:"quoteType"`
	IncomeStatementHistory *struct {
		Statements []struct {
			EndDate      *rawValue `json:"endDate"`
			TotalRevenue *rawValue `json:"totalRevenue"`
			GrossProfit  *rawValue `json:"grossProfit"`
		} `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistory"`
	CalendarEvents *struct {
		Earnings struct {
			EarningsDate []rawValue `json:"earningsDate"`
		} `json:"earnings"`
	} `json:"calendarEvents"`
	TopHoldings *struct {
		Holdings []struct {
			Symbol         string    `json:"symbol"`
			HoldingName    string    `json:"holdingName"`
			HoldingPercent *rawValue `json:"holdingPercent"`
		} `json:"holdings"`
		SectorWeightings []map[string]*rawValue `json:"sectorWeightings"`
	} `json:"topHoldings"`
}

// quoteSummary fetches the requested modules for one symbol.
func (c *Client) quoteSummary(ctx context.Context, symbol string, modules []string) (*quoteSummaryResult, error) {
	params := url.Values{}
	params.Set("modules", strings.Join(modules, ","))

	var resp quoteSummaryResponse
	path := "/v10/finance/quoteSummary/" + url.PathEscape(symbol)
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteSummary.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    resp.QuoteSummary.Error.Description,
			Endpoint:   path,
		}
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("quoteSummary for %s: empty result", symbol)
	}
	return &resp.QuoteSummary.Result[0], nil
}

// Fundamentals fetches beta, sector, quote type, gross margins, dividend
// profile and the next earnings date in a single quoteSummary call.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (*Fundamentals, error) {
	result, err := c.quoteSummary(ctx, symbol, []string{
		"summaryDetail", "defaultKeyStatistics", "assetProfile",
		"quoteType", "incomeStatementHistory", "calendarEvents",
	})
	if err != nil {
		return nil, err
	}

	f := &Fundamentals{Symbol: symbol}

	if sd := result.SummaryDetail; sd != nil {
		f.Beta = sd.Beta.Float()
		f.DividendRate = sd.DividendRate.Float()
		if y := sd.DividendYield.Float(); y != nil {
			pct := *y * 100
			f.DividendYield = &pct
		}
		f.PayoutRatio = sd.PayoutRatio.Float()
		if ex := sd.ExDividendDate.Float(); ex != nil && *ex > 0 {
			d := time.Unix(int64(*ex), 0).UTC()
			f.ExDividendDate = &d
		}
	}
	if f.Beta == nil && result.DefaultKeyStatistics != nil {
		f.Beta = result.DefaultKeyStatistics.Beta.Float()
	}
	if ap := result.AssetProfile; ap != nil {
		f.Sector = ap.Sector
	}
	if qt := result.QuoteType; qt != nil {
		f.QuoteType = qt.QuoteType
	}
	if ish := result.IncomeStatementHistory; ish != nil {
		margins := make([]*float64, 0, 2)
		for _, stmt := range ish.Statements {
			margins = append(margins, grossMargin(stmt.GrossProfit.Float(), stmt.TotalRevenue.Float()))
			if len(margins) == 2 {
				break
			}
		}
		if len(margins) > 0 {
			f.GrossMarginCurrent = margins[0]
		}
		if len(margins) > 1 {
			f.GrossMarginPrevious = margins[1]
		}
	}
	if ce := result.CalendarEvents; ce != nil && len(ce.Earnings.EarningsDate) > 0 {
		if ts := ce.Earnings.EarningsDate[0].Float(); ts != nil && *ts > 0 {
			d := time.Unix(int64(*ts), 0).UTC()
			f.EarningsDate = &d
		}
	}

	return f, nil
}

// grossMargin converts profit and revenue into a margin percentage.
func grossMargin(profit, revenue *float64) *float64 {
	if profit == nil || revenue == nil || *revenue == 0 {
		return nil
	}
	m := *profit / *revenue * 100
	return &m
}

// ETFProfile is the fund composition from the topHoldings module.
type ETFProfile struct {
	Symbol        string                `json:"symbol"`
	Holdings      []models.ETFHolding   `json:"holdings"`
	SectorWeights []models.SectorWeight `json:"sector_weights"`
}

// sectorNames maps Yahoo's camelCase sector keys to display names.
var sectorNames = map[string]string{
	"realestate":             "Real Estate",
	"consumer_cyclical":      "Consumer Cyclical",
	"basic_materials":        "Basic Materials",
	"consumer_defensive":     "Consumer Defensive",
	"technology":             "Technology",
	"communication_services": "Communication Services",
	"financial_services":     "Financial Services",
	"utilities":              "Utilities",
	"industrials":            "Industrials",
	"energy":                 "Energy",
	"healthcare":             "Healthcare",
}

// ETFProfile fetches the fund's top constituents and sector weights.
func (c *Client) ETFProfile(ctx context.Context, symbol string) (*ETFProfile, error) {
	result, err := c.quoteSummary(ctx, symbol, []string{"topHoldings"})
	if err != nil {
		return nil, err
	}

	profile := &ETFProfile{Symbol: symbol}
	th := result.TopHoldings
	if th == nil {
		return profile, nil
	}

	for _, h := range th.Holdings {
		weight := 0.0
		if w := h.HoldingPercent.Float(); w != nil {
			weight = *w
		}
		profile.Holdings = append(profile.Holdings, models.ETFHolding{
			Symbol: h.Symbol,
			Name:   h.HoldingName,
			Weight: weight,
		})
	}
	for _, entry := range th.SectorWeightings {
		for key, w := range entry {
			if w == nil {
				continue
			}
			weight := w.Float()
			if weight == nil || *weight <= 0 {
				continue
			}
			name, ok := sectorNames[key]
			if !ok {
				name = key
			}
			profile.SectorWeights = append(profile.SectorWeights, models.SectorWeight{
				Sector: name,
				Weight: *weight,
			})
		}
	}
	return profile, nil
}
