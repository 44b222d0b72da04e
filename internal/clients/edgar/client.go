// Package edgar provides a client for SEC EDGAR: the company
// submissions index and 13F-HR infotable discovery. SEC requires a
// contact-email User-Agent and caps clients at 10 requests per second.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/models"
	"github.com/bvanryn/specula/internal/ratelimit"
	"github.com/bvanryn/specula/internal/retry"
)

const (
	DefaultSubmissionsURL = "https://data.sec.gov"
	DefaultArchivesURL    = "https://www.sec.gov"
	DefaultTimeout        = 30 * time.Second
	DefaultRate           = 10.0 // SEC fair-access cap
)

// APIError represents a non-200 response from EDGAR.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EDGAR API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Client talks to SEC EDGAR.
type Client struct {
	submissionsURL string
	archivesURL    string
	userAgent      string
	httpClient     *http.Client
	logger         *common.Logger
	limiter        *ratelimit.Limiter
	attempts       int
	baseDelay      time.Duration
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithSubmissionsURL sets the submissions base URL.
func WithSubmissionsURL(u string) ClientOption {
	return func(c *Client) {
		c.submissionsURL = strings.TrimRight(u, "/")
	}
}

// WithArchivesURL sets the filing archive base URL.
func WithArchivesURL(u string) ClientOption {
	return func(c *Client) {
		c.archivesURL = strings.TrimRight(u, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimiter sets the request limiter.
func WithRateLimiter(limiter *ratelimit.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new EDGAR client. contact is the email SEC
// requires in the User-Agent header.
func NewClient(contact string, opts ...ClientOption) *Client {
	c := &Client{
		submissionsURL: DefaultSubmissionsURL,
		archivesURL:    DefaultArchivesURL,
		userAgent:      fmt.Sprintf("specula/1.0 (%s)", contact),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:    common.NewSilentLogger(),
		limiter:   ratelimit.New(DefaultRate),
		attempts:  retry.DefaultAttempts,
		baseDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fetch performs a rate-limited GET with retries, returning the raw body.
func (c *Client) fetch(ctx context.Context, fullURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.attempts, c.baseDelay, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept-Encoding", "gzip, deflate")

		c.logger.Debug().Str("url", fullURL).Msg("EDGAR request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &APIError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(msg)),
				Endpoint:   fullURL,
			}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return nil
	})
	return body, err
}

// submissionsResponse mirrors /submissions/CIK{padded}.json.
type submissionsResponse struct {
	CIK     json.Number `json:"cik"`
	Name    string      `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// padCIK left-pads a CIK to the 10 digits the submissions path expects.
func padCIK(cik string) string {
	cik = strings.TrimLeft(strings.TrimSpace(cik), "0")
	for len(cik) < 10 {
		cik = "0" + cik
	}
	return cik
}

// CompanyFilings fetches the recent filings index for a CIK.
func (c *Client) CompanyFilings(ctx context.Context, cik string) ([]models.Filing13F, error) {
	u := fmt.Sprintf("%s/submissions/CIK%s.json", c.submissionsURL, padCIK(cik))
	body, err := c.fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	var subs submissionsResponse
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("failed to parse submissions index: %w", err)
	}

	recent := subs.Filings.Recent
	filings := make([]models.Filing13F, 0, len(recent.AccessionNumber))
	for i, accession := range recent.AccessionNumber {
		filing := models.Filing13F{
			AccessionNumber: accession,
			AccessionPath:   strings.ReplaceAll(accession, "-", ""),
		}
		if i < len(recent.Form) {
			filing.Form = recent.Form[i]
		}
		if i < len(recent.FilingDate) {
			filing.FilingDate, _ = time.Parse("2006-01-02", recent.FilingDate[i])
		}
		if i < len(recent.ReportDate) {
			filing.ReportDate, _ = time.Parse("2006-01-02", recent.ReportDate[i])
		}
		if i < len(recent.PrimaryDocument) {
			filing.PrimaryDoc = recent.PrimaryDocument[i]
		}
		filing.FilingURL = fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
			c.archivesURL, strings.TrimLeft(cik, "0"), filing.AccessionPath, filing.PrimaryDoc)
		filings = append(filings, filing)
	}
	return filings, nil
}

// Latest13F returns the newest 13F-HR filings for a CIK, most recent
// report first, capped at count.
func (c *Client) Latest13F(ctx context.Context, cik string, count int) ([]models.Filing13F, error) {
	all, err := c.CompanyFilings(ctx, cik)
	if err != nil {
		return nil, err
	}

	filings := make([]models.Filing13F, 0, count)
	for _, f := range all {
		if f.Form != "13F-HR" {
			continue
		}
		filings = append(filings, f)
	}
	sort.Slice(filings, func(i, j int) bool {
		return filings[i].ReportDate.After(filings[j].ReportDate)
	})
	if count > 0 && len(filings) > count {
		filings = filings[:count]
	}
	return filings, nil
}

// directoryIndex mirrors the filing directory index.json.
type directoryIndex struct {
	Directory struct {
		Item []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"item"`
	} `json:"directory"`
}

// FilingDetail downloads and parses the infotable of one 13F filing.
// The infotable filename varies per filer, so it is discovered from the
// directory listing: the first .xml that is not primary_doc.xml, falling
// back to infotable.xml. The discovered filename is returned so cache
// keys downstream can include it.
func (c *Client) FilingDetail(ctx context.Context, cik, accession string) ([]models.Raw13FHolding, string, error) {
	accessionPath := strings.ReplaceAll(accession, "-", "")
	base := fmt.Sprintf("%s/Archives/edgar/data/%s/%s", c.archivesURL, strings.TrimLeft(cik, "0"), accessionPath)

	filename, err := c.discoverInfotable(ctx, base)
	if err != nil {
		return nil, "", err
	}

	body, err := c.fetch(ctx, base+"/"+filename)
	if err != nil {
		return nil, "", err
	}

	holdings, err := ParseInfotable(body)
	if err != nil {
		return nil, "", fmt.Errorf("parse infotable %s: %w", filename, err)
	}
	return holdings, filename, nil
}

func (c *Client) discoverInfotable(ctx context.Context, base string) (string, error) {
	body, err := c.fetch(ctx, base+"/index.json")
	if err != nil {
		// Discovery is best effort; the conventional name usually exists
		c.logger.Warn().Err(err).Msg("EDGAR: directory index unavailable, falling back to infotable.xml")
		return "infotable.xml", nil
	}

	var index directoryIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return "infotable.xml", nil
	}

	for _, item := range index.Directory.Item {
		name := strings.ToLower(item.Name)
		if strings.HasSuffix(name, ".xml") && name != "primary_doc.xml" {
			return item.Name, nil
		}
	}
	return "infotable.xml", nil
}
