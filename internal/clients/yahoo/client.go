// Package yahoo provides a client for the Yahoo Finance public JSON
// endpoints: daily history via the chart API and fundamentals, ETF
// composition, dividends and earnings via quoteSummary.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/models"
	"github.com/bvanryn/specula/internal/ratelimit"
	"github.com/bvanryn/specula/internal/retry"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	DefaultTimeout = 30 * time.Second
	DefaultRate    = 2.0 // calls per second

	// The endpoints sit behind bot detection; a browser User-Agent is
	// required or responses degrade to 429/403.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// batchConcurrency bounds parallel chart calls in BatchHistory. The
	// limiter spaces the actual requests; this only caps goroutines.
	batchConcurrency = 4
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// rawValue is Yahoo's {raw, fmt} number wrapper.
type rawValue struct {
	Raw *flexFloat64 `json:"raw"`
}

func (r *rawValue) Float() *float64 {
	if r == nil || r.Raw == nil {
		return nil
	}
	v := float64(*r.Raw)
	return &v
}

// APIError represents a non-200 response from the provider.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Client talks to the Yahoo Finance endpoints. All calls pass the shared
// rate limiter before touching the network.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *ratelimit.Limiter
	attempts   int
	baseDelay  time.Duration
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
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

// WithRetry sets the retry budget for transient failures.
func WithRetry(attempts int, baseDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.attempts = attempts
		c.baseDelay = baseDelay
	}
}

// NewClient creates a new Yahoo Finance client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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

// get performs a rate-limited GET request with retries on transient
// failures.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	return retry.Do(ctx, c.attempts, c.baseDelay, func(ctx context.Context) error {
		return c.getOnce(ctx, path, params, result)
	})
}

func (c *Client) getOnce(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("path", path).Msg("Yahoo API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// chartResponse mirrors /v8/finance/chart.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History fetches daily candles for a symbol over a chart range such as
// "3mo", "1y" or "2y". Candles are returned oldest first with null and
// zero-close rows dropped. An empty series maps to retry.ErrEmptyHistory
// because the provider swallows transient failures silently.
func (c *Client) History(ctx context.Context, symbol, rng string) ([]models.Candle, error) {
	if rng == "" {
		rng = "1y"
	}
	params := url.Values{}
	params.Set("range", rng)
	params.Set("interval", "1d")
	params.Set("events", "div")

	var resp chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    resp.Chart.Error.Description,
			Endpoint:   "/v8/finance/chart/" + symbol,
		}
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("history for %s: %w", symbol, retry.ErrEmptyHistory)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("history for %s: %w", symbol, retry.ErrEmptyHistory)
	}
	quote := result.Indicators.Quote[0]

	candles := make([]models.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil || *quote.Close[i] <= 0 {
			continue
		}
		candle := models.Candle{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			candle.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			candle.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			candle.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			candle.Volume = *quote.Volume[i]
		}
		candles = append(candles, candle)
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("history for %s: %w", symbol, retry.ErrEmptyHistory)
	}
	return candles, nil
}

// BatchHistory fetches history for several symbols with bounded
// concurrency. The provider has no true multi-symbol daily endpoint, so
// this is the single batch entry point the pre-warm phases use; a failed
// symbol is skipped, not fatal.
func (c *Client) BatchHistory(ctx context.Context, symbols []string, rng string) (map[string][]models.Candle, error) {
	out := make(map[string][]models.Candle, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			candles, err := c.History(gctx, symbol, rng)
			if err != nil {
				c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Batch history: symbol failed")
				return nil
			}
			mu.Lock()
			out[symbol] = candles
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(out) == 0 && len(symbols) > 0 {
		return nil, fmt.Errorf("batch history: %w", retry.ErrEmptyHistory)
	}
	return out, nil
}

// FXHistory fetches the daily exchange-rate series for a pair, quoted as
// base -> quote (direct multiplication).
func (c *Client) FXHistory(ctx context.Context, base, quote, rng string) ([]models.Candle, error) {
	symbol := strings.ToUpper(base) + strings.ToUpper(quote) + "=X"
	return c.History(ctx, symbol, rng)
}

// VIX returns the latest CBOE volatility index close.
func (c *Client) VIX(ctx context.Context) (float64, error) {
	candles, err := c.History(ctx, "^VIX", "5d")
	if err != nil {
		return 0, err
	}
	return candles[len(candles)-1].Close, nil
}
