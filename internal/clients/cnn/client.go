// Package cnn fetches the CNN fear & greed index. The endpoint is
// optional: any failure here degrades the composite to the
// self-calculated score, then to VIX alone.
package cnn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bvanryn/specula/internal/common"
)

const (
	DefaultBaseURL = "https://production.dataviz.cnn.io"
	DefaultTimeout = 15 * time.Second

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Index is the current CNN fear & greed reading.
type Index struct {
	Score     float64   `json:"score"`
	Rating    string    `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// Client talks to the CNN dataviz endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
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

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new CNN fear & greed client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphDataResponse struct {
	FearAndGreed struct {
		Score     float64 `json:"score"`
		Rating    string  `json:"rating"`
		Timestamp string  `json:"timestamp"`
	} `json:"fear_and_greed"`
}

// Index fetches the current fear & greed score (0-100) and rating.
func (c *Client) Index(ctx context.Context) (*Index, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/index/fearandgreed/graphdata", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("CNN fear & greed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data graphDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if data.FearAndGreed.Score <= 0 {
		return nil, fmt.Errorf("CNN fear & greed: no score in response")
	}

	index := &Index{
		Score:  data.FearAndGreed.Score,
		Rating: data.FearAndGreed.Rating,
	}
	if ts, err := time.Parse(time.RFC3339, data.FearAndGreed.Timestamp); err == nil {
		index.Timestamp = ts
	}
	return index, nil
}
