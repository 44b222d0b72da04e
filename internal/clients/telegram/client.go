// Package telegram sends notifications through the Telegram Bot HTTP
// API. Long messages are chunked at newline boundaries under the
// platform limit; a failed chunk aborts the remainder so a partial
// message is never followed by its own tail out of order.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/bvanryn/specula/internal/common"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	DefaultTimeout = 15 * time.Second

	// MaxMessageLength is Telegram's hard cap per text message.
	MaxMessageLength = 4096
)

// Client posts messages to one chat through a bot.
type Client struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
	logger     *common.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets the API base URL.
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

// NewClient creates a Telegram bot client. An empty token yields a
// disabled client whose sends are logged no-ops.
func NewClient(token, chatID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		chatID:  chatID,
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

// Enabled reports whether the client has credentials to deliver.
func (c *Client) Enabled() bool {
	return c.token != "" && c.chatID != ""
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// SendMessage delivers text, splitting it into chunks under the
// platform limit. The first failed chunk aborts the rest.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if !c.Enabled() {
		c.logger.Debug().Msg("Telegram: disabled, dropping message")
		return nil
	}

	for i, chunk := range SplitMessage(text, MaxMessageLength) {
		if err := c.sendChunk(ctx, chunk); err != nil {
			return fmt.Errorf("telegram chunk %d: %w", i+1, err)
		}
	}
	return nil
}

func (c *Client) sendChunk(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                c.chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// SendPhoto delivers a PNG with a caption, used for the weekly digest
// chart.
func (c *Client) SendPhoto(ctx context.Context, caption string, png []byte) error {
	if !c.Enabled() {
		c.logger.Debug().Msg("Telegram: disabled, dropping photo")
		return nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", c.chatID); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if caption != "" {
		if len(caption) > 1024 {
			caption = caption[:1024]
		}
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("failed to build multipart body: %w", err)
		}
	}
	part, err := writer.CreateFormFile("photo", "chart.png")
	if err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}

	u := fmt.Sprintf("%s/bot%s/sendPhoto", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&api); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !api.OK {
		return fmt.Errorf("telegram API error: %s (status %d)", api.Description, resp.StatusCode)
	}
	return nil
}

// SplitMessage breaks text into chunks of at most limit characters,
// preferring newline boundaries. A single line longer than the limit is
// hard-split.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		// Hard-split overlong lines first
		for len(line) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}

		need := len(line)
		if current.Len() > 0 {
			need++ // the joining newline
		}
		if current.Len()+need > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
