// Package upstream is the HTTP client for the local inference backend.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	healthPath = "/health"
	chatPath   = "/v1/chat/completions"
)

// Client talks to a single llama.cpp-style backend exposing /health and
// /v1/chat/completions.
type Client struct {
	baseURL string

	// chat uses a generous ceiling: large-model generation is expected to
	// be slow, so the only guard is against a truly wedged backend.
	chat *http.Client

	// health uses a short timeout so the switchboard's poll loop stays on
	// its fixed cadence.
	health *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithChatTimeout overrides the completion-call ceiling.
func WithChatTimeout(d time.Duration) Option {
	return func(c *Client) { c.chat.Timeout = d }
}

// WithHealthTimeout overrides the health-probe timeout.
func WithHealthTimeout(d time.Duration) Option {
	return func(c *Client) { c.health.Timeout = d }
}

// New creates a Client for the backend at baseURL (e.g. "http://127.0.0.1:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		chat: &http.Client{
			Timeout: 30 * time.Minute,
			// Connecting is bounded tightly; only generation may be slow.
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			},
		},
		health: &http.Client{Timeout: time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Health probes GET /health. A nil return means the backend answered 200.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return err
	}

	resp, err := c.health.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend health returned status %d", resp.StatusCode)
	}
	return nil
}

// ChatCompletions posts the raw request body to /v1/chat/completions and
// returns the raw response body and status code. The body is returned even
// on non-2xx statuses so the caller can relay whatever the backend produced.
func (c *Client) ChatCompletions(ctx context.Context, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.chat.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read backend response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}
