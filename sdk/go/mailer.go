// Package mailer is a Go client for the Simple Mailer HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds the configuration for the mailer client.
type Config struct {
	// BaseURL is the root URL of the mailer server, e.g. "https://mail.example.com".
	BaseURL string

	// APIKey is sent as X-API-Key on management calls.
	APIKey string

	// HTTPClient is an optional custom HTTP client.
	// If nil, a default client with 10s timeout is used.
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
}

// Client calls the mailer API.
type Client struct {
	cfg Config
}

// NewClient creates a new client with the given configuration.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg}
}

// List returns recipients, newest first.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]Recipient, error) {
	q := url.Values{}
	if opts.Email != "" {
		q.Set("email", opts.Email)
	}
	if opts.Name != "" {
		q.Set("name", opts.Name)
	}

	var out []Recipient
	if err := c.do(ctx, http.MethodGet, "/api/mailing-list", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Add upserts recipients by email. Results are in request order.
func (c *Client) Add(ctx context.Context, reqs ...AddRequest) ([]AddResult, error) {
	var out struct {
		Results []AddResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/mailing-list", nil, reqs, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Update applies partial updates. Results are in request order.
func (c *Client) Update(ctx context.Context, reqs ...UpdateRequest) ([]UpdateResult, error) {
	var out struct {
		Results []UpdateResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/mailing-list", nil, reqs, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Remove deletes recipients by email, directory id or uuid.
func (c *Client) Remove(ctx context.Context, identifiers ...string) ([]RemoveResult, error) {
	var out struct {
		Results []RemoveResult `json:"results"`
	}
	payload := map[string][]string{"identifiers": identifiers}
	if err := c.do(ctx, http.MethodDelete, "/api/mailing-list", nil, payload, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// SendAll queues a message to every recipient and returns immediately.
func (c *Client) SendAll(ctx context.Context, req SendAllRequest) (*SendAllResponse, error) {
	var out SendAllResponse
	if err := c.do(ctx, http.MethodPost, "/api/mailing-list/send", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Run returns the state of a bulk send. The server must have run tracking enabled.
func (c *Client) Run(ctx context.Context, runID string) (*Run, error) {
	var out Run
	if err := c.do(ctx, http.MethodGet, "/api/mailing-list/send/"+url.PathEscape(runID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyTransport reports whether the server can reach its mail provider.
func (c *Client) VerifyTransport(ctx context.Context) (bool, error) {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/mailing-list/transport", nil, nil, &out); err != nil {
		return false, err
	}
	return out.OK, nil
}

// Unsubscribe removes the recipient holding token. It needs no API key.
func (c *Client) Unsubscribe(ctx context.Context, token string) error {
	q := url.Values{"uuid": {token}}
	err := c.do(ctx, http.MethodPost, "/unsubscribe", q, nil, nil)
	if apiErr, ok := IsAPIError(err); ok && apiErr.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return err
}

// do sends a request to the mailer API and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("mailer: failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("mailer: failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mailer: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrUnauthorized, parseAPIError(resp.StatusCode, body))
	}
	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("mailer: failed to parse response: %w", err)
	}
	return nil
}
