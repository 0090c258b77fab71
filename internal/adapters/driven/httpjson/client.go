// Package httpjson is the JSON-over-HTTP transport shared by the embedding
// and LLM provider adapters.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 512

// Client sends JSON requests to one provider API. Errors are prefixed
// with the provider name.
type Client struct {
	name    string
	baseURL string
	header  http.Header
	http    *http.Client
}

// New creates a client for baseURL. header is sent with every request.
func New(name, baseURL string, timeout time.Duration, header http.Header) *Client {
	if header == nil {
		header = http.Header{}
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  header,
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends in as JSON to path and decodes the response into out.
// A 429 status wraps domain.ErrRateLimited. An "error" member in the
// response body fails the call whatever the status.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", c.name, domain.ErrRateLimited)
	}
	if msg := errorMessage(body); msg != "" {
		return fmt.Errorf("%s error: %s", c.name, msg)
	}
	if status != http.StatusOK {
		return c.statusError(status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return nil
}

// Ping issues a GET to path and expects 200.
func (c *Client) Ping(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: create ping request: %w", c.name, err)
	}
	body, status, err := c.do(req)
	if err != nil {
		return fmt.Errorf("%s: ping failed: %w", c.name, err)
	}
	if status != http.StatusOK {
		return c.statusError(status, body)
	}
	return nil
}

// Close drops idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: send request: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%s: read response: %w", c.name, err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) statusError(status int, body []byte) error {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return fmt.Errorf("%s: API returned status %d: %s", c.name, status, text)
}

// errorMessage extracts the provider's error from {"error": "..."} or
// {"error": {"message": "..."}} bodies.
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) != nil || len(envelope.Error) == 0 || string(envelope.Error) == "null" {
		return ""
	}
	var text string
	if json.Unmarshal(envelope.Error, &text) == nil {
		return text
	}
	var obj struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if json.Unmarshal(envelope.Error, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return string(envelope.Error)
}
