// Package history fetches serialized sessions over HTTP for resumption
// without replaying them through the live transport.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/otolabs/oto-core/core/protocol"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultRequestTimeout = 30 * time.Second

// Client retrieves session snapshots from the service's history endpoint.
type Client struct {
	baseURL    string
	credential string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. The otelhttp
// transport is still layered on top.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, credential string, opts ...Option) *Client {
	client := &Client{
		baseURL:    baseURL,
		credential: credential,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}

	base := client.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.httpClient.Transport = otelhttp.NewTransport(base)
	return client
}

// StatusError reports a non-2xx response from the history endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("history request failed with status %d", e.StatusCode)
}

// Fetch retrieves the complete snapshot of one session.
func (c *Client) Fetch(ctx context.Context, sessionID string) (*protocol.SessionSnapshot, error) {
	endpoint, err := url.JoinPath(c.baseURL, "sessions", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to build history URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build history request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.credential)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var snapshot protocol.SessionSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return &snapshot, nil
}
