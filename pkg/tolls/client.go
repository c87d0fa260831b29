package tolls

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout is applied to provider calls when the adapter config sets none
	DefaultTimeout = 30 * time.Second

	// MaxResponseBytes bounds the response body read from a provider
	MaxResponseBytes = 10 << 20
)

// Client performs rate limited, time bounded JSON calls against one provider
type Client struct {
	provider   string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *RateLimiter
	headers    func() map[string]string
}

// ClientOptions configures a Client
type ClientOptions struct {
	Provider   string                   // Provider identifier used in errors
	BaseURL    string                   // Base URL every path is resolved against
	Timeout    time.Duration            // Per-call timeout, DefaultTimeout if zero
	HTTPClient *http.Client             // Optional custom client (e.g. an OAuth2 transport)
	Limiter    *RateLimiter             // Limiter owned by the adapter instance
	Headers    func() map[string]string // Authentication headers set on every request
}

// NewClient creates a new provider client
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(0, 0)
	}

	return &Client{
		provider:   opts.Provider,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
		limiter:    limiter,
		headers:    opts.Headers,
	}
}

// Limiter returns the limiter gating this client
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}

// Get performs a GET request and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post performs a POST request with a JSON body and decodes the JSON response into out
func (c *Client) Post(ctx context.Context, path string, in any, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, in, out)
}

// Do waits on the rate limiter, sends the request under the configured timeout and
// decodes the response. Every failure is returned as a *ProviderError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ProviderError{Provider: c.provider, Err: fmt.Errorf("rate limiter wait: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &ProviderError{Provider: c.provider, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewBuffer(b)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &ProviderError{Provider: c.provider, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "tollsync/1.0")
	if c.headers != nil {
		for k, v := range c.headers() {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &ProviderError{Provider: c.provider, Err: fmt.Errorf("request timed out after %s: %w", c.timeout, err)}
		}
		return &ProviderError{Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Only the excerpt is kept, one extra byte tells excerpt the body was longer
		data, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodyBytes+1))
		return &ProviderError{Provider: c.provider, StatusCode: resp.StatusCode, Body: excerpt(data)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return &ProviderError{Provider: c.provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if len(data) > MaxResponseBytes {
		return &ProviderError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response exceeds %d bytes", MaxResponseBytes),
		}
	}

	// If no output expected, return early
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ProviderError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Body:       excerpt(data),
			Err:        fmt.Errorf("malformed response: %w", err),
		}
	}

	return nil
}
