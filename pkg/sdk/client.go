package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Header names the API reads the caller's identity from
const (
	APIKeyHeader  = "X-API-KEY"
	CompanyHeader = "X-Company-ID"
)

// Client wraps calls to the toll sync API on behalf of one company
type Client struct {
	baseURL    string
	apiKey     string
	companyID  uint
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, companyID uint) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		companyID:  companyID,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// ProcessQueue drains the sync queue
func (c *Client) ProcessQueue(ctx context.Context) (*ProcessQueueResponse, error) {
	var out ApiResponse[ProcessQueueResponse]
	if err := c.doJSON(ctx, http.MethodPost, "/api/sync/process", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// QueueStatus returns the sync queue counts of the company
func (c *Client) QueueStatus(ctx context.Context) (*QueueStatus, error) {
	var out ApiResponse[QueueStatus]
	if err := c.doJSON(ctx, http.MethodGet, "/api/sync/status", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Enqueue queues a mutation for the company
func (c *Client) Enqueue(ctx context.Context, req *EnqueueRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/sync/queue", req, nil)
}

// ListAccounts returns a page of the company's accounts
func (c *Client) ListAccounts(ctx context.Context, limit, offset int) (*AccountList, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var out ApiResponse[AccountList]
	if err := c.doJSON(ctx, http.MethodGet, "/api/accounts?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// SyncAccount triggers a manual sync of one account
func (c *Client) SyncAccount(ctx context.Context, id uint) (*SyncAccountResponse, error) {
	path := fmt.Sprintf("/api/accounts/%d/sync", id)

	var out ApiResponse[SyncAccountResponse]
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	// Create the request
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set(CompanyHeader, strconv.FormatUint(uint64(c.companyID), 10))

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Prefer the envelope message over the raw body
		b, _ := io.ReadAll(resp.Body)

		var failure ApiResponse[any]
		if json.Unmarshal(b, &failure) == nil && failure.Message != "" {
			return &ResponseError{StatusCode: resp.StatusCode, Message: failure.Message, Detail: failure.Error}
		}
		return &ResponseError{StatusCode: resp.StatusCode, Message: string(b)}
	}

	// If no output expected, return early
	if out == nil {
		return nil
	}

	// Decode the response body into the output struct
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

// ResponseError is returned for non-2xx responses
type ResponseError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *ResponseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s (%s)", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}
