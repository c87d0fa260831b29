package tolls

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDo(t *testing.T) {
	t.Run("sets auth headers and decodes response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
			assert.Equal(t, "7", r.URL.Query().Get("page"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer server.Close()

		client := NewClient(ClientOptions{
			Provider: "network-A",
			BaseURL:  server.URL + "/",
			Headers:  func() map[string]string { return map[string]string{"X-API-Key": "secret"} },
		})

		var out struct {
			Status string `json:"status"`
		}
		err := client.Get(context.Background(), "/v1/ping", url.Values{"page": {"7"}}, &out)
		require.NoError(t, err)
		assert.Equal(t, "ok", out.Status)
	})

	t.Run("non-2xx becomes provider error with body excerpt", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(strings.Repeat("x", 2*MaxErrorBodyBytes)))
		}))
		defer server.Close()

		client := NewClient(ClientOptions{Provider: "network-B", BaseURL: server.URL})
		err := client.Get(context.Background(), "/", nil, nil)

		var perr *ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "network-B", perr.Provider)
		assert.Equal(t, http.StatusBadGateway, perr.StatusCode)
		assert.LessOrEqual(t, len(perr.Body), MaxErrorBodyBytes+3)
		assert.False(t, perr.Unauthorized())
	})

	t.Run("excerpt never splits a multi-byte character", func(t *testing.T) {
		// "é" is two bytes, so byte MaxErrorBodyBytes falls inside a character
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("x" + strings.Repeat("é", MaxErrorBodyBytes)))
		}))
		defer server.Close()

		client := NewClient(ClientOptions{Provider: "network-A", BaseURL: server.URL})
		err := client.Get(context.Background(), "/", nil, nil)

		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.True(t, utf8.ValidString(perr.Body))
		assert.True(t, strings.HasSuffix(perr.Body, "..."))
		assert.LessOrEqual(t, len(perr.Body), MaxErrorBodyBytes+len("..."))
	})

	t.Run("oversized response is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`"` + strings.Repeat("x", MaxResponseBytes) + `"`))
		}))
		defer server.Close()

		client := NewClient(ClientOptions{Provider: "network-A", BaseURL: server.URL})
		var out string
		err := client.Get(context.Background(), "/", nil, &out)

		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, err.Error(), "exceeds")
		assert.Empty(t, out)
	})

	t.Run("unauthorized is detectable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := NewClient(ClientOptions{Provider: "network-C", BaseURL: server.URL})
		err := client.Get(context.Background(), "/", nil, nil)
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("timeout becomes provider error", func(t *testing.T) {
		done := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-done:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(done)

		client := NewClient(ClientOptions{Provider: "network-D", BaseURL: server.URL, Timeout: 20 * time.Millisecond})
		err := client.Get(context.Background(), "/", nil, nil)

		var perr *ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Zero(t, perr.StatusCode)
		assert.Contains(t, err.Error(), "timed out")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("malformed response becomes provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}))
		defer server.Close()

		client := NewClient(ClientOptions{Provider: "network-A", BaseURL: server.URL})
		var out map[string]any
		err := client.Get(context.Background(), "/", nil, &out)

		var perr *ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Contains(t, err.Error(), "malformed response")
	})

	t.Run("unreachable host becomes provider error", func(t *testing.T) {
		client := NewClient(ClientOptions{Provider: "network-A", BaseURL: "http://127.0.0.1:1"})
		err := client.Get(context.Background(), "/", nil, nil)

		var perr *ProviderError
		assert.True(t, errors.As(err, &perr))
	})
}

func TestClientUsesLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	limiter := NewRateLimiter(20, time.Second) // 50ms spacing
	client := NewClient(ClientOptions{Provider: "network-A", BaseURL: server.URL, Limiter: limiter})
	assert.Same(t, limiter, client.Limiter())

	start := time.Now()
	for range 3 {
		require.NoError(t, client.Get(context.Background(), "/", nil, nil))
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
