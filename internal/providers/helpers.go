package providers

import (
	"net/http"
	"time"

	"github.com/ethanbaker/tollsync/pkg/tolls"
)

const (
	maxPages        = 100 // Upper bound on pages fetched per Transactions call
	defaultPageSize = 100
	defaultCurrency = "USD"
)

// adapterDeps are the per-instance collaborators the registry hands to a factory
type adapterDeps struct {
	ledger     tolls.Ledger
	limiter    *tolls.RateLimiter
	httpClient *http.Client
}

// pageSize returns the page size still needed to satisfy limit
func pageSize(limit, have int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	return min(defaultPageSize, limit-have)
}

func limitReached(limit, have int) bool {
	return limit > 0 && have >= limit
}

func truncate(txs []tolls.Transaction, limit int) []tolls.Transaction {
	if txs == nil {
		return []tolls.Transaction{}
	}
	if limit > 0 && len(txs) > limit {
		return txs[:limit]
	}
	return txs
}

// parseTime parses an RFC 3339 timestamp, returning the zero time on failure
func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(value string) *time.Time {
	if value == "" {
		return nil
	}
	t := parseTime(value)
	if t.IsZero() {
		return nil
	}
	return &t
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return defaultCurrency
	}
	return currency
}
