package tolls

import (
	"context"
	"fmt"
	"time"
)

// DefaultSyncWindow is how far back SyncAccountData mirrors transactions
const DefaultSyncWindow = 30 * 24 * time.Hour

// MirrorTransactions upserts fetched transactions into the ledger. A failed record
// is reported in the result errors and does not stop the remaining records.
func MirrorTransactions(ctx context.Context, ledger Ledger, txs []Transaction, started time.Time) *SyncResult {
	result := &SyncResult{Errors: []string{}}

	for i := range txs {
		result.RecordsProcessed++

		created, err := ledger.UpsertTransaction(ctx, &txs[i])
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("transaction %s: %v", txs[i].ExternalID, err))
			continue
		}

		if created {
			result.RecordsCreated++
		} else {
			result.RecordsUpdated++
		}
	}

	result.Success = len(result.Errors) == 0
	result.SyncDurationMs = time.Since(started).Milliseconds()
	return result
}

// CheckResult converts the error of a connection or credential check into the
// (ok, err) shape of TestConnection and ValidateCredentials
func CheckResult(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if IsUnauthorized(err) {
		return false, nil
	}
	return false, err
}
