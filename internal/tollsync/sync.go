package tollsync

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/ethanbaker/tollsync/pkg/tolls"
	"github.com/google/uuid"
)

// SyncTypeManual marks syncs triggered through the API
const SyncTypeManual = "manual"

const defaultSyncLogLimit = 50

// SyncAccount runs one sync attempt for an account. The account always leaves the
// syncing state before SyncAccount returns: adapter failures are written to the account
// and a failed sync log before the error is returned.
func (s *Service) SyncAccount(ctx context.Context, companyID, id uint) (*tolls.SyncResult, error) {
	account, err := s.loadAccount(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !account.HasCredentials() {
		return nil, &ValidationError{Message: NoCredentialsMessage}
	}

	adapter, err := s.adapterFor(account)
	if err != nil {
		return nil, err
	}

	started, err := s.store.BeginSync(ctx, companyID, id, time.Now().Add(-s.staleAfter))
	if err != nil {
		return nil, err
	}
	if !started {
		return nil, &ConflictError{Message: "A sync is already in progress for this account"}
	}

	attempt := &syncAttempt{service: s, account: account, started: time.Now()}
	defer attempt.abortIfUnfinished(ctx)

	result, err := adapter.SyncAccountData(ctx, account.AccountNumber)
	if err != nil {
		attempt.fail(ctx, err.Error(), nil)
		return nil, err
	}

	if !result.Success {
		message := strings.Join(result.Errors, "; ")
		if message == "" {
			message = "sync reported failure without details"
		}
		attempt.fail(ctx, message, result)
		return result, nil
	}

	if err := attempt.complete(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListSyncLogs returns the most recent sync logs of an account, newest first
func (s *Service) ListSyncLogs(ctx context.Context, companyID, id uint, limit int) ([]tolls.SyncLog, error) {
	if _, err := s.loadAccount(ctx, companyID, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSyncLogLimit
	}
	return s.store.ListSyncLogs(ctx, companyID, id, min(limit, maxListLimit))
}

// syncAttempt writes the terminal state of one sync
type syncAttempt struct {
	service  *Service
	account  *tolls.Account
	started  time.Time
	message  string // Last failure message
	logged   bool   // A sync log was appended
	finished bool   // The terminal state was written to the store
}

func (a *syncAttempt) complete(ctx context.Context, result *tolls.SyncResult) error {
	ctx, cancel := terminalContext(ctx)
	defer cancel()

	now := time.Now()
	err := a.service.store.FinishSync(ctx, a.account.ID, tolls.SyncOutcome{Status: tolls.SyncSuccess, LastSyncAt: &now})
	if err != nil {
		log.Printf("[TOLLSYNC]: Failed to record successful sync of account %d: %v", a.account.ID, err)
		a.fail(ctx, "failed to record sync result: "+err.Error(), result)
		return err
	}
	a.finished = true

	a.appendLog(ctx, tolls.SyncLogCompleted, nil, result)
	log.Printf("[TOLLSYNC]: Account %d synced, %d records processed", a.account.ID, result.RecordsProcessed)
	return nil
}

// fail appends the failed sync log once and writes the error state, retrying the write
func (a *syncAttempt) fail(ctx context.Context, message string, result *tolls.SyncResult) {
	ctx, cancel := terminalContext(ctx)
	defer cancel()

	a.message = message
	if !a.logged {
		a.appendLog(ctx, tolls.SyncLogFailed, &message, result)
	}

	outcome := tolls.SyncOutcome{Status: tolls.SyncError, ErrorMessage: &message}
	for range terminalWriteAttempts {
		if err := a.service.store.FinishSync(ctx, a.account.ID, outcome); err != nil {
			log.Printf("[TOLLSYNC]: Failed to record failed sync of account %d: %v", a.account.ID, err)
			continue
		}
		a.finished = true
		break
	}

	log.Printf("[TOLLSYNC]: Sync of account %d failed: %s", a.account.ID, message)
}

// abortIfUnfinished resolves the syncing state if no terminal write succeeded
func (a *syncAttempt) abortIfUnfinished(ctx context.Context) {
	if a.finished {
		return
	}

	message := a.message
	if message == "" {
		message = "sync aborted before completion"
	}
	a.fail(ctx, message, nil)
}

func (a *syncAttempt) appendLog(ctx context.Context, status tolls.SyncLogStatus, message *string, result *tolls.SyncResult) {
	entry := &tolls.SyncLog{
		ID:           uuid.New(),
		AccountID:    a.account.ID,
		CompanyID:    a.account.CompanyID,
		SyncType:     SyncTypeManual,
		Status:       status,
		ErrorMessage: message,
		DurationMs:   time.Since(a.started).Milliseconds(),
		CompletedAt:  time.Now(),
	}
	if result != nil {
		entry.RecordsProcessed = result.RecordsProcessed
		entry.RecordsCreated = result.RecordsCreated
		entry.RecordsUpdated = result.RecordsUpdated
	}

	a.logged = true
	if err := a.service.store.AppendSyncLog(ctx, entry); err != nil {
		log.Printf("[TOLLSYNC]: Failed to append sync log for account %d: %v", a.account.ID, err)
	}
}
