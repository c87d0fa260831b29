package tolls

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a row does not exist inside the caller's company scope
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a (company, provider, account number) triple already exists
	ErrDuplicate = errors.New("record already exists")
)

// SyncOutcome is the terminal state written when a sync attempt finishes
type SyncOutcome struct {
	Status       SyncStatus
	ErrorMessage *string    // nil clears the stored message
	LastSyncAt   *time.Time // nil leaves last_sync_at untouched
}

// StoreInterface defines the persistence operations behind the account sync controller
type StoreInterface interface {
	Ledger

	// UpsertProviders writes catalog rows, replacing existing rows with the same id
	UpsertProviders(ctx context.Context, providers []Provider) error
	ListProviders(ctx context.Context) ([]Provider, error)
	GetProvider(ctx context.Context, id string) (*Provider, error)

	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, companyID, id uint) (*Account, error)
	ListAccounts(ctx context.Context, companyID uint, limit, offset int) ([]Account, int64, error)

	// UpdateAccount saves the user editable fields of an account. Sync state is untouched.
	UpdateAccount(ctx context.Context, account *Account) error

	// DeleteAccount hard deletes an account together with its sync logs
	DeleteAccount(ctx context.Context, companyID, id uint) error

	// BeginSync moves an account to syncing unless a sync started after staleBefore is
	// still in flight. It reports false when another sync holds the account.
	BeginSync(ctx context.Context, companyID, id uint, staleBefore time.Time) (bool, error)

	// FinishSync writes the terminal sync state and clears sync_started_at
	FinishSync(ctx context.Context, id uint, outcome SyncOutcome) error

	AppendSyncLog(ctx context.Context, entry *SyncLog) error
	ListSyncLogs(ctx context.Context, companyID, accountID uint, limit int) ([]SyncLog, error)
}
