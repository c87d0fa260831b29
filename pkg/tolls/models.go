package tolls

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SyncStatus tracks the outcome of the most recent sync attempt of an account
type SyncStatus string

const (
	SyncPending SyncStatus = "pending" // Never synced
	SyncSyncing SyncStatus = "syncing" // Sync in flight
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// Valid reports whether the status is one of the known sync states
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncPending, SyncSyncing, SyncSuccess, SyncError:
		return true
	default:
		return false
	}
}

// AccountStatus is the business lifecycle of an account, independent of syncing
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountInactive  AccountStatus = "inactive"
	AccountSuspended AccountStatus = "suspended"
)

// Valid reports whether the status is one of the known account states
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountInactive, AccountSuspended:
		return true
	default:
		return false
	}
}

// SyncLogStatus is the outcome recorded on a sync log row
type SyncLogStatus string

const (
	SyncLogCompleted SyncLogStatus = "completed"
	SyncLogFailed    SyncLogStatus = "failed"
)

// Provider is a catalog row for one toll network
type Provider struct {
	ID               string                              `json:"id" gorm:"column:id;primaryKey;size:64"`
	CreatedAt        time.Time                           `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        time.Time                           `json:"updated_at" gorm:"column:updated_at"`
	Name             string                              `json:"name" gorm:"column:name;not null;size:255"`
	ProviderType     string                              `json:"provider_type" gorm:"column:provider_type;size:64"`
	APIEndpoint      string                              `json:"api_endpoint" gorm:"column:api_endpoint;size:500"`
	SupportedRegions datatypes.JSONSlice[string]         `json:"supported_regions" gorm:"column:supported_regions"`
	Features         datatypes.JSONType[map[string]bool] `json:"features" gorm:"column:features"`
	Active           bool                                `json:"active" gorm:"column:active"`
}

// TableName sets the table name for GORM
func (Provider) TableName() string {
	return "toll_providers"
}

// Account links a company to a provider account
type Account struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	CompanyID       uint              `json:"company_id" gorm:"column:company_id;not null;uniqueIndex:idx_company_provider_account,priority:1"`
	ProviderID      string            `json:"toll_provider_id" gorm:"column:toll_provider_id;not null;size:64;uniqueIndex:idx_company_provider_account,priority:2"`
	AccountNumber   string            `json:"account_number" gorm:"column:account_number;not null;size:128;uniqueIndex:idx_company_provider_account,priority:3"`
	AccountName     string            `json:"account_name" gorm:"column:account_name;size:255"`
	Credentials     []byte            `json:"-" gorm:"column:credentials"` // Encrypted at rest, never serialized
	AccountSettings datatypes.JSONMap `json:"account_settings" gorm:"column:account_settings"`
	AccountStatus   AccountStatus     `json:"account_status" gorm:"column:account_status;size:32;default:active"`

	SyncStatus       SyncStatus `json:"sync_status" gorm:"column:sync_status;size:32;default:pending;index"`
	SyncErrorMessage *string    `json:"sync_error_message" gorm:"column:sync_error_message;type:text"`
	SyncStartedAt    *time.Time `json:"sync_started_at" gorm:"column:sync_started_at"`
	LastSyncAt       *time.Time `json:"last_sync_at" gorm:"column:last_sync_at"`
}

// TableName sets the table name for GORM
func (Account) TableName() string {
	return "company_provider_accounts"
}

// HasCredentials reports whether an encrypted credential blob is stored
func (a *Account) HasCredentials() bool {
	return len(a.Credentials) > 0
}

// SyncLog is an append-only record of one sync attempt
type SyncLog struct {
	ID               uuid.UUID     `json:"id" gorm:"column:id;type:char(36);primaryKey"`
	AccountID        uint          `json:"account_id" gorm:"column:account_id;not null;index"`
	CompanyID        uint          `json:"company_id" gorm:"column:company_id;not null;index"`
	SyncType         string        `json:"sync_type" gorm:"column:sync_type;size:32"`
	Status           SyncLogStatus `json:"status" gorm:"column:status;size:32"`
	RecordsProcessed int           `json:"records_processed" gorm:"column:records_processed"`
	RecordsCreated   int           `json:"records_created" gorm:"column:records_created"`
	RecordsUpdated   int           `json:"records_updated" gorm:"column:records_updated"`
	ErrorMessage     *string       `json:"error_message" gorm:"column:error_message;type:text"`
	DurationMs       int64         `json:"duration_ms" gorm:"column:duration_ms"`
	CompletedAt      time.Time     `json:"completed_at" gorm:"column:completed_at"`
}

// TableName sets the table name for GORM
func (SyncLog) TableName() string {
	return "toll_sync_logs"
}

// Transaction is a toll charge reported by a provider and mirrored locally
type Transaction struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	CompanyID     uint      `json:"company_id" gorm:"column:company_id;not null;uniqueIndex:idx_company_provider_account_external,priority:1"`
	ProviderID    string    `json:"provider_id" gorm:"column:provider_id;not null;size:64;uniqueIndex:idx_company_provider_account_external,priority:2"`
	AccountNumber string    `json:"account_number" gorm:"column:account_number;not null;size:128;uniqueIndex:idx_company_provider_account_external,priority:3"`
	ExternalID    string    `json:"external_id" gorm:"column:external_id;not null;size:128;uniqueIndex:idx_company_provider_account_external,priority:4"`
	Transponder   string    `json:"transponder" gorm:"column:transponder;size:64"`
	Plaza         string    `json:"plaza" gorm:"column:plaza;size:255"`
	Region        string    `json:"region" gorm:"column:region;size:16"`
	Amount        float64   `json:"amount" gorm:"column:amount"`
	Currency      string    `json:"currency" gorm:"column:currency;size:3"`
	OccurredAt    time.Time `json:"occurred_at" gorm:"column:occurred_at;index"`
}

// TableName sets the table name for GORM
func (Transaction) TableName() string {
	return "toll_transactions"
}
