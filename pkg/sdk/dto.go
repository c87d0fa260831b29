package sdk

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethanbaker/tollsync/pkg/outbox"
	"github.com/ethanbaker/tollsync/pkg/tolls"
)

// ApiResponse represents the standard response envelope
type ApiResponse[T any] struct {
	Success bool   `json:"success"`         // Whether the request succeeded
	Code    int    `json:"-"`               // HTTP status code
	Message string `json:"message"`         // Human-readable message
	Data    T      `json:"data,omitempty"`  // Optional data field for successful responses
	Error   string `json:"error,omitempty"` // Optional error detail for failed responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a JSON string
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WithCode overrides the status code, e.g. 201 on creation
func (r ApiResponse[T]) WithCode(code int) ApiResponse[T] {
	r.Code = code
	return r
}

func NewSuccess(message string) ApiResponse[any] {
	return ApiResponse[any]{
		Success: true,
		Code:    http.StatusOK,
		Message: message,
	}
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Success: true,
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code int, message string, err error) ApiResponse[any] {
	res := ApiResponse[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

/** Providers */

// Provider is the merged catalog and adapter view of a toll provider
type Provider struct {
	tolls.ProviderInfo
	Active    bool `json:"active"`
	Supported bool `json:"supported"`
}

// ProviderList is the response of GET /api/providers
type ProviderList struct {
	Providers []Provider `json:"providers"`
}

// TestProviderRequest carries ad hoc credentials for a connection test
type TestProviderRequest struct {
	Credentials map[string]string `json:"credentials"`
}

// TestProviderResponse reports the outcome of a connection test
type TestProviderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

/** Accounts */

// Account is the API view of a provider account. It never carries credentials.
type Account struct {
	ID               uint                `json:"id"`
	CompanyID        uint                `json:"company_id"`
	TollProviderID   string              `json:"toll_provider_id"`
	AccountNumber    string              `json:"account_number"`
	AccountName      string              `json:"account_name"`
	AccountSettings  map[string]any      `json:"account_settings"`
	AccountStatus    tolls.AccountStatus `json:"account_status"`
	SyncStatus       tolls.SyncStatus    `json:"sync_status"`
	SyncErrorMessage *string             `json:"sync_error_message"`
	LastSyncAt       *time.Time          `json:"last_sync_at"`
	HasCredentials   bool                `json:"has_credentials"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NewAccount strips an account row down to its API view
func NewAccount(account *tolls.Account) Account {
	return Account{
		ID:               account.ID,
		CompanyID:        account.CompanyID,
		TollProviderID:   account.ProviderID,
		AccountNumber:    account.AccountNumber,
		AccountName:      account.AccountName,
		AccountSettings:  account.AccountSettings,
		AccountStatus:    account.AccountStatus,
		SyncStatus:       account.SyncStatus,
		SyncErrorMessage: account.SyncErrorMessage,
		LastSyncAt:       account.LastSyncAt,
		HasCredentials:   account.HasCredentials(),
		CreatedAt:        account.CreatedAt,
		UpdatedAt:        account.UpdatedAt,
	}
}

// AccountList is a page of accounts
type AccountList struct {
	Accounts []Account `json:"accounts"`
	Total    int64     `json:"total"`
}

// CreateAccountRequest represents the request body for creating an account
type CreateAccountRequest struct {
	TollProviderID  string            `json:"toll_provider_id" binding:"required"`
	AccountNumber   string            `json:"account_number" binding:"required"`
	AccountName     string            `json:"account_name"`
	Credentials     map[string]string `json:"credentials"`
	AccountSettings map[string]any    `json:"account_settings"`
}

// UpdateAccountRequest represents the request body for updating an account. Omitted
// fields are left unchanged and an empty credentials object removes the credentials.
type UpdateAccountRequest struct {
	AccountNumber   *string              `json:"account_number"`
	AccountName     *string              `json:"account_name"`
	Credentials     map[string]string    `json:"credentials"`
	AccountSettings map[string]any       `json:"account_settings"`
	AccountStatus   *tolls.AccountStatus `json:"account_status"`
}

// SyncAccountResponse is the response of a manual account sync
type SyncAccountResponse struct {
	Success    bool              `json:"success"`
	SyncResult *tolls.SyncResult `json:"syncResult"`
}

// SyncLogList is the recent sync history of an account
type SyncLogList struct {
	Logs []tolls.SyncLog `json:"logs"`
}

/** Sync queue */

// EnqueueRequest represents the request body for queueing a mutation
type EnqueueRequest struct {
	TableName string         `json:"table_name" binding:"required"`
	Action    outbox.Action  `json:"action" binding:"required"`
	Payload   map[string]any `json:"payload"`
}

// ProcessQueueResponse is the outcome of one queue drain
type ProcessQueueResponse struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
	Failed    int  `json:"failed"`
}

// QueueStatus holds the per-status item counts of the caller's company
type QueueStatus = outbox.Counts
