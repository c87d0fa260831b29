package tolls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethanbaker/tollsync/pkg/tolls"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists providers, accounts, sync logs and mirrored transactions with gorm
type Store struct {
	db *gorm.DB
}

// NewStore creates a new toll store over an open connection and migrates its tables
func NewStore(db *gorm.DB) (*Store, error) {
	store := &Store{db: db}

	// Auto-migrate tables
	if err := db.AutoMigrate(&tolls.Provider{}, &tolls.Account{}, &tolls.SyncLog{}, &tolls.Transaction{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return store, nil
}

/** Providers */

func (s *Store) UpsertProviders(ctx context.Context, providers []tolls.Provider) error {
	if len(providers) == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&providers)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert providers: %w", result.Error)
	}
	return nil
}

func (s *Store) ListProviders(ctx context.Context) ([]tolls.Provider, error) {
	var providers []tolls.Provider
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&providers).Error; err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

func (s *Store) GetProvider(ctx context.Context, id string) (*tolls.Provider, error) {
	var provider tolls.Provider
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&provider).Error; err != nil {
		return nil, translate(err, "provider")
	}
	return &provider, nil
}

/** Accounts */

func (s *Store) CreateAccount(ctx context.Context, account *tolls.Account) error {
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return translate(err, "account")
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, companyID, id uint) (*tolls.Account, error) {
	var account tolls.Account
	result := s.db.WithContext(ctx).Where("id = ? AND company_id = ?", id, companyID).First(&account)
	if result.Error != nil {
		return nil, translate(result.Error, "account")
	}
	return &account, nil
}

func (s *Store) ListAccounts(ctx context.Context, companyID uint, limit, offset int) ([]tolls.Account, int64, error) {
	query := s.db.WithContext(ctx).Model(&tolls.Account{}).Where("company_id = ?", companyID).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	var accounts []tolls.Account
	if err := query.Order("id ASC").Limit(limit).Offset(offset).Find(&accounts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}

	return accounts, total, nil
}

func (s *Store) UpdateAccount(ctx context.Context, account *tolls.Account) error {
	result := s.db.WithContext(ctx).
		Model(&tolls.Account{}).
		Where("id = ? AND company_id = ?", account.ID, account.CompanyID).
		Updates(map[string]any{
			"account_number":   account.AccountNumber,
			"account_name":     account.AccountName,
			"credentials":      account.Credentials,
			"account_settings": account.AccountSettings,
			"account_status":   account.AccountStatus,
		})
	if result.Error != nil {
		return translate(result.Error, "account")
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, companyID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND company_id = ?", id, companyID).Delete(&tolls.Account{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete account: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("account %d: %w", id, tolls.ErrNotFound)
		}

		if err := tx.Where("account_id = ?", id).Delete(&tolls.SyncLog{}).Error; err != nil {
			return fmt.Errorf("failed to delete sync logs: %w", err)
		}
		return nil
	})
}

/** Sync state */

func (s *Store) BeginSync(ctx context.Context, companyID, id uint, staleBefore time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&tolls.Account{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Where("(sync_status <> ? OR sync_started_at IS NULL OR sync_started_at < ?)", tolls.SyncSyncing, staleBefore).
		Updates(map[string]any{
			"sync_status":        tolls.SyncSyncing,
			"sync_error_message": nil,
			"sync_started_at":    time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to begin sync: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) FinishSync(ctx context.Context, id uint, outcome tolls.SyncOutcome) error {
	updates := map[string]any{
		"sync_status":        outcome.Status,
		"sync_error_message": outcome.ErrorMessage,
		"sync_started_at":    nil,
	}
	if outcome.LastSyncAt != nil {
		updates["last_sync_at"] = *outcome.LastSyncAt
	}

	if err := s.db.WithContext(ctx).Model(&tolls.Account{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to finish sync: %w", err)
	}
	return nil
}

func (s *Store) AppendSyncLog(ctx context.Context, entry *tolls.SyncLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append sync log: %w", err)
	}
	return nil
}

func (s *Store) ListSyncLogs(ctx context.Context, companyID, accountID uint, limit int) ([]tolls.SyncLog, error) {
	var logs []tolls.SyncLog
	result := s.db.WithContext(ctx).
		Where("company_id = ? AND account_id = ?", companyID, accountID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&logs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", result.Error)
	}
	return logs, nil
}

/** Ledger */

func (s *Store) UpsertTransaction(ctx context.Context, tx *tolls.Transaction) (bool, error) {
	var existing tolls.Transaction
	result := s.db.WithContext(ctx).
		Where("company_id = ? AND provider_id = ? AND account_number = ? AND external_id = ?", tx.CompanyID, tx.ProviderID, tx.AccountNumber, tx.ExternalID).
		First(&existing)

	switch {
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
			return false, fmt.Errorf("failed to create transaction: %w", err)
		}
		return true, nil
	case result.Error != nil:
		return false, fmt.Errorf("failed to check existing transaction: %w", result.Error)
	}

	tx.ID = existing.ID
	err := s.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"transponder": tx.Transponder,
		"plaza":       tx.Plaza,
		"region":      tx.Region,
		"amount":      tx.Amount,
		"currency":    tx.Currency,
		"occurred_at": tx.OccurredAt,
	}).Error
	if err != nil {
		return false, fmt.Errorf("failed to update transaction: %w", err)
	}
	return false, nil
}

// translate maps gorm sentinel errors onto the domain sentinels
func translate(err error, entity string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", entity, tolls.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", entity, tolls.ErrDuplicate)
	default:
		return fmt.Errorf("%s query failed: %w", entity, err)
	}
}
