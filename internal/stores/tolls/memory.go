package tolls

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ethanbaker/tollsync/pkg/tolls"
)

// InMemoryStore provides an in-memory implementation of StoreInterface, used when no
// database is configured and in tests
type InMemoryStore struct {
	mutex        sync.RWMutex
	providers    map[string]tolls.Provider
	accounts     map[uint]tolls.Account
	logs         []tolls.SyncLog
	transactions map[string]tolls.Transaction
	nextID       uint
}

// NewInMemoryStore creates a new in-memory toll store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		providers:    make(map[string]tolls.Provider),
		accounts:     make(map[uint]tolls.Account),
		transactions: make(map[string]tolls.Transaction),
	}
}

/** Providers */

func (s *InMemoryStore) UpsertProviders(_ context.Context, providers []tolls.Provider) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	for _, p := range providers {
		if existing, ok := s.providers[p.ID]; ok {
			p.CreatedAt = existing.CreatedAt
		} else {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		s.providers[p.ID] = p
	}
	return nil
}

func (s *InMemoryStore) ListProviders(_ context.Context) ([]tolls.Provider, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	providers := slices.Collect(maps.Values(s.providers))
	sort.Slice(providers, func(i, j int) bool { return providers[i].ID < providers[j].ID })
	return providers, nil
}

func (s *InMemoryStore) GetProvider(_ context.Context, id string) (*tolls.Provider, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	provider, ok := s.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider: %w", tolls.ErrNotFound)
	}
	return &provider, nil
}

/** Accounts */

func (s *InMemoryStore) CreateAccount(_ context.Context, account *tolls.Account) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.duplicate(account) {
		return fmt.Errorf("account: %w", tolls.ErrDuplicate)
	}

	s.nextID++
	now := time.Now()
	account.ID = s.nextID
	account.CreatedAt = now
	account.UpdatedAt = now
	if account.SyncStatus == "" {
		account.SyncStatus = tolls.SyncPending
	}
	if account.AccountStatus == "" {
		account.AccountStatus = tolls.AccountActive
	}

	s.accounts[account.ID] = copyAccount(*account)
	return nil
}

func (s *InMemoryStore) GetAccount(_ context.Context, companyID, id uint) (*tolls.Account, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	account, ok := s.accounts[id]
	if !ok || account.CompanyID != companyID {
		return nil, fmt.Errorf("account: %w", tolls.ErrNotFound)
	}

	account = copyAccount(account)
	return &account, nil
}

func (s *InMemoryStore) ListAccounts(_ context.Context, companyID uint, limit, offset int) ([]tolls.Account, int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var matching []tolls.Account
	for _, account := range s.accounts {
		if account.CompanyID == companyID {
			matching = append(matching, copyAccount(account))
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].ID < matching[j].ID })

	total := int64(len(matching))
	if offset >= len(matching) {
		return []tolls.Account{}, total, nil
	}
	matching = matching[offset:]
	if limit > 0 && len(matching) > limit {
		matching = matching[:limit]
	}

	return matching, total, nil
}

func (s *InMemoryStore) UpdateAccount(_ context.Context, account *tolls.Account) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing, ok := s.accounts[account.ID]
	if !ok || existing.CompanyID != account.CompanyID {
		return fmt.Errorf("account: %w", tolls.ErrNotFound)
	}
	if s.duplicate(account) {
		return fmt.Errorf("account: %w", tolls.ErrDuplicate)
	}

	existing.AccountNumber = account.AccountNumber
	existing.AccountName = account.AccountName
	existing.Credentials = bytes.Clone(account.Credentials)
	existing.AccountSettings = maps.Clone(account.AccountSettings)
	existing.AccountStatus = account.AccountStatus
	existing.UpdatedAt = time.Now()

	s.accounts[account.ID] = existing
	return nil
}

func (s *InMemoryStore) DeleteAccount(_ context.Context, companyID, id uint) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	account, ok := s.accounts[id]
	if !ok || account.CompanyID != companyID {
		return fmt.Errorf("account %d: %w", id, tolls.ErrNotFound)
	}

	delete(s.accounts, id)
	s.logs = slices.DeleteFunc(s.logs, func(l tolls.SyncLog) bool { return l.AccountID == id })
	return nil
}

/** Sync state */

func (s *InMemoryStore) BeginSync(_ context.Context, companyID, id uint, staleBefore time.Time) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	account, ok := s.accounts[id]
	if !ok || account.CompanyID != companyID {
		return false, nil
	}

	inFlight := account.SyncStatus == tolls.SyncSyncing &&
		account.SyncStartedAt != nil &&
		!account.SyncStartedAt.Before(staleBefore)
	if inFlight {
		return false, nil
	}

	now := time.Now()
	account.SyncStatus = tolls.SyncSyncing
	account.SyncErrorMessage = nil
	account.SyncStartedAt = &now
	s.accounts[id] = account
	return true, nil
}

func (s *InMemoryStore) FinishSync(_ context.Context, id uint, outcome tolls.SyncOutcome) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("account %d: %w", id, tolls.ErrNotFound)
	}

	account.SyncStatus = outcome.Status
	account.SyncErrorMessage = copyString(outcome.ErrorMessage)
	account.SyncStartedAt = nil
	if outcome.LastSyncAt != nil {
		at := *outcome.LastSyncAt
		account.LastSyncAt = &at
	}
	s.accounts[id] = account
	return nil
}

func (s *InMemoryStore) AppendSyncLog(_ context.Context, entry *tolls.SyncLog) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	log := *entry
	log.ErrorMessage = copyString(entry.ErrorMessage)
	s.logs = append(s.logs, log)
	return nil
}

func (s *InMemoryStore) ListSyncLogs(_ context.Context, companyID, accountID uint, limit int) ([]tolls.SyncLog, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	logs := []tolls.SyncLog{}
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].CompanyID == companyID && s.logs[i].AccountID == accountID {
			logs = append(logs, s.logs[i])
		}
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CompletedAt.After(logs[j].CompletedAt) })

	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

/** Ledger */

func (s *InMemoryStore) UpsertTransaction(_ context.Context, tx *tolls.Transaction) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := fmt.Sprintf("%d\x00%s\x00%s\x00%s", tx.CompanyID, tx.ProviderID, tx.AccountNumber, tx.ExternalID)
	existing, exists := s.transactions[key]

	now := time.Now()
	if exists {
		tx.ID = existing.ID
		tx.CreatedAt = existing.CreatedAt
	} else {
		tx.ID = uint(len(s.transactions) + 1)
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now

	s.transactions[key] = *tx
	return !exists, nil
}

// duplicate reports whether another account already uses the same unique triple
func (s *InMemoryStore) duplicate(account *tolls.Account) bool {
	for id, other := range s.accounts {
		if id != account.ID &&
			other.CompanyID == account.CompanyID &&
			other.ProviderID == account.ProviderID &&
			other.AccountNumber == account.AccountNumber {
			return true
		}
	}
	return false
}

func copyAccount(account tolls.Account) tolls.Account {
	account.Credentials = bytes.Clone(account.Credentials)
	account.AccountSettings = maps.Clone(account.AccountSettings)
	account.SyncErrorMessage = copyString(account.SyncErrorMessage)
	if account.SyncStartedAt != nil {
		at := *account.SyncStartedAt
		account.SyncStartedAt = &at
	}
	if account.LastSyncAt != nil {
		at := *account.LastSyncAt
		account.LastSyncAt = &at
	}
	return account
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
