package tollsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ethanbaker/tollsync/pkg/tolls"
	"gorm.io/datatypes"
)

const duplicateAccountMessage = "An account with this number already exists for this toll provider"

// CreateAccountInput holds the fields of a new provider account
type CreateAccountInput struct {
	ProviderID      string
	AccountNumber   string
	AccountName     string
	Credentials     map[string]string
	AccountSettings map[string]any
}

// UpdateAccountInput holds the fields to change on an account. Nil fields are left as is;
// a non-nil empty Credentials map removes the stored credentials.
type UpdateAccountInput struct {
	AccountNumber   *string
	AccountName     *string
	Credentials     map[string]string
	AccountSettings map[string]any
	AccountStatus   *tolls.AccountStatus
}

// CreateAccount validates the provider and credentials and persists a new account in
// the pending sync state. Rejected credentials block the creation.
func (s *Service) CreateAccount(ctx context.Context, companyID uint, input CreateAccountInput) (*tolls.Account, error) {
	input.ProviderID = strings.TrimSpace(input.ProviderID)
	input.AccountNumber = strings.TrimSpace(input.AccountNumber)
	if input.ProviderID == "" {
		return nil, &ValidationError{Message: "toll_provider_id is required"}
	}
	if input.AccountNumber == "" {
		return nil, &ValidationError{Message: "account_number is required"}
	}

	provider, err := s.store.GetProvider(ctx, input.ProviderID)
	if errors.Is(err, tolls.ErrNotFound) {
		return nil, &ValidationError{Message: (&tolls.UnsupportedProviderError{ID: input.ProviderID}).Error()}
	}
	if err != nil {
		return nil, err
	}
	if !provider.Active {
		return nil, &ValidationError{Message: fmt.Sprintf("toll provider '%s' is not active", provider.ID)}
	}

	if len(input.Credentials) > 0 {
		adapter, err := s.resolve(input.ProviderID, adapterConfig(companyID, input.Credentials, input.AccountSettings))
		if err != nil {
			return nil, err
		}

		valid, err := adapter.ValidateCredentials(ctx)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, &CredentialError{ProviderID: input.ProviderID}
		}
	}

	sealed, err := s.sealer.Seal(input.Credentials)
	if err != nil {
		return nil, err
	}

	account := &tolls.Account{
		CompanyID:       companyID,
		ProviderID:      input.ProviderID,
		AccountNumber:   input.AccountNumber,
		AccountName:     input.AccountName,
		Credentials:     sealed,
		AccountSettings: datatypes.JSONMap(input.AccountSettings),
		AccountStatus:   tolls.AccountActive,
		SyncStatus:      tolls.SyncPending,
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, tolls.ErrDuplicate) {
			return nil, &ValidationError{Message: duplicateAccountMessage}
		}
		return nil, err
	}

	log.Printf("[TOLLSYNC]: Created account %d for company %d on %s", account.ID, companyID, account.ProviderID)
	return account, nil
}

// UpdateAccount applies the given changes. Replacement credentials are re-validated but
// a rejection only logs a warning, so an operator can correct them later.
func (s *Service) UpdateAccount(ctx context.Context, companyID, id uint, input UpdateAccountInput) (*tolls.Account, error) {
	account, err := s.loadAccount(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	if input.AccountNumber != nil {
		number := strings.TrimSpace(*input.AccountNumber)
		if number == "" {
			return nil, &ValidationError{Message: "account_number must not be empty"}
		}
		account.AccountNumber = number
	}
	if input.AccountName != nil {
		account.AccountName = *input.AccountName
	}
	if input.AccountSettings != nil {
		account.AccountSettings = datatypes.JSONMap(input.AccountSettings)
	}
	if input.AccountStatus != nil {
		if !input.AccountStatus.Valid() {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid account_status '%s'", *input.AccountStatus)}
		}
		account.AccountStatus = *input.AccountStatus
	}

	if input.Credentials != nil {
		if len(input.Credentials) > 0 {
			s.warnOnRejectedCredentials(ctx, account, input.Credentials)
		}

		sealed, err := s.sealer.Seal(input.Credentials)
		if err != nil {
			return nil, err
		}
		account.Credentials = sealed
	}

	if err := s.store.UpdateAccount(ctx, account); err != nil {
		if errors.Is(err, tolls.ErrDuplicate) {
			return nil, &ValidationError{Message: duplicateAccountMessage}
		}
		return nil, err
	}

	return s.loadAccount(ctx, companyID, id)
}

// warnOnRejectedCredentials validates replacement credentials without failing the update
func (s *Service) warnOnRejectedCredentials(ctx context.Context, account *tolls.Account, credentials map[string]string) {
	adapter, err := s.resolve(account.ProviderID, adapterConfig(account.CompanyID, credentials, account.AccountSettings))
	if err != nil {
		log.Printf("[TOLLSYNC]: Warning, could not build adapter to validate credentials of account %d: %v", account.ID, err)
		return
	}

	valid, err := adapter.ValidateCredentials(ctx)
	switch {
	case err != nil:
		log.Printf("[TOLLSYNC]: Warning, credential validation for account %d failed: %v", account.ID, err)
	case !valid:
		log.Printf("[TOLLSYNC]: Warning, %s rejected the new credentials of account %d, saving anyway", account.ProviderID, account.ID)
	}
}

// DeleteAccount hard deletes an account and its sync logs
func (s *Service) DeleteAccount(ctx context.Context, companyID, id uint) error {
	err := s.store.DeleteAccount(ctx, companyID, id)
	if errors.Is(err, tolls.ErrNotFound) {
		return &NotFoundError{Resource: "account", ID: strconv.FormatUint(uint64(id), 10)}
	}
	if err != nil {
		return err
	}

	log.Printf("[TOLLSYNC]: Deleted account %d of company %d", id, companyID)
	return nil
}

// GetAccount returns one account of the company
func (s *Service) GetAccount(ctx context.Context, companyID, id uint) (*tolls.Account, error) {
	return s.loadAccount(ctx, companyID, id)
}

// ListAccounts returns a page of the company's accounts and the total count
func (s *Service) ListAccounts(ctx context.Context, companyID uint, limit, offset int) ([]tolls.Account, int64, error) {
	limit, offset = normalizePage(limit, offset)
	return s.store.ListAccounts(ctx, companyID, limit, offset)
}
