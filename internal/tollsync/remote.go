package tollsync

import (
	"context"
	"fmt"

	"github.com/ethanbaker/tollsync/pkg/tolls"
)

// feature flag an adapter must report before quotes are requested from it
const featureTollCalculation = "toll_calculation"

// remoteAdapter loads an account and builds its adapter, requiring stored credentials
func (s *Service) remoteAdapter(ctx context.Context, companyID, id uint) (*tolls.Account, tolls.Adapter, error) {
	account, err := s.loadAccount(ctx, companyID, id)
	if err != nil {
		return nil, nil, err
	}
	if !account.HasCredentials() {
		return nil, nil, &ValidationError{Message: NoCredentialsMessage}
	}

	adapter, err := s.adapterFor(account)
	if err != nil {
		return nil, nil, err
	}
	return account, adapter, nil
}

// AccountInfo looks up the remote view of an account at its provider
func (s *Service) AccountInfo(ctx context.Context, companyID, id uint) (*tolls.AccountInfo, error) {
	account, adapter, err := s.remoteAdapter(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return adapter.AccountInfo(ctx, account.AccountNumber)
}

// CalculateTolls quotes a route through the provider of an account
func (s *Service) CalculateTolls(ctx context.Context, companyID, id uint, req *tolls.TollRequest) (*tolls.TollQuote, error) {
	if req == nil {
		return nil, &ValidationError{Message: "route is required"}
	}

	_, adapter, err := s.remoteAdapter(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !adapter.Features()[featureTollCalculation] {
		return nil, &ValidationError{Message: fmt.Sprintf("toll provider '%s' does not support toll calculation", adapter.Name())}
	}

	return adapter.CalculateTolls(ctx, req)
}
