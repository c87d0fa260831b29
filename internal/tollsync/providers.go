package tollsync

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/ethanbaker/tollsync/pkg/tolls"
)

// ProviderDetails merges the static adapter metadata with the catalog row of a provider
type ProviderDetails struct {
	tolls.ProviderInfo
	Active    bool `json:"active"`
	Supported bool `json:"supported"` // An adapter exists for the provider
}

// ConnectionResult is the outcome of a provider connection test
type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListProviders returns every catalog provider merged with its adapter metadata
func (s *Service) ListProviders(ctx context.Context) ([]ProviderDetails, error) {
	rows, err := s.store.ListProviders(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]ProviderDetails, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for i := range rows {
		details = append(details, s.merge(rows[i].ID, &rows[i]))
		seen[rows[i].ID] = true
	}

	// Adapters without a catalog row are listed as inactive
	for _, id := range s.resolver.ListProviders() {
		if !seen[id] {
			details = append(details, s.merge(id, nil))
		}
	}

	slices.SortFunc(details, func(a, b ProviderDetails) int {
		return strings.Compare(a.ID, b.ID)
	})
	return details, nil
}

// GetProvider returns the merged details of one provider
func (s *Service) GetProvider(ctx context.Context, id string) (*ProviderDetails, error) {
	row, err := s.store.GetProvider(ctx, id)
	switch {
	case errors.Is(err, tolls.ErrNotFound):
		if _, infoErr := s.resolver.ProviderInfo(id); infoErr != nil {
			return nil, &NotFoundError{Resource: "toll provider", ID: id}
		}
		row = nil
	case err != nil:
		return nil, err
	}

	details := s.merge(id, row)
	return &details, nil
}

// TestProvider checks a provider with ad hoc credentials. Transport failures are
// reported in the result rather than returned.
func (s *Service) TestProvider(ctx context.Context, id string, credentials map[string]string) (*ConnectionResult, error) {
	adapter, err := s.resolver.Create(id, tolls.Config{Credentials: credentials})
	var unsupported *tolls.UnsupportedProviderError
	if errors.As(err, &unsupported) {
		return nil, &NotFoundError{Resource: "toll provider", ID: id}
	}
	if err != nil {
		return nil, err
	}

	ok, err := adapter.TestConnection(ctx)
	switch {
	case err != nil:
		return &ConnectionResult{Success: false, Message: "Connection failed: " + err.Error()}, nil
	case !ok:
		return &ConnectionResult{Success: false, Message: "Connection failed: credentials were rejected"}, nil
	default:
		return &ConnectionResult{Success: true, Message: "Connection successful"}, nil
	}
}

// merge overlays a catalog row on the static metadata of a provider
func (s *Service) merge(id string, row *tolls.Provider) ProviderDetails {
	details := ProviderDetails{ProviderInfo: tolls.ProviderInfo{ID: id}}

	if info, err := s.resolver.ProviderInfo(id); err == nil {
		details.ProviderInfo = info
		details.Supported = true
	}
	if row == nil {
		return details
	}

	details.Active = row.Active
	if row.Name != "" {
		details.Name = row.Name
	}
	if row.ProviderType != "" {
		details.ProviderType = row.ProviderType
	}
	if row.APIEndpoint != "" {
		details.APIEndpoint = row.APIEndpoint
	}
	if len(row.SupportedRegions) > 0 {
		details.SupportedRegions = row.SupportedRegions
	}
	if features := row.Features.Data(); len(features) > 0 {
		details.Features = features
	}

	return details
}
