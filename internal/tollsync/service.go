// Package tollsync owns the lifecycle of company provider accounts: credential
// validation, the per-account sync state machine and the sync log audit trail.
package tollsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethanbaker/tollsync/pkg/tolls"
)

const (
	defaultListLimit  = 50
	maxListLimit      = 200
	defaultStaleAfter = 15 * time.Minute

	// terminalWriteTimeout bounds the state writes that run after the request context is gone
	terminalWriteTimeout = 10 * time.Second

	// terminalWriteAttempts is how often the error state write is tried per failure
	terminalWriteAttempts = 2
)

// Resolver builds adapters and exposes static provider metadata
type Resolver interface {
	Create(providerID string, cfg tolls.Config) (tolls.Adapter, error)
	ProviderInfo(providerID string) (tolls.ProviderInfo, error)
	ListProviders() []string
}

// Sealer encrypts credential maps at rest
type Sealer interface {
	Seal(credentials map[string]string) ([]byte, error)
	Open(sealed []byte) (map[string]string, error)
}

// Options configures a Service
type Options struct {
	Store      tolls.StoreInterface
	Resolver   Resolver
	Sealer     Sealer
	StaleAfter time.Duration // Age after which a syncing account may be taken over
}

// Service implements the account sync controller
type Service struct {
	store      tolls.StoreInterface
	resolver   Resolver
	sealer     Sealer
	staleAfter time.Duration
}

// NewService creates a new account sync service
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("tollsync: store is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("tollsync: resolver is required")
	}
	if opts.Sealer == nil {
		return nil, errors.New("tollsync: sealer is required")
	}

	staleAfter := opts.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &Service{
		store:      opts.Store,
		resolver:   opts.Resolver,
		sealer:     opts.Sealer,
		staleAfter: staleAfter,
	}, nil
}

/** Helpers */

// loadAccount fetches an account inside the company scope
func (s *Service) loadAccount(ctx context.Context, companyID, id uint) (*tolls.Account, error) {
	account, err := s.store.GetAccount(ctx, companyID, id)
	if errors.Is(err, tolls.ErrNotFound) {
		return nil, &NotFoundError{Resource: "account", ID: strconv.FormatUint(uint64(id), 10)}
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// adapterFor builds the adapter of an account from its stored credentials and settings
func (s *Service) adapterFor(account *tolls.Account) (tolls.Adapter, error) {
	credentials, err := s.sealer.Open(account.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials of account %d: %w", account.ID, err)
	}
	return s.resolve(account.ProviderID, adapterConfig(account.CompanyID, credentials, account.AccountSettings))
}

// resolve maps registry failures onto the service error types
func (s *Service) resolve(providerID string, cfg tolls.Config) (tolls.Adapter, error) {
	adapter, err := s.resolver.Create(providerID, cfg)
	var unsupported *tolls.UnsupportedProviderError
	if errors.As(err, &unsupported) {
		return nil, &ValidationError{Message: unsupported.Error()}
	}
	return adapter, err
}

// adapterConfig scopes the adapter to the company and reads the optional per-account
// overrides from the account settings. Values arrive as JSON numbers.
func adapterConfig(companyID uint, credentials map[string]string, settings map[string]any) tolls.Config {
	cfg := tolls.Config{CompanyID: companyID, Credentials: credentials}

	if v, ok := settings["base_url"].(string); ok {
		cfg.BaseURL = v
	}
	if v, ok := settings["timeout_ms"].(float64); ok && v > 0 {
		cfg.Timeout = time.Duration(v) * time.Millisecond
	}
	if v, ok := settings["requests_per_period"].(float64); ok && v > 0 {
		cfg.RequestsPerPeriod = int(v)
	}
	if v, ok := settings["period_ms"].(float64); ok && v > 0 {
		cfg.PeriodMillis = int(v)
	}

	return cfg
}

// normalizePage clamps list pagination to sane bounds
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset = max(offset, 0)
	return limit, offset
}

// terminalContext detaches from the request so terminal state is written even after
// the caller went away
func terminalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
}
