package tollsync

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	tolls_store "github.com/ethanbaker/tollsync/internal/stores/tolls"
	"github.com/ethanbaker/tollsync/pkg/secrets"
	"github.com/ethanbaker/tollsync/pkg/tolls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

/** Fakes */

type fakeAdapter struct {
	name     string
	features map[string]bool

	mutex       sync.Mutex
	valid       bool
	validateErr error
	checkErr    error
	syncResult  *tolls.SyncResult
	syncErr     error
	syncPanic   bool
	syncCalls   int
}

func (f *fakeAdapter) Name() string                   { return f.name }
func (f *fakeAdapter) AuthHeaders() map[string]string { return map[string]string{} }
func (f *fakeAdapter) SupportedRegions() []string     { return []string{"US-NE"} }
func (f *fakeAdapter) Features() map[string]bool      { return maps.Clone(f.features) }

func (f *fakeAdapter) TestConnection(context.Context) (bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.valid && f.checkErr == nil, f.checkErr
}

func (f *fakeAdapter) ValidateCredentials(context.Context) (bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.valid, f.validateErr
}

func (f *fakeAdapter) CalculateTolls(_ context.Context, req *tolls.TollRequest) (*tolls.TollQuote, error) {
	return &tolls.TollQuote{TotalCost: 12.5, Currency: "USD", TollPoints: []tolls.TollPoint{}}, nil
}

func (f *fakeAdapter) AccountInfo(_ context.Context, accountNumber string) (*tolls.AccountInfo, error) {
	return &tolls.AccountInfo{AccountNumber: accountNumber, Status: "active"}, nil
}

func (f *fakeAdapter) Transactions(context.Context, string, time.Time, time.Time, int) ([]tolls.Transaction, error) {
	return []tolls.Transaction{}, nil
}

func (f *fakeAdapter) SyncAccountData(context.Context, string) (*tolls.SyncResult, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.syncCalls++
	if f.syncPanic {
		panic("adapter exploded")
	}
	return f.syncResult, f.syncErr
}

func (f *fakeAdapter) set(fn func(f *fakeAdapter)) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	fn(f)
}

type fakeResolver struct {
	mutex    sync.Mutex
	adapters map[string]*fakeAdapter
	configs  []tolls.Config
}

func (r *fakeResolver) Create(providerID string, cfg tolls.Config) (tolls.Adapter, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	adapter, ok := r.adapters[providerID]
	if !ok {
		return nil, &tolls.UnsupportedProviderError{ID: providerID}
	}
	r.configs = append(r.configs, cfg)
	return adapter, nil
}

func (r *fakeResolver) ProviderInfo(providerID string) (tolls.ProviderInfo, error) {
	adapter, ok := r.adapters[providerID]
	if !ok {
		return tolls.ProviderInfo{}, &tolls.UnsupportedProviderError{ID: providerID}
	}
	return tolls.ProviderInfo{
		ID:               providerID,
		Name:             "Static " + providerID,
		ProviderType:     "toll_network",
		SupportedRegions: adapter.SupportedRegions(),
		Features:         adapter.Features(),
	}, nil
}

func (r *fakeResolver) ListProviders() []string {
	return slices.Sorted(maps.Keys(r.adapters))
}

func (r *fakeResolver) lastConfig() tolls.Config {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.configs[len(r.configs)-1]
}

// flakyStore fails the first failures FinishSync calls
type flakyStore struct {
	*tolls_store.InMemoryStore

	mutex    sync.Mutex
	failures int
	calls    int
}

func (s *flakyStore) FinishSync(ctx context.Context, id uint, outcome tolls.SyncOutcome) error {
	s.mutex.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mutex.Unlock()

	if fail {
		return errors.New("transient write failure")
	}
	return s.InMemoryStore.FinishSync(ctx, id, outcome)
}

type harness struct {
	service  *Service
	store    *tolls_store.InMemoryStore
	adapter  *fakeAdapter
	resolver *fakeResolver
	cipher   *secrets.Cipher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	adapter := &fakeAdapter{
		name:       "network-A",
		features:   map[string]bool{featureTollCalculation: true},
		valid:      true,
		syncResult: &tolls.SyncResult{Success: true, RecordsProcessed: 3, RecordsCreated: 2, RecordsUpdated: 1, Errors: []string{}},
	}
	noQuotes := &fakeAdapter{name: "network-B", features: map[string]bool{}, valid: true}
	resolver := &fakeResolver{adapters: map[string]*fakeAdapter{"network-A": adapter, "network-B": noQuotes}}

	store := tolls_store.NewInMemoryStore()
	require.NoError(t, store.UpsertProviders(context.Background(), []tolls.Provider{
		{ID: "network-A", Name: "Atlantic", Active: true},
		{ID: "network-B", Name: "Southern", Active: true},
		{ID: "network-X", Name: "Retired", Active: false},
	}))

	cipher, err := secrets.NewCipher("test-key")
	require.NoError(t, err)

	service, err := NewService(Options{Store: store, Resolver: resolver, Sealer: cipher})
	require.NoError(t, err)

	return &harness{service: service, store: store, adapter: adapter, resolver: resolver, cipher: cipher}
}

func (h *harness) createAccount(t *testing.T, companyID uint, number string) *tolls.Account {
	t.Helper()

	account, err := h.service.CreateAccount(context.Background(), companyID, CreateAccountInput{
		ProviderID:    "network-A",
		AccountNumber: number,
		AccountName:   "Fleet",
		Credentials:   map[string]string{"api_key": "abc"},
	})
	require.NoError(t, err)
	return account
}

/** Tests */

func TestNewService(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected credentials create no row", func(t *testing.T) {
		h := newHarness(t)
		h.adapter.set(func(f *fakeAdapter) { f.valid = false })

		_, err := h.service.CreateAccount(ctx, 1, CreateAccountInput{
			ProviderID:    "network-A",
			AccountNumber: "ACC-100",
			Credentials:   map[string]string{"key": "abc"},
		})

		var credErr *CredentialError
		require.ErrorAs(t, err, &credErr)
		assert.Equal(t, "network-A", credErr.ProviderID)

		_, total, err := h.service.ListAccounts(ctx, 1, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("valid credentials are sealed and account is pending", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-100")

		assert.Equal(t, tolls.SyncPending, account.SyncStatus)
		assert.Equal(t, tolls.AccountActive, account.AccountStatus)
		assert.NotContains(t, string(account.Credentials), "abc")

		opened, err := h.cipher.Open(account.Credentials)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"api_key": "abc"}, opened)
	})

	t.Run("account without credentials skips validation", func(t *testing.T) {
		h := newHarness(t)
		h.adapter.set(func(f *fakeAdapter) { f.valid = false })

		account, err := h.service.CreateAccount(ctx, 1, CreateAccountInput{ProviderID: "network-A", AccountNumber: "ACC-1"})
		require.NoError(t, err)
		assert.False(t, account.HasCredentials())
	})

	t.Run("account settings feed the adapter config", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.service.CreateAccount(ctx, 1, CreateAccountInput{
			ProviderID:      "network-A",
			AccountNumber:   "ACC-1",
			Credentials:     map[string]string{"api_key": "abc"},
			AccountSettings: map[string]any{"requests_per_period": float64(5), "period_ms": float64(1000), "timeout_ms": float64(2500)},
		})
		require.NoError(t, err)

		cfg := h.resolver.lastConfig()
		assert.Equal(t, 5, cfg.RequestsPerPeriod)
		assert.Equal(t, 1000, cfg.PeriodMillis)
		assert.Equal(t, 2500*time.Millisecond, cfg.Timeout)
	})

	t.Run("duplicate account", func(t *testing.T) {
		h := newHarness(t)
		h.createAccount(t, 1, "ACC-1")

		_, err := h.service.CreateAccount(ctx, 1, CreateAccountInput{ProviderID: "network-A", AccountNumber: "ACC-1"})
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, duplicateAccountMessage, validation.Message)
	})

	t.Run("input validation", func(t *testing.T) {
		h := newHarness(t)

		tests := []struct {
			name  string
			input CreateAccountInput
		}{
			{"missing provider", CreateAccountInput{AccountNumber: "A"}},
			{"missing number", CreateAccountInput{ProviderID: "network-A", AccountNumber: "  "}},
			{"unknown provider", CreateAccountInput{ProviderID: "network-Z", AccountNumber: "A"}},
			{"inactive provider", CreateAccountInput{ProviderID: "network-X", AccountNumber: "A"}},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				_, err := h.service.CreateAccount(ctx, 1, test.input)
				var validation *ValidationError
				assert.ErrorAs(t, err, &validation)
			})
		}
	})

	t.Run("transport failure during validation", func(t *testing.T) {
		h := newHarness(t)
		h.adapter.set(func(f *fakeAdapter) {
			f.validateErr = &tolls.ProviderError{Provider: "network-A", StatusCode: 503}
		})

		_, err := h.service.CreateAccount(ctx, 1, CreateAccountInput{
			ProviderID:    "network-A",
			AccountNumber: "ACC-1",
			Credentials:   map[string]string{"api_key": "abc"},
		})
		var perr *tolls.ProviderError
		assert.ErrorAs(t, err, &perr)
	})
}

func TestUpdateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected credentials only warn", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-1")
		h.adapter.set(func(f *fakeAdapter) { f.valid = false })

		name := "Renamed"
		updated, err := h.service.UpdateAccount(ctx, 1, account.ID, UpdateAccountInput{
			AccountName: &name,
			Credentials: map[string]string{"api_key": "rotated"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.AccountName)

		opened, err := h.cipher.Open(updated.Credentials)
		require.NoError(t, err)
		assert.Equal(t, "rotated", opened["api_key"])
	})

	t.Run("empty credentials remove them", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-1")

		updated, err := h.service.UpdateAccount(ctx, 1, account.ID, UpdateAccountInput{Credentials: map[string]string{}})
		require.NoError(t, err)
		assert.False(t, updated.HasCredentials())
	})

	t.Run("invalid status", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-1")

		status := tolls.AccountStatus("archived")
		_, err := h.service.UpdateAccount(ctx, 1, account.ID, UpdateAccountInput{AccountStatus: &status})
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("other company", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-1")

		_, err := h.service.UpdateAccount(ctx, 2, account.ID, UpdateAccountInput{})
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestSyncAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("requires credentials", func(t *testing.T) {
		h := newHarness(t)
		account, err := h.service.CreateAccount(ctx, 1, CreateAccountInput{ProviderID: "network-A", AccountNumber: "ACC-1"})
		require.NoError(t, err)

		_, err = h.service.SyncAccount(ctx, 1, account.ID)
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, NoCredentialsMessage, validation.Message)
		assert.Zero(t, h.adapter.syncCalls)
	})

	t.Run("success", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-1")

		result, err := h.service.SyncAccount(ctx, 1, account.ID)
		require.NoError(t, err)
		assert.True(t, result.Success)

		got, err := h.service.GetAccount(ctx, 1, account.ID)
		require.NoError(t, err)
		assert.Equal(t, tolls.SyncSuccess, got.SyncStatus)
		assert.Nil(t, got.SyncErrorMessage)
		assert.NotNil(t, got.LastSyncAt)

		logs, err := h.service.ListSyncLogs(ctx, 1, account.ID, 0)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, tolls.SyncLogCompleted, logs[0].Status)
		assert.Equal(t, 3, logs[0].RecordsProcessed)
		assert.Equal(t, SyncTypeManual, logs[0].SyncType)
	})

	t.Run("partial failure", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-1")
		h.adapter.set(func(f *fakeAdapter) {
			f.syncResult = &tolls.SyncResult{Success: false, RecordsProcessed: 2, Errors: []string{"tx-1: bad", "tx-2: worse"}}
		})

		result, err := h.service.SyncAccount(ctx, 1, account.ID)
		require.NoError(t, err)
		assert.False(t, result.Success)

		got, err := h.service.GetAccount(ctx, 1, account.ID)
		require.NoError(t, err)
		assert.Equal(t, tolls.SyncError, got.SyncStatus)
		require.NotNil(t, got.SyncErrorMessage)
		assert.Equal(t, "tx-1: bad; tx-2: worse", *got.SyncErrorMessage)

		logs, err := h.service.ListSyncLogs(ctx, 1, account.ID, 0)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, tolls.SyncLogFailed, logs[0].Status)
		assert.Equal(t, "tx-1: bad; tx-2: worse", *logs[0].ErrorMessage)
	})

	t.Run("transport failure is persisted then returned", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-1")
		timeout := &tolls.ProviderError{Provider: "network-A", Err: fmt.Errorf("request timed out after 30s: %w", context.DeadlineExceeded)}
		h.adapter.set(func(f *fakeAdapter) { f.syncErr = timeout })

		_, err := h.service.SyncAccount(ctx, 1, account.ID)
		var perr *tolls.ProviderError
		require.ErrorAs(t, err, &perr)

		got, err := h.service.GetAccount(ctx, 1, account.ID)
		require.NoError(t, err)
		assert.Equal(t, tolls.SyncError, got.SyncStatus)
		require.NotNil(t, got.SyncErrorMessage)
		assert.Contains(t, *got.SyncErrorMessage, "timed out")

		logs, err := h.service.ListSyncLogs(ctx, 1, account.ID, 0)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, tolls.SyncLogFailed, logs[0].Status)
	})

	t.Run("cancelled request still writes terminal state", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-1")
		h.adapter.set(func(f *fakeAdapter) { f.syncErr = &tolls.ProviderError{Provider: "network-A", Err: context.Canceled} })

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := h.service.SyncAccount(cancelled, 1, account.ID)
		assert.Error(t, err)

		got, err := h.service.GetAccount(ctx, 1, account.ID)
		require.NoError(t, err)
		assert.Equal(t, tolls.SyncError, got.SyncStatus)
	})

	t.Run("concurrent sync is a conflict", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-1")

		started, err := h.store.BeginSync(ctx, 1, account.ID, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		require.True(t, started)

		_, err = h.service.SyncAccount(ctx, 1, account.ID)
		var conflict *ConflictError
		assert.ErrorAs(t, err, &conflict)
		assert.Zero(t, h.adapter.syncCalls)
	})

	t.Run("panicking adapter does not leave the account syncing", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-1")
		h.adapter.set(func(f *fakeAdapter) { f.syncPanic = true })

		assert.Panics(t, func() {
			_, _ = h.service.SyncAccount(ctx, 1, account.ID)
		})

		got, err := h.service.GetAccount(ctx, 1, account.ID)
		require.NoError(t, err)
		assert.Equal(t, tolls.SyncError, got.SyncStatus)
	})

	t.Run("status is never left syncing", func(t *testing.T) {
		h := newHarness(t)
		account := h.createAccount(t, 1, "ACC-1")

		outcomes := []func(f *fakeAdapter){
			func(f *fakeAdapter) { f.syncResult, f.syncErr = &tolls.SyncResult{Success: true, Errors: []string{}}, nil },
			func(f *fakeAdapter) { f.syncResult, f.syncErr = nil, &tolls.ProviderError{Provider: "network-A", StatusCode: 500} },
			func(f *fakeAdapter) { f.syncResult, f.syncErr = &tolls.SyncResult{Errors: []string{"x"}}, nil },
			func(f *fakeAdapter) { f.syncResult, f.syncErr = nil, errors.New("connection reset") },
			func(f *fakeAdapter) { f.syncResult, f.syncErr = &tolls.SyncResult{Success: true, Errors: []string{}}, nil },
		}

		for i, outcome := range outcomes {
			h.adapter.set(outcome)
			_, _ = h.service.SyncAccount(ctx, 1, account.ID)

			got, err := h.service.GetAccount(ctx, 1, account.ID)
			require.NoError(t, err)
			assert.NotEqual(t, tolls.SyncSyncing, got.SyncStatus, "attempt %d", i)
			assert.True(t, got.SyncStatus.Valid())
		}

		logs, err := h.service.ListSyncLogs(ctx, 1, account.ID, 0)
		require.NoError(t, err)
		assert.Len(t, logs, len(outcomes))
	})

	t.Run("unknown account", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.service.SyncAccount(ctx, 1, 999)
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestSyncAccountTerminalWriteFailures(t *testing.T) {
	ctx := context.Background()

	// withFlakyStore rebuilds the harness service on a store whose first FinishSync calls fail
	withFlakyStore := func(t *testing.T, failures int) (*harness, *flakyStore) {
		h := newHarness(t)
		store := &flakyStore{InMemoryStore: h.store, failures: failures}

		service, err := NewService(Options{Store: store, Resolver: h.resolver, Sealer: h.cipher})
		require.NoError(t, err)
		h.service = service
		return h, store
	}

	tests := []struct {
		name     string
		failures int
		syncErr  error
		message  string
	}{
		{name: "success write fails once", failures: 1, message: "failed to record sync result"},
		{name: "success write and first retry fail", failures: 2, message: "failed to record sync result"},
		{name: "every write of the failure path fails once more", failures: 3, message: "failed to record sync result"},
		{name: "error write fails once", failures: 1, syncErr: errors.New("connection reset"), message: "connection reset"},
		{name: "error write and its retry fail", failures: 2, syncErr: errors.New("connection reset"), message: "connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := withFlakyStore(t, tt.failures)
			account := h.createAccount(t, 1, "ACC-1")
			if tt.syncErr != nil {
				h.adapter.set(func(f *fakeAdapter) { f.syncErr = tt.syncErr })
			}

			_, err := h.service.SyncAccount(ctx, 1, account.ID)
			assert.Error(t, err)

			got, err := h.service.GetAccount(ctx, 1, account.ID)
			require.NoError(t, err)
			assert.Equal(t, tolls.SyncError, got.SyncStatus)
			require.NotNil(t, got.SyncErrorMessage)
			assert.Contains(t, *got.SyncErrorMessage, tt.message)
			assert.Greater(t, store.calls, tt.failures)

			logs, err := h.service.ListSyncLogs(ctx, 1, account.ID, 0)
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, tolls.SyncLogFailed, logs[0].Status)
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.createAccount(t, 1, "ACC-1")

	var notFound *NotFoundError
	assert.ErrorAs(t, h.service.DeleteAccount(ctx, 2, account.ID), &notFound)

	require.NoError(t, h.service.DeleteAccount(ctx, 1, account.ID))
	_, err := h.service.GetAccount(ctx, 1, account.ID)
	assert.ErrorAs(t, err, &notFound)
}

func TestListAccounts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	for i := range 3 {
		h.createAccount(t, 1, fmt.Sprintf("ACC-%d", i))
	}
	h.createAccount(t, 2, "OTHER")

	accounts, total, err := h.service.ListAccounts(ctx, 1, 2, -5)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, accounts, 2)

	accounts, _, err = h.service.ListAccounts(ctx, 1, 0, 0)
	require.NoError(t, err)
	assert.Len(t, accounts, 3)
}

func TestProviders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	t.Run("list merges rows and static metadata", func(t *testing.T) {
		providers, err := h.service.ListProviders(ctx)
		require.NoError(t, err)
		require.Len(t, providers, 3)

		assert.Equal(t, "network-A", providers[0].ID)
		assert.Equal(t, "Atlantic", providers[0].Name)
		assert.True(t, providers[0].Supported)
		assert.True(t, providers[0].Active)
		assert.Equal(t, []string{"US-NE"}, providers[0].SupportedRegions)

		assert.Equal(t, "network-X", providers[2].ID)
		assert.False(t, providers[2].Supported)
		assert.False(t, providers[2].Active)
	})

	t.Run("get", func(t *testing.T) {
		details, err := h.service.GetProvider(ctx, "network-B")
		require.NoError(t, err)
		assert.Equal(t, "Southern", details.Name)

		_, err = h.service.GetProvider(ctx, "network-Z")
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("test connection", func(t *testing.T) {
		result, err := h.service.TestProvider(ctx, "network-A", map[string]string{"api_key": "abc"})
		require.NoError(t, err)
		assert.True(t, result.Success)

		h.adapter.set(func(f *fakeAdapter) { f.valid = false })
		result, err = h.service.TestProvider(ctx, "network-A", nil)
		require.NoError(t, err)
		assert.False(t, result.Success)

		h.adapter.set(func(f *fakeAdapter) { f.checkErr = &tolls.ProviderError{Provider: "network-A", StatusCode: 502} })
		result, err = h.service.TestProvider(ctx, "network-A", nil)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "502")

		_, err = h.service.TestProvider(ctx, "network-Z", nil)
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestRemoteOperations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.createAccount(t, 1, "ACC-1")

	info, err := h.service.AccountInfo(ctx, 1, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACC-1", info.AccountNumber)

	quote, err := h.service.CalculateTolls(ctx, 1, account.ID, &tolls.TollRequest{})
	require.NoError(t, err)
	assert.Equal(t, 12.5, quote.TotalCost)

	_, err = h.service.CalculateTolls(ctx, 1, account.ID, nil)
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	t.Run("provider without quotes", func(t *testing.T) {
		other, err := h.service.CreateAccount(ctx, 1, CreateAccountInput{
			ProviderID:    "network-B",
			AccountNumber: "B-1",
			Credentials:   map[string]string{"username": "u", "password": "p"},
		})
		require.NoError(t, err)

		_, err = h.service.CalculateTolls(ctx, 1, other.ID, &tolls.TollRequest{})
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	})
}

func TestAdapterConfig(t *testing.T) {
	cfg := adapterConfig(7, map[string]string{"k": "v"}, datatypes.JSONMap{
		"base_url":            "http://localhost:9000",
		"requests_per_period": float64(-1),
		"period_ms":           "not a number",
	})

	assert.Equal(t, "http://localhost:9000", cfg.BaseURL)
	assert.Zero(t, cfg.RequestsPerPeriod)
	assert.Zero(t, cfg.PeriodMillis)
	assert.Zero(t, cfg.Timeout)
	assert.Equal(t, "v", cfg.Credential("k"))
	assert.EqualValues(t, 7, cfg.CompanyID)
}
