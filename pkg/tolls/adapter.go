package tolls

import (
	"context"
	"time"
)

// Adapter is the capability contract every toll network integration implements.
// The check methods return (false, nil) when the provider rejects the credentials
// and a *ProviderError for any transport level failure.
type Adapter interface {
	// Name returns the provider identifier the adapter was built for
	Name() string

	// AuthHeaders builds the authentication headers from the stored configuration.
	// It never performs I/O.
	AuthHeaders() map[string]string

	// TestConnection is a lightweight, read-only reachability and credential check
	TestConnection(ctx context.Context) (bool, error)

	// ValidateCredentials checks the credentials before they are persisted
	ValidateCredentials(ctx context.Context) (bool, error)

	// CalculateTolls returns a quote for a route without side effects
	CalculateTolls(ctx context.Context, req *TollRequest) (*TollQuote, error)

	// AccountInfo looks up a remote account
	AccountInfo(ctx context.Context, accountNumber string) (*AccountInfo, error)

	// Transactions lists toll charges for an account between start and end
	Transactions(ctx context.Context, accountNumber string, start, end time.Time, limit int) ([]Transaction, error)

	// SyncAccountData mirrors remote account data into the local ledger.
	// It never writes to the remote provider.
	SyncAccountData(ctx context.Context, accountNumber string) (*SyncResult, error)

	SupportedRegions() []string
	Features() map[string]bool
}

// Ledger is the local store adapters write mirrored transactions to
type Ledger interface {
	// UpsertTransaction inserts or updates a transaction keyed on company, provider, account and external id
	UpsertTransaction(ctx context.Context, tx *Transaction) (created bool, err error)
}

// ScopeLedger returns a ledger that writes every transaction under companyID
func ScopeLedger(ledger Ledger, companyID uint) Ledger {
	if ledger == nil {
		return nil
	}
	return scopedLedger{ledger: ledger, companyID: companyID}
}

type scopedLedger struct {
	ledger    Ledger
	companyID uint
}

func (l scopedLedger) UpsertTransaction(ctx context.Context, tx *Transaction) (bool, error) {
	tx.CompanyID = l.companyID
	return l.ledger.UpsertTransaction(ctx, tx)
}

// Config is the per-instance adapter configuration
type Config struct {
	CompanyID         uint              `json:"company_id,omitempty"` // Scope of the mirrored transactions
	Credentials       map[string]string `json:"credentials,omitempty"`
	BaseURL           string            `json:"base_url,omitempty"`
	Timeout           time.Duration     `json:"timeout,omitempty"`
	RequestsPerPeriod int               `json:"requests_per_period,omitempty"`
	PeriodMillis      int               `json:"period_millis,omitempty"`
}

// Credential returns a credential value or an empty string
func (c Config) Credential(key string) string {
	if c.Credentials == nil {
		return ""
	}
	return c.Credentials[key]
}

// TimeoutOrDefault returns the configured timeout or DefaultTimeout if unset
func (c Config) TimeoutOrDefault() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// ProviderInfo is the static metadata of a provider, available without an adapter instance
type ProviderInfo struct {
	ID               string          `json:"id" yaml:"id"`
	Name             string          `json:"name" yaml:"name"`
	ProviderType     string          `json:"provider_type" yaml:"provider_type"`
	APIEndpoint      string          `json:"api_endpoint" yaml:"api_endpoint"`
	AuthMechanism    string          `json:"auth_mechanism" yaml:"auth_mechanism"`
	CredentialFields []string        `json:"credential_fields" yaml:"credential_fields"`
	SupportedRegions []string        `json:"supported_regions" yaml:"supported_regions"`
	Features         map[string]bool `json:"features" yaml:"features"`
}

/** Contract payloads */

// Location is a point on a route
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// TollRequest describes a route to quote
type TollRequest struct {
	Origin        Location   `json:"origin" binding:"required"`
	Destination   Location   `json:"destination" binding:"required"`
	Waypoints     []Location `json:"waypoints,omitempty"`
	VehicleClass  string     `json:"vehicle_class,omitempty"`
	Axles         int        `json:"axles,omitempty"`
	GrossWeightKg float64    `json:"gross_weight_kg,omitempty"`
	DepartureAt   *time.Time `json:"departure_at,omitempty"`
}

// TollPoint is one charge along a quoted route
type TollPoint struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
	Cost     float64  `json:"cost"`
	Region   string   `json:"region,omitempty"`
}

// Route summarizes a quoted route
type Route struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
	Polyline        string  `json:"polyline,omitempty"`
}

// TollQuote is the result of a toll calculation
type TollQuote struct {
	TotalCost  float64     `json:"total_cost"`
	Currency   string      `json:"currency"`
	TollPoints []TollPoint `json:"toll_points"`
	Route      Route       `json:"route"`
}

// AccountInfo is the remote view of a provider account
type AccountInfo struct {
	AccountNumber string     `json:"account_number"`
	AccountName   string     `json:"account_name"`
	Status        string     `json:"status"`
	Balance       float64    `json:"balance"`
	Currency      string     `json:"currency"`
	Transponders  []string   `json:"transponders,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// SyncResult reports what SyncAccountData mirrored
type SyncResult struct {
	Success          bool     `json:"success"`
	RecordsProcessed int      `json:"records_processed"`
	RecordsCreated   int      `json:"records_created"`
	RecordsUpdated   int      `json:"records_updated"`
	Errors           []string `json:"errors"`
	SyncDurationMs   int64    `json:"sync_duration_ms"`
}
