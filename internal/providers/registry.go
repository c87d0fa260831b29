package providers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/ethanbaker/tollsync/pkg/tolls"
)

// factory builds an adapter for one provider
type factory func(cfg tolls.Config, deps adapterDeps) tolls.Adapter

var factories = map[string]factory{
	NetworkA: newNetworkA,
	NetworkB: newNetworkB,
	NetworkC: newNetworkC,
	NetworkD: newNetworkD,
}

// RegistryOptions configures a Registry
type RegistryOptions struct {
	Ledger     tolls.Ledger      // Local store adapters mirror transactions into
	HTTPClient *http.Client      // Optional base HTTP client shared by new adapters
	Defaults   tolls.Config      // Timeout and rate limit defaults for configs leaving them unset
	Endpoints  map[string]string // Per-provider API endpoint overrides
}

// Registry builds adapters and caches them per (provider, configuration) pair so
// that repeated calls with the same credentials share one rate limiter
type Registry struct {
	ledger     tolls.Ledger
	httpClient *http.Client
	defaults   tolls.Config
	endpoints  map[string]string

	mutex sync.Mutex
	cache map[string]tolls.Adapter
}

// NewRegistry creates a new provider registry
func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{
		ledger:     opts.Ledger,
		httpClient: opts.HTTPClient,
		defaults:   opts.Defaults,
		endpoints:  maps.Clone(opts.Endpoints),
		cache:      make(map[string]tolls.Adapter),
	}
}

// Create returns a cached adapter for the provider and configuration, building one if needed
func (r *Registry) Create(providerID string, cfg tolls.Config) (tolls.Adapter, error) {
	build, ok := factories[providerID]
	if !ok {
		return nil, &tolls.UnsupportedProviderError{ID: providerID}
	}

	cfg = r.withDefaults(providerID, cfg)
	key, err := cacheKey(providerID, cfg)
	if err != nil {
		return nil, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if adapter, exists := r.cache[key]; exists {
		return adapter, nil
	}

	adapter := build(cfg, adapterDeps{
		ledger:     tolls.ScopeLedger(r.ledger, cfg.CompanyID),
		limiter:    tolls.NewRateLimiter(cfg.RequestsPerPeriod, time.Duration(cfg.PeriodMillis)*time.Millisecond),
		httpClient: r.httpClient,
	})
	r.cache[key] = adapter

	log.Printf("[PROVIDERS]: Created adapter for %s (%d cached)", providerID, len(r.cache))
	return adapter, nil
}

// ListProviders returns the identifiers of all supported providers
func (r *Registry) ListProviders() []string {
	ids := make([]string, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ProviderInfo returns the static metadata of a provider without building an adapter
func (r *Registry) ProviderInfo(providerID string) (tolls.ProviderInfo, error) {
	info, ok := catalog[providerID]
	if !ok {
		return tolls.ProviderInfo{}, &tolls.UnsupportedProviderError{ID: providerID}
	}
	info = cloneInfo(info)
	if endpoint := r.endpoints[providerID]; endpoint != "" {
		info.APIEndpoint = endpoint
	}
	return info, nil
}

// Supports reports whether an adapter exists for the provider
func (r *Registry) Supports(providerID string) bool {
	_, ok := factories[providerID]
	return ok
}

// ClearCache drops every cached adapter, forcing fresh instances on the next Create
func (r *Registry) ClearCache() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.cache = make(map[string]tolls.Adapter)
	log.Println("[PROVIDERS]: Adapter cache cleared")
}

// withDefaults fills unset timeout, rate limit and endpoint fields from the registry options
func (r *Registry) withDefaults(providerID string, cfg tolls.Config) tolls.Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = r.defaults.Timeout
	}
	if cfg.RequestsPerPeriod <= 0 && cfg.PeriodMillis <= 0 {
		cfg.RequestsPerPeriod = r.defaults.RequestsPerPeriod
		cfg.PeriodMillis = r.defaults.PeriodMillis
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = r.endpoints[providerID]
	}
	return cfg
}

// cacheKey hashes the serialized configuration so credentials never appear in map keys.
// encoding/json sorts map keys, which makes the serialization deterministic.
func cacheKey(providerID string, cfg tolls.Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to serialize adapter config: %w", err)
	}
	sum := sha256.Sum256(data)
	return providerID + ":" + hex.EncodeToString(sum[:]), nil
}
