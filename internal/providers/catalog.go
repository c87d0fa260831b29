package providers

import (
	"maps"
	"slices"

	"github.com/ethanbaker/tollsync/pkg/tolls"
)

// Provider identifiers
const (
	NetworkA = "network-A"
	NetworkB = "network-B"
	NetworkC = "network-C"
	NetworkD = "network-D"
)

// Feature flags reported by adapters
const (
	FeatureTollCalculation = "toll_calculation"
	FeatureTransactions    = "transactions"
	FeatureAccountInfo     = "account_info"
	FeatureTransponders    = "transponder_management"
	FeatureRealTimeSync    = "real_time_sync"
	FeatureViolations      = "violations"
)

// Authentication mechanisms
const (
	AuthAPIKey            = "api_key"
	AuthBasic             = "basic"
	AuthJWT               = "jwt"
	AuthClientCredentials = "oauth2_client_credentials"
)

// catalog holds the static metadata of every supported provider
var catalog = map[string]tolls.ProviderInfo{
	NetworkA: {
		ID:               NetworkA,
		Name:             "Atlantic Toll Network",
		ProviderType:     "toll_network",
		APIEndpoint:      "https://api.atlantic-tolls.net",
		AuthMechanism:    AuthAPIKey,
		CredentialFields: []string{"api_key"},
		SupportedRegions: []string{"US-NE", "US-MA"},
		Features: map[string]bool{
			FeatureTollCalculation: true,
			FeatureTransactions:    true,
			FeatureAccountInfo:     true,
			FeatureTransponders:    true,
			FeatureRealTimeSync:    false,
			FeatureViolations:      false,
		},
	},
	NetworkB: {
		ID:               NetworkB,
		Name:             "Southern Express Tolls",
		ProviderType:     "toll_network",
		APIEndpoint:      "https://api.southern-express.net",
		AuthMechanism:    AuthBasic,
		CredentialFields: []string{"username", "password"},
		SupportedRegions: []string{"US-SE", "US-FL"},
		Features: map[string]bool{
			FeatureTollCalculation: true,
			FeatureTransactions:    true,
			FeatureAccountInfo:     true,
			FeatureTransponders:    false,
			FeatureRealTimeSync:    false,
			FeatureViolations:      true,
		},
	},
	NetworkC: {
		ID:               NetworkC,
		Name:             "Central Tollway Alliance",
		ProviderType:     "interoperable_hub",
		APIEndpoint:      "https://api.central-tollway.org",
		AuthMechanism:    AuthJWT,
		CredentialFields: []string{"client_id", "client_secret"},
		SupportedRegions: []string{"US-MW", "US-TX"},
		Features: map[string]bool{
			FeatureTollCalculation: true,
			FeatureTransactions:    true,
			FeatureAccountInfo:     true,
			FeatureTransponders:    true,
			FeatureRealTimeSync:    true,
			FeatureViolations:      false,
		},
	},
	NetworkD: {
		ID:               NetworkD,
		Name:             "Pacific Toll Connect",
		ProviderType:     "toll_network",
		APIEndpoint:      "https://api.pacific-toll.com",
		AuthMechanism:    AuthClientCredentials,
		CredentialFields: []string{"client_id", "client_secret"},
		SupportedRegions: []string{"US-W", "CA-BC"},
		Features: map[string]bool{
			FeatureTollCalculation: true,
			FeatureTransactions:    true,
			FeatureAccountInfo:     true,
			FeatureTransponders:    false,
			FeatureRealTimeSync:    true,
			FeatureViolations:      true,
		},
	},
}

// staticInfo exposes immutable catalog metadata to an adapter
type staticInfo struct {
	info tolls.ProviderInfo
}

func (s staticInfo) Name() string {
	return s.info.ID
}

func (s staticInfo) SupportedRegions() []string {
	return slices.Clone(s.info.SupportedRegions)
}

func (s staticInfo) Features() map[string]bool {
	return maps.Clone(s.info.Features)
}

// baseURL returns the configured base URL or the catalog endpoint
func (s staticInfo) baseURL(cfg tolls.Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return s.info.APIEndpoint
}

// cloneInfo returns a deep copy of a catalog entry
func cloneInfo(info tolls.ProviderInfo) tolls.ProviderInfo {
	info.CredentialFields = slices.Clone(info.CredentialFields)
	info.SupportedRegions = slices.Clone(info.SupportedRegions)
	info.Features = maps.Clone(info.Features)
	return info
}
