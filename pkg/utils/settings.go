package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Settings are the typed process settings derived from a Config
type Settings struct {
	Port        string
	APIKey      string
	CORSOrigins []string

	// DatabaseDSN is empty when MYSQL_DATABASE is unset, selecting the in-memory stores
	DatabaseDSN string

	CredentialsKey string

	ProviderTimeout           time.Duration
	ProviderRequestsPerPeriod int
	ProviderPeriodMillis      int
	ProviderCatalogPath       string
	ProviderEndpoints         map[string]string

	SyncTargetTables    []string
	SyncStaleAfter      time.Duration
	OutboxDrainSchedule string
}

// LoadSettings reads the process settings from the config, applying defaults
func LoadSettings(cfg *Config) (*Settings, error) {
	settings := &Settings{
		Port:                      cfg.GetWithDefault("API_PORT", "8080"),
		APIKey:                    cfg.Get("API_KEY"),
		CORSOrigins:               cfg.GetList("CORS_ALLOWED_ORIGINS"),
		CredentialsKey:            cfg.Get("CREDENTIALS_KEY"),
		ProviderTimeout:           cfg.GetDurationWithDefault("PROVIDER_TIMEOUT", 30*time.Second),
		ProviderRequestsPerPeriod: cfg.GetIntWithDefault("PROVIDER_REQUESTS_PER_PERIOD", 10),
		ProviderPeriodMillis:      cfg.GetIntWithDefault("PROVIDER_PERIOD_MS", 1000),
		ProviderCatalogPath:       cfg.Get("PROVIDER_CATALOG_PATH"),
		SyncTargetTables:          cfg.GetList("SYNC_TARGET_TABLES"),
		SyncStaleAfter:            cfg.GetDurationWithDefault("SYNC_STALE_AFTER", 15*time.Minute),
		OutboxDrainSchedule:       cfg.Get("OUTBOX_DRAIN_SCHEDULE"),
	}

	if len(settings.CORSOrigins) == 0 {
		settings.CORSOrigins = []string{"*"}
	}

	if settings.APIKey == "" {
		return nil, fmt.Errorf("API_KEY must be set")
	}
	if settings.CredentialsKey == "" {
		return nil, fmt.Errorf("CREDENTIALS_KEY must be set")
	}

	endpoints, err := parseEndpoints(cfg.GetList("PROVIDER_ENDPOINTS"))
	if err != nil {
		return nil, err
	}
	settings.ProviderEndpoints = endpoints

	// Create MySQL config, starting from the driver defaults
	dbConfig := mysql.NewConfig()
	dbConfig.User = cfg.Get("MYSQL_USER")
	dbConfig.Passwd = cfg.Get("MYSQL_ROOT_PASSWORD")
	dbConfig.Net = "tcp"
	dbConfig.Addr = fmt.Sprintf("%s:%s", cfg.GetWithDefault("MYSQL_HOST", "localhost"), cfg.GetWithDefault("MYSQL_PORT", "3306"))
	dbConfig.DBName = cfg.Get("MYSQL_DATABASE")
	dbConfig.ParseTime = true
	dbConfig.ClientFoundRows = true
	dbConfig.Params = map[string]string{"charset": "utf8mb4"}

	if dbConfig.DBName != "" {
		settings.DatabaseDSN = dbConfig.FormatDSN()
	}

	return settings, nil
}

// parseEndpoints reads "provider=url" pairs
func parseEndpoints(pairs []string) (map[string]string, error) {
	endpoints := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		id, endpoint, found := strings.Cut(pair, "=")
		if !found || strings.TrimSpace(id) == "" || strings.TrimSpace(endpoint) == "" {
			return nil, fmt.Errorf("invalid PROVIDER_ENDPOINTS entry '%s', expected provider=url", pair)
		}
		endpoints[strings.TrimSpace(id)] = strings.TrimSpace(endpoint)
	}
	return endpoints, nil
}
