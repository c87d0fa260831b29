package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ethanbaker/tollsync/internal/providers"
	"github.com/ethanbaker/tollsync/internal/stores"
	outbox_store "github.com/ethanbaker/tollsync/internal/stores/outbox"
	tolls_store "github.com/ethanbaker/tollsync/internal/stores/tolls"
	"github.com/ethanbaker/tollsync/internal/tollsync"
	"github.com/ethanbaker/tollsync/pkg/outbox"
	"github.com/ethanbaker/tollsync/pkg/secrets"
	"github.com/ethanbaker/tollsync/pkg/tolls"
	"github.com/ethanbaker/tollsync/pkg/utils"
	"github.com/robfig/cron/v3"
)

// Store backends reported by the health module
const (
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

// Dependencies are the services the API modules run on
type Dependencies struct {
	Backend  string
	Accounts *tollsync.Service
	Queue    *outbox.Processor
}

// backing groups the stores a process runs on
type backing struct {
	name    string
	tolls   tolls.StoreInterface
	queue   outbox.Store
	applier outbox.Applier
}

// openStores selects MySQL when a database is configured and the in-memory stores otherwise
func openStores(settings *utils.Settings) (*backing, error) {
	if settings.DatabaseDSN == "" {
		log.Println("[API-MAIN]: Warning, MYSQL_DATABASE not set, using in-memory stores (data will not persist)")
		return &backing{
			name:    BackendMemory,
			tolls:   tolls_store.NewInMemoryStore(),
			queue:   outbox_store.NewInMemoryStore(),
			applier: outbox_store.NewInMemoryApplier(),
		}, nil
	}

	db, err := stores.Open(settings.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	tollStore, err := tolls_store.NewStore(db)
	if err != nil {
		return nil, err
	}
	queueStore, err := outbox_store.NewStore(db)
	if err != nil {
		return nil, err
	}

	return &backing{
		name:    BackendMySQL,
		tolls:   tollStore,
		queue:   queueStore,
		applier: outbox_store.NewApplier(db),
	}, nil
}

// Build opens the stores, seeds the provider catalog and creates the services
func Build(ctx context.Context, settings *utils.Settings) (*Dependencies, error) {
	st, err := openStores(settings)
	if err != nil {
		return nil, err
	}

	rows, err := providers.CatalogRows(settings.ProviderCatalogPath)
	if err != nil {
		return nil, err
	}
	if err := st.tolls.UpsertProviders(ctx, rows); err != nil {
		return nil, err
	}
	log.Printf("[API-MAIN]: Seeded %d toll providers", len(rows))

	registry := providers.NewRegistry(providers.RegistryOptions{
		Ledger: st.tolls,
		Defaults: tolls.Config{
			Timeout:           settings.ProviderTimeout,
			RequestsPerPeriod: settings.ProviderRequestsPerPeriod,
			PeriodMillis:      settings.ProviderPeriodMillis,
		},
		Endpoints: settings.ProviderEndpoints,
	})

	cipher, err := secrets.NewCipher(settings.CredentialsKey)
	if err != nil {
		return nil, err
	}

	accounts, err := tollsync.NewService(tollsync.Options{
		Store:      st.tolls,
		Resolver:   registry,
		Sealer:     cipher,
		StaleAfter: settings.SyncStaleAfter,
	})
	if err != nil {
		return nil, err
	}

	if len(settings.SyncTargetTables) == 0 {
		log.Println("[API-MAIN]: Warning, SYNC_TARGET_TABLES not set, every queued item will fail")
	}

	return &Dependencies{
		Backend:  st.name,
		Accounts: accounts,
		Queue:    outbox.NewProcessor(st.queue, st.applier, settings.SyncTargetTables),
	}, nil
}

// drainTimeout bounds one scheduled queue drain
const drainTimeout = 5 * time.Minute

// ScheduleDrain runs the queue processor on a cron schedule. The returned cron is
// already started.
func ScheduleDrain(schedule string, processor *outbox.Processor) (*cron.Cron, error) {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()

		result, err := processor.Process(ctx)
		if err != nil {
			log.Printf("[OUTBOX]: Scheduled drain failed: %v", err)
			return
		}
		if result.Processed+result.Failed > 0 {
			log.Printf("[OUTBOX]: Scheduled drain processed %d items, %d failed", result.Processed, result.Failed)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_DRAIN_SCHEDULE '%s': %w", schedule, err)
	}

	scheduler.Start()
	return scheduler, nil
}
