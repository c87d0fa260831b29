package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ethanbaker/tollsync/pkg/sdk"
	"github.com/ethanbaker/tollsync/pkg/tolls"
	"github.com/ethanbaker/tollsync/pkg/utils"
)

// Drain the sync queue of a running API server once, optionally syncing every
// provider account of the company afterwards. Meant to be run from an external
// scheduler.
func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}
	cfg := utils.NewConfigFromEnv(envFile)

	apiKey := cfg.Get("API_KEY")
	companyID := cfg.GetIntWithDefault("SYNC_JOB_COMPANY_ID", 0)
	if apiKey == "" || companyID <= 0 {
		log.Fatal("[SYNC-JOB]: API_KEY and SYNC_JOB_COMPANY_ID must be set")
	}

	baseURL := cfg.GetWithDefault("SYNC_JOB_API_URL", "http://localhost:"+cfg.GetWithDefault("API_PORT", "8080"))
	timeout := cfg.GetDurationWithDefault("SYNC_JOB_TIMEOUT", 10*time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := sdk.NewClient(baseURL, apiKey, uint(companyID))

	result, err := client.ProcessQueue(ctx)
	if err != nil {
		log.Fatal("[SYNC-JOB]: Failed to process sync queue: ", err)
	}
	log.Printf("[SYNC-JOB]: Sync queue processed, %d applied, %d failed", result.Processed, result.Failed)

	if cfg.GetBoolWithDefault("SYNC_JOB_ACCOUNTS", false) {
		syncAccounts(ctx, client)
	}
}

// syncAccounts runs a manual sync of every account, page by page. A failing account
// is logged and skipped.
func syncAccounts(ctx context.Context, client *sdk.Client) {
	const pageSize = 100

	synced, failed := 0, 0
	for offset := 0; ; offset += pageSize {
		page, err := client.ListAccounts(ctx, pageSize, offset)
		if err != nil {
			log.Printf("[SYNC-JOB]: Failed to list accounts: %v", err)
			return
		}

		for _, account := range page.Accounts {
			if !account.HasCredentials || account.AccountStatus != tolls.AccountActive {
				continue
			}

			res, err := client.SyncAccount(ctx, account.ID)
			switch {
			case err != nil:
				failed++
				log.Printf("[SYNC-JOB]: Sync of account %d failed: %v", account.ID, err)
			case !res.Success:
				failed++
				log.Printf("[SYNC-JOB]: Sync of account %d completed with errors", account.ID)
			default:
				synced++
			}
		}

		if len(page.Accounts) < pageSize || int64(offset+pageSize) >= page.Total {
			break
		}
	}

	log.Printf("[SYNC-JOB]: Synced %d accounts, %d failed", synced, failed)
}
