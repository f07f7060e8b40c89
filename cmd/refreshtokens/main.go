package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	metaclient "msgbridge/clients/meta"
	"msgbridge/config"
	"msgbridge/core"
	"msgbridge/db"
	"msgbridge/models"
	"msgbridge/opsalert"
	"msgbridge/services/accounts"
	"msgbridge/services/tokenjobs"
	"msgbridge/services/tokenscheduler"
	"msgbridge/services/txmanager"
)

// Enqueues a forced HIGH priority refresh job for every stored account and
// runs scheduler passes until the queue drains. Useful after rotating the
// app secret or when tokens were invalidated out of band.
func main() {
	log.Printf("🔄 Starting forced token refresh process...")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	cipher, err := core.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		log.Fatalf("❌ Failed to initialize token cipher: %v", err)
	}

	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	accountsRepo := db.NewPostgresAccountsRepository(dbConn, cfg.DatabaseSchema)
	tokenJobsRepo := db.NewPostgresTokenJobsRepository(dbConn, cfg.DatabaseSchema)

	accountsService := accounts.NewAccountsService(accountsRepo)
	tokenJobsService := tokenjobs.NewTokenJobsService(tokenJobsRepo)
	meta := metaclient.NewMetaClient(cfg.MetaConfig.GraphBaseURL, cfg.MetaConfig.AppID, cfg.MetaConfig.AppSecret)
	notifier := opsalert.NewNotifier(cfg.AlertConfig.SlackWebhookURL, cfg.Environment, "msgbridge", cfg.AlertConfig.LogsURL)

	ctx := context.Background()

	enqueued := 0
	errorCount := 0
	for _, platform := range []models.Platform{models.PlatformFacebook, models.PlatformInstagram} {
		platformAccounts, err := accountsRepo.ListAccountsByPlatform(ctx, platform)
		if err != nil {
			log.Fatalf("❌ Failed to list %s accounts: %v", platform, err)
		}
		log.Printf("🔍 Found %d %s accounts", len(platformAccounts), platform)

		for _, account := range platformAccounts {
			if _, err := tokenJobsService.RequestRefresh(
				ctx, account.ID, models.TokenJobPriorityHigh, true, time.Now(),
			); err != nil {
				log.Printf("❌ Failed to enqueue refresh for account %s: %v", account.ID, err)
				errorCount++
				continue
			}
			enqueued++
		}
	}

	// Drain the queue synchronously instead of starting the background loop
	txManager := txmanager.NewTransactionManager(dbConn)
	scheduler := tokenscheduler.NewScheduler(
		tokenJobsService, accountsService, meta, cipher, notifier, txManager,
		tokenscheduler.Config{BatchSize: 20},
	)
	for i := 0; i < enqueued; i += 20 {
		scheduler.Tick(ctx)
	}

	log.Printf("✅ Forced token refresh completed!")
	log.Printf("📊 Summary:")
	log.Printf("   - Jobs enqueued: %d", enqueued)
	log.Printf("   - Enqueue errors: %d", errorCount)

	if errorCount > 0 {
		os.Exit(1)
	}
}
