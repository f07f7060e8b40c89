package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	anthropicclient "msgbridge/clients/anthropic"
	metaclient "msgbridge/clients/meta"
	"msgbridge/clients/socketio"
	"msgbridge/config"
	"msgbridge/core"
	"msgbridge/db"
	"msgbridge/handlers"
	"msgbridge/middleware"
	"msgbridge/opsalert"
	"msgbridge/services/accounts"
	"msgbridge/services/autoreply"
	"msgbridge/services/autoreplyrules"
	"msgbridge/services/businesses"
	"msgbridge/services/healthmonitor"
	"msgbridge/services/messages"
	"msgbridge/services/tokenjobs"
	"msgbridge/services/tokenscheduler"
	"msgbridge/services/txmanager"
	"msgbridge/usecases/webhook"
)

func main() {
	if err := run(); err != nil {
		log.Printf("❌ Fatal error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Operator alerting and the error alert middleware
	notifier := opsalert.NewNotifier(
		cfg.AlertConfig.SlackWebhookURL,
		cfg.Environment,
		"msgbridge",
		cfg.AlertConfig.LogsURL,
	)
	alertMiddleware := middleware.NewErrorAlertMiddleware(notifier)

	// Token encryption for access tokens at rest
	cipher, err := core.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		return err
	}

	// Database connection and repositories
	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	accountsRepo := db.NewPostgresAccountsRepository(dbConn, cfg.DatabaseSchema)
	businessesRepo := db.NewPostgresBusinessesRepository(dbConn, cfg.DatabaseSchema)
	messagesRepo := db.NewPostgresMessagesRepository(dbConn, cfg.DatabaseSchema)
	rulesRepo := db.NewPostgresAutoReplyRulesRepository(dbConn, cfg.DatabaseSchema)
	tokenJobsRepo := db.NewPostgresTokenJobsRepository(dbConn, cfg.DatabaseSchema)

	txManager := txmanager.NewTransactionManager(dbConn)

	// External clients
	meta := metaclient.NewMetaClient(cfg.MetaConfig.GraphBaseURL, cfg.MetaConfig.AppID, cfg.MetaConfig.AppSecret)
	completion := anthropicclient.NewAnthropicClient(cfg.AnthropicConfig.APIKey)
	publisher := socketio.NewSocketIOPublisher(cfg.RealtimeConfig.SharedKey)

	// Services
	accountsService := accounts.NewAccountsService(accountsRepo)
	businessesService := businesses.NewBusinessesService(businessesRepo)
	messagesService := messages.NewMessagesService(messagesRepo)
	rulesService := autoreplyrules.NewAutoReplyRulesService(rulesRepo)
	tokenJobsService := tokenjobs.NewTokenJobsService(tokenJobsRepo)

	taskRunner := core.NewDelayedTaskRunner()
	defer taskRunner.StopAll()

	autoReplyService := autoreply.NewAutoReplyService(
		rulesService,
		messagesService,
		accountsService,
		meta,
		completion,
		cipher,
		taskRunner,
	)

	webhookUseCase := webhook.NewWebhookUseCase(
		accountsService,
		businessesService,
		messagesService,
		autoReplyService,
		meta,
		publisher,
		cipher,
	)

	// Background loops
	scheduler := tokenscheduler.NewScheduler(
		tokenJobsService,
		accountsService,
		meta,
		cipher,
		notifier,
		txManager,
		tokenscheduler.Config{},
	)
	scheduler.Start()
	defer scheduler.Stop()

	monitor := healthmonitor.NewMonitor(meta, publisher, notifier, taskRunner, healthmonitor.Config{
		WebhookCallbackURL: cfg.MetaConfig.CallbackURL,
	})
	monitor.Start()
	defer monitor.Stop()

	// HTTP surface
	router := mux.NewRouter()
	publisher.RegisterWithRouter(router)
	webhookHandler := handlers.NewWebhookHandler(cfg.MetaConfig.VerifyToken, webhookUseCase, monitor, alertMiddleware)
	webhookHandler.SetupEndpoints(router)

	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           alertMiddleware.HTTPMiddleware(c.Handler(router)),
		ReadHeaderTimeout: 30 * time.Second,
	}

	return handleGracefulShutdown(server)
}

func handleGracefulShutdown(server *http.Server) error {
	// Channel to listen for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Printf("✅ Listening on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-stop
	log.Printf("🛑 Shutdown signal received, cleaning up...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown server gracefully
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Server shutdown error: %v", err)
		return err
	}

	log.Printf("✅ Server stopped gracefully")
	return nil
}
