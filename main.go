package main

import (
	"context"
	"log"
	"os"
	"strings"

	api "nexcrm-backend/cmd/api"
	authdomain "nexcrm-backend/internal/auth/domain"
	authRepo "nexcrm-backend/internal/auth/repository"
	authUsecase "nexcrm-backend/internal/auth/usecase"
	contactdomain "nexcrm-backend/internal/contact/domain"
	contactRepo "nexcrm-backend/internal/contact/repository"
	"nexcrm-backend/internal/notification"
	syncdomain "nexcrm-backend/internal/sync/domain"
	syncRepo "nexcrm-backend/internal/sync/repository"
	"nexcrm-backend/internal/sync/scheduler"
	syncUsecase "nexcrm-backend/internal/sync/usecase"
	"nexcrm-backend/pkg/config"
	"nexcrm-backend/pkg/database"
	"nexcrm-backend/pkg/fcm"
	"nexcrm-backend/pkg/gmail"
	"nexcrm-backend/pkg/imap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&authdomain.FCMToken{},
		&contactdomain.Contact{},
		&syncdomain.EmailThread{},
		&syncdomain.EmailMessage{},
		&syncdomain.SyncJob{},
		&syncdomain.SyncSettings{},
		&syncdomain.GoogleAccount{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	contactRepository := contactRepo.NewContactRepository(db)
	threadRepo := syncRepo.NewThreadRepository(db)
	messageRepo := syncRepo.NewMessageRepository(db)
	jobRepo := syncRepo.NewSyncJobRepository(db)
	settingsRepo := syncRepo.NewSyncSettingsRepository(db)
	accountRepo := syncRepo.NewGoogleAccountRepository(db)

	// Mailbox providers
	gmailService := gmail.NewService()
	imapService := imap.NewService()

	// Sync pipeline: token refresh, ingest engine, job runner
	tokenProvider := syncUsecase.NewTokenProvider(accountRepo, cfg)
	engine := syncUsecase.NewEngine(gmailService, threadRepo, messageRepo, contactRepository)
	runner := syncUsecase.NewRunner(jobRepo, settingsRepo, accountRepo, tokenProvider, engine, imapService)

	// Initialize FCM Client (optional, sync works without push)
	var fcmClient *fcm.Client
	if cfg.FirebaseCredentials != "" {
		fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
			fcmClient = nil
		} else {
			log.Printf("[DEBUG] FCM client initialized successfully")
		}
	} else {
		log.Printf("[DEBUG] No Firebase credentials configured, FCM disabled")
	}

	// Initialize Notification Service (Pub/Sub mailbox push)
	// Only start if project ID is configured
	if cfg.GoogleProjectID != "" {
		log.Printf("[DEBUG] Initializing notification service with projectID: %s", cfg.GoogleProjectID)

		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		if topicName == "" {
			topicName = "gmail-updates"
		}
		log.Printf("[DEBUG] Using topic name: %s", topicName)

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, accountRepo, fcmTokenRepo, fcmClient, runner, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			log.Printf("[DEBUG] Notification service initialized, starting...")
			go notifService.Start(context.Background())
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, notification service disabled")
	}

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, fcmTokenRepo, cfg)

	// Initialize HTTP handler (assembles AI, vector search and the summary worker)
	handler := api.NewHandler(authUsecaseInstance, runner, contactRepository, threadRepo, messageRepo, jobRepo, settingsRepo, accountRepo, cfg)

	// Periodic auto-sync for every linked account
	autoSync := scheduler.NewAutoSyncScheduler(runner, handler.SummaryWorker(), fcmTokenRepo, fcmClient, cfg.AutoSyncInterval)
	autoSync.Start()
	defer autoSync.Stop()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := handler.Start(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
