package main

import (
	"context"
	"log"
	"os"
	"strings"

	api "asist-backend/cmd/api"
	authdomain "asist-backend/internal/auth/domain"
	authRepo "asist-backend/internal/auth/repository"
	authUsecase "asist-backend/internal/auth/usecase"
	messagedomain "asist-backend/internal/message/domain"
	messageRepo "asist-backend/internal/message/repository"
	"asist-backend/internal/notification"
	reminderdomain "asist-backend/internal/reminder/domain"
	reminderRepo "asist-backend/internal/reminder/repository"
	"asist-backend/internal/reminder/scheduler"
	syncUsecase "asist-backend/internal/sync/usecase"
	"asist-backend/pkg/ai"
	"asist-backend/pkg/calendar"
	"asist-backend/pkg/config"
	"asist-backend/pkg/database"
	"asist-backend/pkg/fcm"
	"asist-backend/pkg/gmail"
	"asist-backend/pkg/imap"
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
	if err := db.AutoMigrate(&authdomain.User{}, &authdomain.FCMToken{}, &messagedomain.Message{}, &reminderdomain.Reminder{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	messageRepository := messageRepo.NewGormMessageRepository(db)
	reminderRepository := reminderRepo.NewGormReminderRepository(db)

	// Initialize provider services
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	imapService := imap.NewService(cfg.AdapterTimeout)
	calendarService := calendar.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// Initialize AI classifier
	classifier, err := ai.NewClassifierService(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
		AssumeYear:    cfg.AssumeYear,
	})
	if err != nil {
		log.Fatal("Failed to initialize AI classifier:", err)
	}
	log.Printf("AI classifier initialized with provider: %s", cfg.AIProvider)

	// Initialize sync orchestrator
	credProvider := api.NewCredentialProvider(userRepo)
	syncUc := syncUsecase.NewSyncUsecase(
		credProvider,
		api.NewMailProvider(gmailService, imapService),
		api.NewCalendarProvider(calendarService),
		classifier,
		messageRepository,
		reminderRepository,
		cfg.SyncBatchSize,
		cfg.AdapterTimeout,
	)

	// Initialize Notification Service (Pub/Sub)
	// Only start if project ID is configured
	if cfg.GoogleProjectID != "" {
		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		if topicName == "" {
			topicName = "gmail-updates"
		}

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, userRepo, syncUc, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, notification service disabled")
	}

	// Initialize FCM client and reminder delivery loop
	var fcmClient *fcm.Client
	if cfg.FirebaseCredentials != "" {
		fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
			fcmClient = nil
		}
	} else {
		log.Printf("[WARN] No Firebase credentials configured, FCM disabled")
	}

	var sender scheduler.PushSender
	if fcmClient != nil {
		sender = fcmClient
	}
	reminderScheduler := scheduler.NewReminderScheduler(reminderRepository, fcmTokenRepo, sender, cfg.ReminderPollInterval)
	reminderScheduler.Start()

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, cfg)

	watcher := api.NewMailboxWatcher(credProvider, gmailService, cfg.GoogleProjectID, cfg.GooglePubSubTopic)
	accountChecker := api.NewAccountChecker(credProvider, gmailService, imapService)

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, syncUc, watcher, accountChecker, credProvider, calendarService, messageRepository, reminderRepository, fcmTokenRepo, cfg)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Printf("Server starting on port %s", port)
	if err := handler.Start(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
