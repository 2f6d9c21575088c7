package api

import (
	"log"

	authRepo "asist-backend/internal/auth/repository"
	authUsecasePkg "asist-backend/internal/auth/usecase"
	messageRepo "asist-backend/internal/message/repository"
	reminderRepo "asist-backend/internal/reminder/repository"
	syncDelivery "asist-backend/internal/sync/delivery"
	syncUsecasePkg "asist-backend/internal/sync/usecase"
	"asist-backend/pkg/calendar"
	"asist-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase     authUsecasePkg.AuthUsecase
	config          *config.Config
	syncHandler     *syncDelivery.SyncHandler
	messageRepo     messageRepo.MessageRepository
	reminderRepo    reminderRepo.ReminderRepository
	fcmRepo         authRepo.FCMTokenRepository
	credProvider    syncUsecasePkg.CredentialProvider
	calendarService *calendar.Service
}

func NewHandler(
	authUc authUsecasePkg.AuthUsecase,
	syncUc syncUsecasePkg.SyncUsecase,
	watcher syncDelivery.MailboxWatcher,
	accounts syncDelivery.AccountChecker,
	credProvider syncUsecasePkg.CredentialProvider,
	calendarService *calendar.Service,
	msgRepo messageRepo.MessageRepository,
	remRepo reminderRepo.ReminderRepository,
	fcmRepo authRepo.FCMTokenRepository,
	cfg *config.Config,
) *Handler {
	syncHandler := syncDelivery.NewSyncHandler(syncUc, watcher, accounts)
	log.Println("Sync handler initialized")

	return &Handler{
		authUsecase:     authUc,
		config:          cfg,
		syncHandler:     syncHandler,
		messageRepo:     msgRepo,
		reminderRepo:    remRepo,
		fcmRepo:         fcmRepo,
		credProvider:    credProvider,
		calendarService: calendarService,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)

	return r.Run(addr)
}
