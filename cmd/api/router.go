package api

import (
	"net/http"

	authDelivery "asist-backend/internal/auth/delivery"
	messageDelivery "asist-backend/internal/message/delivery"
	reminderDelivery "asist-backend/internal/reminder/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	messageHandler := messageDelivery.NewMessageHandler(h.messageRepo, NewEventRemover(h.credProvider, h.calendarService), NewReminderRetractor(h.reminderRepo))
	reminderHandler := reminderDelivery.NewReminderHandler(h.reminderRepo)
	fcmHandler := authDelivery.NewFCMHandler(h.fcmRepo)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Sync routes (protected)
		sync := api.Group("/sync")
		sync.Use(authDelivery.AuthMiddleware(h.authUsecase))
		{
			sync.POST("", h.syncHandler.RunSync)
			sync.POST("/watch", h.syncHandler.WatchMailbox)
			sync.GET("/account", h.syncHandler.CheckAccount)
		}

		// Message routes (protected)
		messages := api.Group("/messages")
		messages.Use(authDelivery.AuthMiddleware(h.authUsecase))
		{
			messages.GET("", messageHandler.GetMessages)
			messages.GET("/:id", messageHandler.GetMessageByID)
			messages.PATCH("/:id/status", messageHandler.UpdateMessageStatus)
		}

		// Reminder routes (protected)
		reminders := api.Group("/reminders")
		reminders.Use(authDelivery.AuthMiddleware(h.authUsecase))
		{
			reminders.GET("", reminderHandler.GetReminders)
			reminders.DELETE("/:id", reminderHandler.DeleteReminder)
		}

		// Calendar routes (protected)
		cal := api.Group("/calendar")
		cal.Use(authDelivery.AuthMiddleware(h.authUsecase))
		{
			cal.GET("/upcoming", h.GetUpcomingEvents)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(authDelivery.AuthMiddleware(h.authUsecase))
		{
			fcm.POST("/register", fcmHandler.RegisterToken)
			fcm.DELETE("/:token", fcmHandler.UnregisterToken)
		}
	}
}
