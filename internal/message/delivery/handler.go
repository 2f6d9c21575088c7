package delivery

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"asist-backend/internal/message/domain"
	"asist-backend/internal/message/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// EventRemover deletes the calendar event that was auto-created for a
// message. Nil when no calendar integration is configured.
type EventRemover interface {
	RemoveEvent(ctx context.Context, userID, eventID string) error
}

// ReminderRetractor deletes the reminders that were derived from a message
type ReminderRetractor interface {
	RetractForMessage(userID, messageID string) error
}

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	messageRepo repository.MessageRepository
	events      EventRemover
	reminders   ReminderRetractor
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageRepo repository.MessageRepository, events EventRemover, reminders ReminderRetractor) *MessageHandler {
	return &MessageHandler{
		messageRepo: messageRepo,
		events:      events,
		reminders:   reminders,
	}
}

// GetMessages returns the authenticated user's ingested messages
// GET /api/messages?status=pending&limit=50&offset=0
func (h *MessageHandler) GetMessages(c *gin.Context) {
	userID := c.GetString("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var statusFilter *domain.ProcessingStatus
	if status := c.Query("status"); status != "" {
		s := domain.ProcessingStatus(status)
		statusFilter = &s
	}

	messages, total, err := h.messageRepo.FindByUserID(userID, statusFilter, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"total":    total,
	})
}

// GetMessageByID returns a specific ingested message
// GET /api/messages/:id
func (h *MessageHandler) GetMessageByID(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("id")

	message, err := h.messageRepo.FindByID(messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if message == nil || message.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	c.JSON(http.StatusOK, message)
}

// UpdateStatusRequest represents the request body for a status change
type UpdateStatusRequest struct {
	Status domain.ProcessingStatus `json:"status" binding:"required"`
}

// UpdateMessageStatus records the user's decision on a pending message.
// This is the only status write path; the sync pipeline never touches it
// after ingestion.
// PATCH /api/messages/:id/status
func (h *MessageHandler) UpdateMessageStatus(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("id")

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !domain.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be accepted, postponed or ignored"})
		return
	}

	if err := h.messageRepo.UpdateStatus(userID, messageID, req.Status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Ignoring a message retracts its auto-created calendar event and
	// reminders. Cleanup is best-effort: the status change already happened
	// and stands either way.
	if req.Status == domain.StatusIgnored {
		if h.events != nil {
			if message, err := h.messageRepo.FindByID(messageID); err == nil &&
				message != nil && message.CalendarEventID != "" {
				if err := h.events.RemoveEvent(c.Request.Context(), userID, message.CalendarEventID); err != nil {
					log.Printf("[Messages] Failed to remove calendar event %s for message %s: %v", message.CalendarEventID, messageID, err)
				}
			}
		}
		if h.reminders != nil {
			if err := h.reminders.RetractForMessage(userID, messageID); err != nil {
				log.Printf("[Messages] Failed to retract reminders for message %s: %v", messageID, err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}
