package delivery

import (
	"net/http"
	"strconv"

	"asist-backend/internal/reminder/repository"

	"github.com/gin-gonic/gin"
)

// ReminderHandler handles reminder-related HTTP requests
type ReminderHandler struct {
	reminderRepo repository.ReminderRepository
}

// NewReminderHandler creates a new ReminderHandler
func NewReminderHandler(reminderRepo repository.ReminderRepository) *ReminderHandler {
	return &ReminderHandler{
		reminderRepo: reminderRepo,
	}
}

// GetReminders returns the authenticated user's reminders, soonest first
// GET /api/reminders?limit=50&offset=0
func (h *ReminderHandler) GetReminders(c *gin.Context) {
	userID := c.GetString("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reminders, total, err := h.reminderRepo.FindByUserID(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reminders": reminders,
		"total":     total,
	})
}

// DeleteReminder removes a reminder
// DELETE /api/reminders/:id
func (h *ReminderHandler) DeleteReminder(c *gin.Context) {
	userID := c.GetString("userID")
	reminderID := c.Param("id")

	if err := h.reminderRepo.Delete(userID, reminderID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": reminderID})
}
