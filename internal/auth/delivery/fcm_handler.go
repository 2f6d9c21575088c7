package delivery

import (
	"net/http"

	"asist-backend/internal/auth/repository"

	"github.com/gin-gonic/gin"
)

// FCMHandler handles device token registration for push notifications
type FCMHandler struct {
	fcmRepo repository.FCMTokenRepository
}

// NewFCMHandler creates a new FCMHandler
func NewFCMHandler(fcmRepo repository.FCMTokenRepository) *FCMHandler {
	return &FCMHandler{
		fcmRepo: fcmRepo,
	}
}

// RegisterTokenRequest represents the request body for registering a device token
type RegisterTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

// RegisterToken registers a device token for the authenticated user
// POST /api/fcm/register
func (h *FCMHandler) RegisterToken(c *gin.Context) {
	userID := c.GetString("userID")

	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.fcmRepo.SaveToken(userID, req.Token, req.DeviceInfo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"registered": true})
}

// UnregisterToken removes a device token
// DELETE /api/fcm/:token
func (h *FCMHandler) UnregisterToken(c *gin.Context) {
	token := c.Param("token")

	if err := h.fcmRepo.DeleteToken(token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unregistered": true})
}
