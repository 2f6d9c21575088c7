package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetUpcomingEvents returns the next events on the user's primary calendar
// GET /api/calendar/upcoming?limit=5
func (h *Handler) GetUpcomingEvents(c *gin.Context) {
	userID := c.GetString("userID")

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "5"), 10, 64)

	creds, err := h.credProvider.Resolve(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if creds == nil || creds.AccessToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no connected calendar account"})
		return
	}

	events, err := h.calendarService.ListUpcoming(c.Request.Context(), creds.AccessToken, creds.RefreshToken, limit, creds.OnTokenRefresh)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}
