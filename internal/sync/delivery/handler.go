package delivery

import (
	"context"
	"net/http"

	"asist-backend/internal/sync/usecase"

	"github.com/gin-gonic/gin"
)

// MailboxWatcher registers the user's mailbox for provider push notifications
type MailboxWatcher interface {
	WatchMailbox(userID string) error
}

// AccountChecker probes the user's stored mail credentials against the
// provider and reports which provider the account is connected through
type AccountChecker interface {
	CheckAccount(ctx context.Context, userID string) (provider string, err error)
}

// SyncHandler handles sync-related HTTP requests
type SyncHandler struct {
	syncUsecase usecase.SyncUsecase
	watcher     MailboxWatcher
	accounts    AccountChecker
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncUsecase usecase.SyncUsecase, watcher MailboxWatcher, accounts AccountChecker) *SyncHandler {
	return &SyncHandler{
		syncUsecase: syncUsecase,
		watcher:     watcher,
		accounts:    accounts,
	}
}

// RunSync triggers an ingestion run for the authenticated user
// POST /api/sync
func (h *SyncHandler) RunSync(c *gin.Context) {
	userID := c.GetString("userID")

	result := h.syncUsecase.RunSync(c.Request.Context(), userID)
	if !result.Success {
		status := http.StatusBadGateway
		if result.Error == usecase.ErrorUnauthenticated {
			status = http.StatusUnauthorized
		}
		c.JSON(status, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// WatchMailbox (re)registers the user's mailbox for push notifications so
// new mail triggers a sync without waiting for the next poll
// POST /api/sync/watch
func (h *SyncHandler) WatchMailbox(c *gin.Context) {
	userID := c.GetString("userID")

	if h.watcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications not configured"})
		return
	}

	if err := h.watcher.WatchMailbox(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "watching"})
}

// CheckAccount verifies the user's mail credentials against the provider
// so the client can surface a reconnect prompt before the next sync fails
// GET /api/sync/account
func (h *SyncHandler) CheckAccount(c *gin.Context) {
	userID := c.GetString("userID")

	if h.accounts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "account check not configured"})
		return
	}

	provider, err := h.accounts.CheckAccount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"connected": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"connected": true, "provider": provider})
}
