package usecase

import (
	"context"
	"time"

	messagedomain "asist-backend/internal/message/domain"
)

// ErrorKind classifies run-terminal sync failures. Per-message failures are
// contained and never surface here.
type ErrorKind string

const (
	ErrorNone                ErrorKind = ""
	ErrorUnauthenticated     ErrorKind = "unauthenticated"
	ErrorProviderUnavailable ErrorKind = "provider_unavailable"
)

// SyncResult is the aggregate outcome of one ingestion run
type SyncResult struct {
	Success     bool      `json:"success"`
	SyncedCount int       `json:"synced_count"`
	Error       ErrorKind `json:"error,omitempty"`
}

// SyncUsecase coordinates one per-user ingestion run:
// fetch -> dedup -> classify -> persist -> act.
type SyncUsecase interface {
	RunSync(ctx context.Context, userID string) SyncResult
}

// Credentials holds everything a run needs to talk to the user's providers.
// Resolved fresh at the start of every run, never cached across runs.
type Credentials struct {
	UserID string

	// Provider is "google" or "imap" and selects the mail adapter
	Provider string

	AccessToken  string
	RefreshToken string

	// IMAP account settings, used when Provider is "imap"
	IMAPServer   string
	IMAPUsername string
	IMAPPassword string

	// Per-user classifier key; empty means the server-wide key
	AIAPIKey string

	// OnTokenRefresh is invoked by adapters when the access token is
	// transparently refreshed mid-call
	OnTokenRefresh messagedomain.TokenUpdateFunc
}

// Connected reports whether the credentials are complete enough to reach
// the user's mailbox
func (c *Credentials) Connected() bool {
	if c.Provider == "imap" {
		return c.IMAPServer != "" && c.IMAPPassword != ""
	}
	return c.AccessToken != ""
}

// CredentialProvider resolves a user's provider credentials. Returns
// (nil, nil) when the user has no connected mail account, which is terminal
// for the run.
type CredentialProvider interface {
	Resolve(userID string) (*Credentials, error)
}

// MailProvider lists and fetches the user's unread mail
type MailProvider interface {
	// ListUnread returns up to max unread message ids. Ordering is
	// provider-defined and callers must not depend on it.
	ListUnread(ctx context.Context, creds *Credentials, max int) ([]string, error)

	// GetMessage fetches headers and snippet for one message. Missing
	// headers come back empty rather than failing.
	GetMessage(ctx context.Context, creds *Credentials, externalID string) (*messagedomain.MessageDetail, error)
}

// CalendarProvider creates events on the user's calendar
type CalendarProvider interface {
	CreateEvent(ctx context.Context, creds *Credentials, title string, start time.Time) (string, error)
}
