package domain

import "time"

type User struct {
	ID    string `json:"id" gorm:"primaryKey"`
	Email string `json:"email" gorm:"uniqueIndex;not null"`
	Name  string `json:"name"`

	// Provider of the connected mail account: "google" or "imap"
	Provider string `json:"provider" gorm:"default:google"`

	// Google OAuth tokens for the connected mail account. Refreshed tokens
	// are written back here by the adapters' token-update callback.
	GoogleAccessToken  string `json:"-"`
	GoogleRefreshToken string `json:"-"`

	// IMAP account settings for non-Gmail providers
	IMAPServer   string `json:"imap_server,omitempty"` // host:port
	IMAPUsername string `json:"imap_username,omitempty"`
	IMAPPassword string `json:"-"`

	// Per-user classifier key (original "use own API key" setting). Empty
	// means the server-wide key is used.
	AIAPIKey     string `json:"-"`
	UseOwnAPIKey bool   `json:"use_own_api_key" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
