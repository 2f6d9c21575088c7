package domain

import (
	"time"

	"golang.org/x/oauth2"
)

// Placeholder values used when a provider message is missing headers.
// A missing Subject or From header degrades to these rather than failing
// the message.
const (
	PlaceholderSubject = "(no subject)"
	PlaceholderSender  = "(unknown sender)"
)

// TokenUpdateFunc is called by mail/calendar adapters when the OAuth access
// token is transparently refreshed, so the new token can be persisted.
type TokenUpdateFunc = func(*oauth2.Token) error

// ActionKind is the action the classifier proposed for a message
type ActionKind string

const (
	ActionNone        ActionKind = "none"
	ActionAddCalendar ActionKind = "add_calendar"
	ActionPayInvoice  ActionKind = "pay_invoice"
)

// ProcessingStatus tracks what the user decided to do with an ingested message.
// It starts at pending; the terminal states are set by the user through the
// API, never by the sync pipeline.
type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusAccepted  ProcessingStatus = "accepted"
	StatusPostponed ProcessingStatus = "postponed"
	StatusIgnored   ProcessingStatus = "ignored"
)

// Message represents one ingested mail item. ExternalID is the
// provider-assigned message id and anchors deduplication: a message is
// persisted at most once per (user, external id).
type Message struct {
	ID         string `json:"id" gorm:"primaryKey"`
	UserID     string `json:"user_id" gorm:"not null;uniqueIndex:idx_user_external"`
	ExternalID string `json:"external_id" gorm:"not null;uniqueIndex:idx_user_external"`

	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Snippet string `json:"snippet"`

	// Classifier output, absorbed from the classification proposal
	Summary         string     `json:"summary"`
	IsImportant     bool       `json:"is_important" gorm:"default:false"`
	ProposedAction  ActionKind `json:"proposed_action" gorm:"default:none"`
	AppointmentDate *time.Time `json:"appointment_date,omitempty"`
	ActionTitle     string     `json:"action_title,omitempty"`

	// CalendarEventID links the auto-created calendar event, when fan-out
	// produced one, so ignoring the message can clean the event up again
	CalendarEventID string `json:"calendar_event_id,omitempty"`

	Status ProcessingStatus `json:"status" gorm:"default:pending"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageDetail is the raw header/snippet view of a provider message,
// before ingestion.
type MessageDetail struct {
	ExternalID string
	Subject    string
	Sender     string
	Snippet    string
}

// ValidStatus reports whether s is a status a user may set on a message.
func ValidStatus(s ProcessingStatus) bool {
	switch s {
	case StatusAccepted, StatusPostponed, StatusIgnored:
		return true
	}
	return false
}
