package repository

import (
	"errors"

	"asist-backend/internal/message/domain"
)

// ErrDuplicateMessage is returned by Create when a message with the same
// (user, external id) already exists. Callers racing on the same unread set
// treat it as "already synced", not as a failure.
var ErrDuplicateMessage = errors.New("message already exists")

// MessageRepository defines the interface for message persistence
type MessageRepository interface {
	// Create inserts a new message. The insert is atomic with respect to the
	// dedup constraint: concurrent runs inserting the same external id see
	// exactly one success, the rest get ErrDuplicateMessage.
	Create(message *domain.Message) error

	// FindByExternalID returns the message with the given provider id for a
	// user, or (nil, nil) if none exists.
	FindByExternalID(userID, externalID string) (*domain.Message, error)

	// FindByID returns a message by its internal id, or (nil, nil)
	FindByID(id string) (*domain.Message, error)

	// FindByUserID lists a user's messages, optionally filtered by status,
	// newest first
	FindByUserID(userID string, status *domain.ProcessingStatus, limit, offset int) ([]*domain.Message, int64, error)

	// UpdateStatus sets the processing status chosen by the user
	UpdateStatus(userID, id string, status domain.ProcessingStatus) error

	// SetCalendarEvent records the id of the calendar event fan-out created
	// for this message
	SetCalendarEvent(id, eventID string) error
}
