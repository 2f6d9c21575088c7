package repository

import (
	"time"

	"asist-backend/internal/reminder/domain"
)

// ReminderRepository defines the interface for reminder persistence
type ReminderRepository interface {
	// Create inserts a new reminder
	Create(reminder *domain.Reminder) error

	// FindByUserID lists a user's reminders, soonest first
	FindByUserID(userID string, limit, offset int) ([]*domain.Reminder, int64, error)

	// FindByReferenceID lists reminders derived from a given message
	FindByReferenceID(referenceID string) ([]*domain.Reminder, error)

	// Delete removes a reminder owned by the user
	Delete(userID, id string) error

	// FindPendingDeliveries returns reminders due at or before now that have
	// not been pushed yet
	FindPendingDeliveries(now time.Time) ([]*domain.Reminder, error)

	// MarkDelivered marks a reminder's push as sent
	MarkDelivered(id string) error
}
