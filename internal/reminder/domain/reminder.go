package domain

import "time"

// Priority represents reminder priority level
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Reminder represents a scheduled nudge, usually derived from an ingested
// message. ReferenceID is a weak link to the source message: lookup only,
// the reminder outlives the message relation.
type Reminder struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"index;not null"`
	Title       string    `json:"title" gorm:"not null"`
	ScheduledAt time.Time `json:"scheduled_at" gorm:"index;not null"`
	Priority    Priority  `json:"priority" gorm:"default:normal"`
	Description string    `json:"description,omitempty"`
	ReferenceID string    `json:"reference_id,omitempty" gorm:"index"`

	// Delivered tracks whether the push notification for this reminder
	// was already sent by the scheduler
	Delivered bool `json:"delivered" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
