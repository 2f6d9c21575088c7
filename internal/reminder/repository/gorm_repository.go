package repository

import (
	"time"

	"asist-backend/internal/reminder/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormReminderRepository implements ReminderRepository using GORM
type gormReminderRepository struct {
	db *gorm.DB
}

// NewGormReminderRepository creates a new GORM-based ReminderRepository
func NewGormReminderRepository(db *gorm.DB) ReminderRepository {
	return &gormReminderRepository{db: db}
}

func (r *gormReminderRepository) Create(reminder *domain.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	if reminder.Priority == "" {
		reminder.Priority = domain.PriorityNormal
	}
	now := time.Now()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	return r.db.Create(reminder).Error
}

func (r *gormReminderRepository) FindByUserID(userID string, limit, offset int) ([]*domain.Reminder, int64, error) {
	var reminders []*domain.Reminder
	var total int64

	query := r.db.Model(&domain.Reminder{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("scheduled_at ASC").Limit(limit).Offset(offset).Find(&reminders).Error
	return reminders, total, err
}

func (r *gormReminderRepository) FindByReferenceID(referenceID string) ([]*domain.Reminder, error) {
	var reminders []*domain.Reminder
	err := r.db.Where("reference_id = ?", referenceID).Order("scheduled_at ASC").Find(&reminders).Error
	return reminders, err
}

func (r *gormReminderRepository) Delete(userID, id string) error {
	return r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Reminder{}).Error
}

func (r *gormReminderRepository) FindPendingDeliveries(now time.Time) ([]*domain.Reminder, error) {
	var reminders []*domain.Reminder
	err := r.db.Where("scheduled_at <= ? AND delivered = ?", now, false).Find(&reminders).Error
	return reminders, err
}

func (r *gormReminderRepository) MarkDelivered(id string) error {
	return r.db.Model(&domain.Reminder{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"delivered":  true,
			"updated_at": time.Now(),
		}).Error
}
