package repository

import (
	"errors"
	"time"

	"asist-backend/internal/message/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormMessageRepository implements MessageRepository using GORM
type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based MessageRepository
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(message *domain.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.Status == "" {
		message.Status = domain.StatusPending
	}
	now := time.Now()
	message.CreatedAt = now
	message.UpdatedAt = now

	// INSERT ... ON CONFLICT DO NOTHING against the (user_id, external_id)
	// unique index. RowsAffected == 0 means another run got there first.
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "external_id"}},
		DoNothing: true,
	}).Create(message)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateMessage
	}
	return nil
}

func (r *gormMessageRepository) FindByExternalID(userID, externalID string) (*domain.Message, error) {
	var message domain.Message
	err := r.db.Where("user_id = ? AND external_id = ?", userID, externalID).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *gormMessageRepository) FindByID(id string) (*domain.Message, error) {
	var message domain.Message
	err := r.db.Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *gormMessageRepository) FindByUserID(userID string, status *domain.ProcessingStatus, limit, offset int) ([]*domain.Message, int64, error) {
	var messages []*domain.Message
	var total int64

	query := r.db.Model(&domain.Message{}).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&messages).Error
	return messages, total, err
}

func (r *gormMessageRepository) UpdateStatus(userID, id string, status domain.ProcessingStatus) error {
	result := r.db.Model(&domain.Message{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormMessageRepository) SetCalendarEvent(id, eventID string) error {
	return r.db.Model(&domain.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"calendar_event_id": eventID,
			"updated_at":        time.Now(),
		}).Error
}
