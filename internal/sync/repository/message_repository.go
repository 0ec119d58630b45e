package repository

import (
	"errors"
	"time"

	syncdomain "nexcrm-backend/internal/sync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository defines persistence for provider email messages.
// Rows are keyed by (user_id, message_id), so re-ingesting a message
// refreshes its content in place.
type MessageRepository interface {
	Upsert(message *syncdomain.EmailMessage) error
	FindByMessageID(userID, messageID string) (*syncdomain.EmailMessage, error)
	ListByThread(userID, threadID string) ([]syncdomain.EmailMessage, error)
	CountByUser(userID string) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Upsert(message *syncdomain.EmailMessage) error {
	now := time.Now()
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = now
	message.UpdatedAt = now

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"thread_id", "from", "to", "subject", "body_plain", "sent_at", "updated_at",
		}),
	}).Create(message).Error
}

func (r *messageRepository) FindByMessageID(userID, messageID string) (*syncdomain.EmailMessage, error) {
	var message syncdomain.EmailMessage
	err := r.db.Where("user_id = ? AND message_id = ?", userID, messageID).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) ListByThread(userID, threadID string) ([]syncdomain.EmailMessage, error) {
	var messages []syncdomain.EmailMessage
	err := r.db.Where("user_id = ? AND thread_id = ?", userID, threadID).
		Order("sent_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) CountByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&syncdomain.EmailMessage{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
