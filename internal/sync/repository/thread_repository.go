package repository

import (
	"errors"
	"time"

	syncdomain "nexcrm-backend/internal/sync/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ThreadRepository defines persistence for provider email threads
type ThreadRepository interface {
	// Upsert merge-writes thread metadata. ContactID is only assigned when
	// setContactID is true; otherwise a previously stored value survives.
	// LastMessageAt only ever advances; replayed older messages cannot
	// regress it.
	Upsert(thread *syncdomain.EmailThread, setContactID bool) error
	FindByThreadID(userID, threadID string) (*syncdomain.EmailThread, error)
	ListByContactID(userID, contactID string) ([]syncdomain.EmailThread, error)
	ListNeedingSummary(limit int) ([]syncdomain.EmailThread, error)
	SetSummary(userID, threadID string, summary datatypes.JSON) error
	CountByUser(userID string) (int64, error)
}

type threadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) Upsert(thread *syncdomain.EmailThread, setContactID bool) error {
	now := time.Now()
	if thread.ID == "" {
		thread.ID = uuid.New().String()
	}
	thread.CreatedAt = now
	thread.UpdatedAt = now

	assignments := map[string]interface{}{
		"updated_at": now,
	}
	if thread.HistoryID > 0 {
		assignments["history_id"] = thread.HistoryID
	}
	if thread.Subject != "" {
		assignments["subject"] = thread.Subject
	}
	if !thread.LastMessageAt.IsZero() {
		// Greatest-wins: a per-message upsert replaying an older message must
		// never roll the thread back behind its newest message.
		assignments["last_message_at"] = gorm.Expr("GREATEST(email_threads.last_message_at, EXCLUDED.last_message_at)")
	}
	if thread.NeedsSummary {
		assignments["needs_summary"] = true
	}
	if setContactID {
		assignments["contact_id"] = thread.ContactID
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "thread_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(thread).Error
}

func (r *threadRepository) FindByThreadID(userID, threadID string) (*syncdomain.EmailThread, error) {
	var thread syncdomain.EmailThread
	err := r.db.Where("user_id = ? AND thread_id = ?", userID, threadID).First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) ListByContactID(userID, contactID string) ([]syncdomain.EmailThread, error) {
	var threads []syncdomain.EmailThread
	err := r.db.Where("user_id = ? AND contact_id = ?", userID, contactID).
		Order("last_message_at ASC").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *threadRepository) ListNeedingSummary(limit int) ([]syncdomain.EmailThread, error) {
	if limit <= 0 {
		limit = 50
	}
	var threads []syncdomain.EmailThread
	err := r.db.Where("needs_summary = ?", true).
		Order("last_message_at ASC").
		Limit(limit).
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *threadRepository) SetSummary(userID, threadID string, summary datatypes.JSON) error {
	return r.db.Model(&syncdomain.EmailThread{}).
		Where("user_id = ? AND thread_id = ?", userID, threadID).
		Updates(map[string]interface{}{
			"summary":       summary,
			"needs_summary": false,
			"updated_at":    time.Now(),
		}).Error
}

func (r *threadRepository) CountByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&syncdomain.EmailThread{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
