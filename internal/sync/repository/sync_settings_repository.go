package repository

import (
	"errors"
	"time"

	syncdomain "nexcrm-backend/internal/sync/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncSettingsRepository defines persistence for the per-user sync cursor
type SyncSettingsRepository interface {
	Get(userID string) (*syncdomain.SyncSettings, error)
	Save(settings *syncdomain.SyncSettings) error
}

type syncSettingsRepository struct {
	db *gorm.DB
}

func NewSyncSettingsRepository(db *gorm.DB) SyncSettingsRepository {
	return &syncSettingsRepository{db: db}
}

func (r *syncSettingsRepository) Get(userID string) (*syncdomain.SyncSettings, error) {
	var settings syncdomain.SyncSettings
	err := r.db.Where("user_id = ?", userID).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *syncSettingsRepository) Save(settings *syncdomain.SyncSettings) error {
	settings.UpdatedAt = time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(settings).Error
}
