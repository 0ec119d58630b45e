package repository

import (
	"errors"
	"time"

	syncdomain "nexcrm-backend/internal/sync/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GoogleAccountRepository owns the linked-account token cache. Only the
// token provider and the link/unlink handlers go through it.
type GoogleAccountRepository interface {
	FindByUserID(userID string) (*syncdomain.GoogleAccount, error)
	FindByEmail(email string) (*syncdomain.GoogleAccount, error)
	Save(account *syncdomain.GoogleAccount) error
	Delete(userID string) error
	ListAll() ([]syncdomain.GoogleAccount, error)
}

type googleAccountRepository struct {
	db *gorm.DB
}

func NewGoogleAccountRepository(db *gorm.DB) GoogleAccountRepository {
	return &googleAccountRepository{db: db}
}

func (r *googleAccountRepository) FindByUserID(userID string) (*syncdomain.GoogleAccount, error) {
	var account syncdomain.GoogleAccount
	err := r.db.Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *googleAccountRepository) FindByEmail(email string) (*syncdomain.GoogleAccount, error) {
	var account syncdomain.GoogleAccount
	err := r.db.Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *googleAccountRepository) Save(account *syncdomain.GoogleAccount) error {
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(account).Error
}

func (r *googleAccountRepository) Delete(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&syncdomain.GoogleAccount{}).Error
}

func (r *googleAccountRepository) ListAll() ([]syncdomain.GoogleAccount, error) {
	var accounts []syncdomain.GoogleAccount
	err := r.db.Order("created_at ASC").Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
