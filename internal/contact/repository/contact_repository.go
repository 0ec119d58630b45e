package repository

import (
	"context"
	"errors"
	"time"

	contactdomain "nexcrm-backend/internal/contact/domain"

	"gorm.io/gorm"
)

// ContactRepository defines persistence for CRM contacts
type ContactRepository interface {
	FindByID(userID, id string) (*contactdomain.Contact, error)
	// FindIDByEmail is the contact resolver: an equality lookup on the
	// stored primary email, limited to one row. Empty input or no match
	// returns "". No case normalization happens here; writers normalize.
	FindIDByEmail(userID, email string) (string, error)
	Exists(userID, id string) (bool, error)
	Create(ctx context.Context, contact *contactdomain.Contact) error
	Save(ctx context.Context, contact *contactdomain.Contact) error
	Delete(userID, id string) error
	List(userID string, limit, offset int, segment string) ([]contactdomain.Contact, int64, error)
	ListAll(userID string) ([]contactdomain.Contact, error)
	// TouchLastEmail bumps LastEmailDate/UpdatedAt after a synced message
	TouchLastEmail(userID, contactID string, lastEmail time.Time) error

	// Dashboard aggregates
	CountByUser(userID string) (int64, error)
	CountCreatedSince(userID string, since time.Time) (int64, error)
	CountBySegment(userID string) (map[string]int64, error)
	CountByLeadSource(userID string) (map[string]int64, error)
	AverageEngagementScore(userID string) (float64, error)
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) FindByID(userID, id string) (*contactdomain.Contact, error) {
	var contact contactdomain.Contact
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepository) FindIDByEmail(userID, email string) (string, error) {
	if email == "" {
		return "", nil
	}

	var contact contactdomain.Contact
	err := r.db.Select("id").
		Where("user_id = ? AND primary_email = ?", userID, email).
		Limit(1).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return contact.ID, nil
}

func (r *contactRepository) Exists(userID, id string) (bool, error) {
	var count int64
	err := r.db.Model(&contactdomain.Contact{}).
		Where("user_id = ? AND id = ?", userID, id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *contactRepository) Create(ctx context.Context, contact *contactdomain.Contact) error {
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	return r.db.WithContext(ctx).Create(contact).Error
}

func (r *contactRepository) Save(ctx context.Context, contact *contactdomain.Contact) error {
	contact.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(contact).Error
}

func (r *contactRepository) Delete(userID, id string) error {
	return r.db.Where("user_id = ? AND id = ?", userID, id).Delete(&contactdomain.Contact{}).Error
}

func (r *contactRepository) List(userID string, limit, offset int, segment string) ([]contactdomain.Contact, int64, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.Model(&contactdomain.Contact{}).Where("user_id = ?", userID)
	if segment != "" {
		query = query.Where("segment = ?", segment)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contacts []contactdomain.Contact
	err := query.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&contacts).Error
	if err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

func (r *contactRepository) ListAll(userID string) ([]contactdomain.Contact, error) {
	var contacts []contactdomain.Contact
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepository) TouchLastEmail(userID, contactID string, lastEmail time.Time) error {
	return r.db.Model(&contactdomain.Contact{}).
		Where("user_id = ? AND id = ?", userID, contactID).
		Updates(map[string]interface{}{
			"last_email_date": lastEmail,
			"updated_at":      time.Now(),
		}).Error
}

func (r *contactRepository) CountByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&contactdomain.Contact{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *contactRepository) CountCreatedSince(userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&contactdomain.Contact{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

type bucketCount struct {
	Bucket string
	Count  int64
}

func (r *contactRepository) CountBySegment(userID string) (map[string]int64, error) {
	return r.countGrouped(userID, "segment")
}

func (r *contactRepository) CountByLeadSource(userID string) (map[string]int64, error) {
	return r.countGrouped(userID, "lead_source")
}

func (r *contactRepository) countGrouped(userID, column string) (map[string]int64, error) {
	var rows []bucketCount
	err := r.db.Model(&contactdomain.Contact{}).
		Select(column+" AS bucket, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		bucket := row.Bucket
		if bucket == "" {
			bucket = "unassigned"
		}
		counts[bucket] = row.Count
	}
	return counts, nil
}

func (r *contactRepository) AverageEngagementScore(userID string) (float64, error) {
	var avg *float64
	err := r.db.Model(&contactdomain.Contact{}).
		Select("AVG(engagement_score)").
		Where("user_id = ?", userID).
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
