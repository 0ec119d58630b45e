package repository

import (
	"errors"
	"time"

	syncdomain "nexcrm-backend/internal/sync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxDeleteChunk caps how many job rows one delete statement may remove,
// mirroring the 500-operation batch-commit ceiling of the original store.
const maxDeleteChunk = 500

// SyncJobRepository defines persistence for sync job bookkeeping
type SyncJobRepository interface {
	Create(job *syncdomain.SyncJob) error
	Update(job *syncdomain.SyncJob) error
	ListByUser(userID string, limit int) ([]syncdomain.SyncJob, error)
	// ListIDsExceptMostRecent returns ids of every job except the newest by
	// StartedAt, for the clear-history operation.
	ListIDsExceptMostRecent(userID string) ([]string, error)
	// DeleteByIDs removes jobs in independent chunks of at most 500 rows;
	// a failed chunk is recorded and later chunks still run.
	DeleteByIDs(userID string, ids []string) (deleted int, errs []error)
}

type syncJobRepository struct {
	db *gorm.DB
}

func NewSyncJobRepository(db *gorm.DB) SyncJobRepository {
	return &syncJobRepository{db: db}
}

func (r *syncJobRepository) Create(job *syncdomain.SyncJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	return r.db.Create(job).Error
}

func (r *syncJobRepository) Update(job *syncdomain.SyncJob) error {
	job.UpdatedAt = time.Now()
	return r.db.Save(job).Error
}

func (r *syncJobRepository) ListByUser(userID string, limit int) ([]syncdomain.SyncJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []syncdomain.SyncJob
	err := r.db.Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *syncJobRepository) ListIDsExceptMostRecent(userID string) ([]string, error) {
	var newest syncdomain.SyncJob
	err := r.db.Where("user_id = ?", userID).Order("started_at DESC").First(&newest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	err = r.db.Model(&syncdomain.SyncJob{}).
		Where("user_id = ? AND id <> ?", userID, newest.ID).
		Order("started_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *syncJobRepository) DeleteByIDs(userID string, ids []string) (int, []error) {
	return deleteInChunks(ids, func(chunk []string) (int64, error) {
		result := r.db.Where("user_id = ? AND id IN ?", userID, chunk).Delete(&syncdomain.SyncJob{})
		return result.RowsAffected, result.Error
	})
}

// deleteInChunks issues one delete per chunk of at most maxDeleteChunk ids.
// A failed chunk is recorded and the remaining chunks still run.
func deleteInChunks(ids []string, del func(chunk []string) (int64, error)) (int, []error) {
	deleted := 0
	var errs []error

	for start := 0; start < len(ids); start += maxDeleteChunk {
		end := start + maxDeleteChunk
		if end > len(ids) {
			end = len(ids)
		}

		n, err := del(ids[start:end])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		deleted += int(n)
	}

	return deleted, errs
}
