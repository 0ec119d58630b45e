package usecase

import (
	"time"

	contactrepo "nexcrm-backend/internal/contact/repository"
	syncdomain "nexcrm-backend/internal/sync/domain"
	syncrepo "nexcrm-backend/internal/sync/repository"
)

// DashboardStats is the aggregate snapshot behind the dashboard page
type DashboardStats struct {
	TotalContacts          int64                `json:"total_contacts"`
	NewContactsLast30Days  int64                `json:"new_contacts_last_30_days"`
	ContactsBySegment      map[string]int64     `json:"contacts_by_segment"`
	ContactsByLeadSource   map[string]int64     `json:"contacts_by_lead_source"`
	AverageEngagementScore float64              `json:"average_engagement_score"`
	TotalThreads           int64                `json:"total_threads"`
	TotalMessages          int64                `json:"total_messages"`
	RecentSyncJobs         []syncdomain.SyncJob `json:"recent_sync_jobs"`
}

// StatsUsecase defines dashboard statistics logic
type StatsUsecase interface {
	GetDashboardStats(userID string) (*DashboardStats, error)
}

type statsUsecase struct {
	contacts contactrepo.ContactRepository
	threads  syncrepo.ThreadRepository
	messages syncrepo.MessageRepository
	jobs     syncrepo.SyncJobRepository
}

func NewStatsUsecase(contacts contactrepo.ContactRepository, threads syncrepo.ThreadRepository, messages syncrepo.MessageRepository, jobs syncrepo.SyncJobRepository) StatsUsecase {
	return &statsUsecase{
		contacts: contacts,
		threads:  threads,
		messages: messages,
		jobs:     jobs,
	}
}

func (u *statsUsecase) GetDashboardStats(userID string) (*DashboardStats, error) {
	stats := &DashboardStats{}

	var err error
	if stats.TotalContacts, err = u.contacts.CountByUser(userID); err != nil {
		return nil, err
	}
	if stats.NewContactsLast30Days, err = u.contacts.CountCreatedSince(userID, time.Now().AddDate(0, 0, -30)); err != nil {
		return nil, err
	}
	if stats.ContactsBySegment, err = u.contacts.CountBySegment(userID); err != nil {
		return nil, err
	}
	if stats.ContactsByLeadSource, err = u.contacts.CountByLeadSource(userID); err != nil {
		return nil, err
	}
	if stats.AverageEngagementScore, err = u.contacts.AverageEngagementScore(userID); err != nil {
		return nil, err
	}
	if stats.TotalThreads, err = u.threads.CountByUser(userID); err != nil {
		return nil, err
	}
	if stats.TotalMessages, err = u.messages.CountByUser(userID); err != nil {
		return nil, err
	}
	if stats.RecentSyncJobs, err = u.jobs.ListByUser(userID, 5); err != nil {
		return nil, err
	}
	if stats.RecentSyncJobs == nil {
		stats.RecentSyncJobs = []syncdomain.SyncJob{}
	}

	return stats, nil
}
