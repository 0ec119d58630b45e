package domain

import (
	"time"

	"gorm.io/datatypes"
)

// SyncType is the requested kind of sync run
type SyncType string

const (
	SyncTypeInitial     SyncType = "initial"
	SyncTypeIncremental SyncType = "incremental"
	SyncTypeAuto        SyncType = "auto"
)

// SyncStatus is the lifecycle state of a sync job record
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusRunning  SyncStatus = "running"
	SyncStatusComplete SyncStatus = "complete"
	SyncStatusError    SyncStatus = "error"
)

// EmailThread mirrors one provider-side conversation.
// ContactID stays empty until the sender resolves to a known contact;
// once set it is authoritative for the thread.
type EmailThread struct {
	ID            string         `json:"id" gorm:"primaryKey"`
	UserID        string         `json:"user_id" gorm:"index:idx_user_thread;not null"`
	ThreadID      string         `json:"thread_id" gorm:"index:idx_user_thread;uniqueIndex:idx_user_thread_unique;not null"`
	ContactID     string         `json:"contact_id" gorm:"index"`
	HistoryID     uint64         `json:"history_id"`
	Subject       string         `json:"subject"`
	LastMessageAt time.Time      `json:"last_message_at" gorm:"index"`
	Summary       datatypes.JSON `json:"summary,omitempty" gorm:"type:jsonb"`
	NeedsSummary  bool           `json:"needs_summary" gorm:"index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (EmailThread) TableName() string {
	return "email_threads"
}

// EmailMessage is keyed by the provider-assigned message id, so re-ingesting
// the same message overwrites in place instead of duplicating.
type EmailMessage struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	UserID    string         `json:"user_id" gorm:"index:idx_user_message;not null"`
	MessageID string         `json:"message_id" gorm:"index:idx_user_message;uniqueIndex:idx_user_message_unique;not null"`
	ThreadID  string         `json:"thread_id" gorm:"index"`
	From      string         `json:"from"`
	To        datatypes.JSON `json:"to" gorm:"type:jsonb"`
	Subject   string         `json:"subject"`
	BodyPlain string         `json:"body_plain" gorm:"type:text"`
	SentAt    time.Time      `json:"sent_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (EmailMessage) TableName() string {
	return "email_messages"
}

// SyncJob is one recorded execution of the sync pipeline
type SyncJob struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	UserID            string     `json:"user_id" gorm:"index;not null"`
	Type              SyncType   `json:"type"`
	Status            SyncStatus `json:"status" gorm:"index"`
	StartedAt         time.Time  `json:"started_at" gorm:"index"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	ProcessedThreads  int        `json:"processed_threads"`
	ProcessedMessages int        `json:"processed_messages"`
	ErrorMessage      string     `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (SyncJob) TableName() string {
	return "sync_jobs"
}

// SyncSettings holds the per-user incremental-sync cursor. Only the sync
// runner mutates it, and only after a successful pass.
type SyncSettings struct {
	UserID            string     `json:"user_id" gorm:"primaryKey"`
	LastSyncHistoryID uint64     `json:"last_sync_history_id"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	AutoSyncEnabled   bool       `json:"auto_sync_enabled" gorm:"default:true"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (SyncSettings) TableName() string {
	return "sync_settings"
}

// GoogleAccount is the per-user linked mailbox account and token cache.
// All token reads and writes go through the token provider; callers never
// touch this record directly.
type GoogleAccount struct {
	UserID       string    `json:"user_id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"index;not null"`
	Provider     string    `json:"provider" gorm:"default:gmail"` // "gmail" or "imap"
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"token_expiry"`

	// IMAP fallback accounts only
	IMAPHost     string `json:"imap_host,omitempty"`
	IMAPPort     int    `json:"imap_port,omitempty"`
	IMAPPassword string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GoogleAccount) TableName() string {
	return "google_accounts"
}
