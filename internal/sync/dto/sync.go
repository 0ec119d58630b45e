package dto

import (
	"time"

	"nexcrm-backend/internal/sync/domain"
)

// SyncResponse is the HTTP shape of one sync run
type SyncResponse struct {
	Success           bool               `json:"success"`
	SyncJobID         string             `json:"sync_job_id,omitempty"`
	Mode              domain.SyncType    `json:"mode,omitempty"`
	ProcessedThreads  int                `json:"processed_threads"`
	ProcessedMessages int                `json:"processed_messages"`
	Errors            []domain.ItemError `json:"errors,omitempty"`
	ErrorMessage      string             `json:"error_message,omitempty"`
}

// SyncJobsResponse lists recorded sync jobs
type SyncJobsResponse struct {
	Jobs []domain.SyncJob `json:"jobs"`
}

// ClearHistoryResponse reports the outcome of a history purge
type ClearHistoryResponse struct {
	Success bool `json:"success"`
	Deleted int  `json:"deleted"`
	Errors  int  `json:"errors"`
}

// SyncSettingsResponse exposes the per-user sync state
type SyncSettingsResponse struct {
	LastSyncHistoryID uint64     `json:"last_sync_history_id"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	AutoSyncEnabled   bool       `json:"auto_sync_enabled"`
}

// UpdateSyncSettingsRequest toggles auto sync
type UpdateSyncSettingsRequest struct {
	AutoSyncEnabled *bool `json:"auto_sync_enabled" binding:"required"`
}

// LinkAccountRequest links a mailbox account for syncing. Gmail accounts
// carry OAuth tokens from the consent flow; IMAP accounts carry host
// credentials instead.
type LinkAccountRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Provider     string `json:"provider"` // "gmail" (default) or "imap"
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`

	IMAPHost     string `json:"imap_host"`
	IMAPPort     int    `json:"imap_port"`
	IMAPPassword string `json:"imap_password"`
}
