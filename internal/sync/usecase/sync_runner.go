package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"nexcrm-backend/internal/sync/domain"
	"nexcrm-backend/internal/sync/repository"
)

// incrementalEligibility is the staleness ceiling for the change-stream
// cursor. Beyond it providers may have expired the history, so auto mode
// falls back to a full pass.
const incrementalEligibility = 30 * 24 * time.Hour

// defaultFullSyncMax caps how many threads one full pass ingests
const defaultFullSyncMax = 200

// IMAPFetcher pulls recent inbox messages for accounts linked over plain
// IMAP instead of the Gmail API.
type IMAPFetcher interface {
	FetchRecent(ctx context.Context, host string, port int, username, password string, limit int) ([]domain.NormalizedMessage, error)
}

// RunResult is the outcome of one tracked sync run, including the mode the
// runner actually selected when the caller asked for auto.
type RunResult struct {
	Success           bool               `json:"success"`
	UserID            string             `json:"user_id"`
	SyncJobID         string             `json:"sync_job_id"`
	Mode              domain.SyncType    `json:"mode"`
	ProcessedThreads  int                `json:"processed_threads"`
	ProcessedMessages int                `json:"processed_messages"`
	Errors            []domain.ItemError `json:"errors,omitempty"`
	ErrorMessage      string             `json:"error_message,omitempty"`

	// Failure classification for the HTTP layer
	NotLinked      bool `json:"not_linked,omitempty"`
	ReauthRequired bool `json:"reauth_required,omitempty"`
	QuotaExceeded  bool `json:"quota_exceeded,omitempty"`
}

// ClearHistoryResult reports the outcome of a sync-history purge
type ClearHistoryResult struct {
	Success bool `json:"success"`
	Deleted int  `json:"deleted"`
	Errors  int  `json:"errors"`
}

// Runner wraps engine passes in persistent job records and owns the
// advance of the incremental cursor.
type Runner struct {
	jobs        repository.SyncJobRepository
	settings    repository.SyncSettingsRepository
	accounts    repository.GoogleAccountRepository
	tokens      *TokenProvider
	engine      *Engine
	imap        IMAPFetcher
	fullSyncMax int64
}

func NewRunner(jobs repository.SyncJobRepository, settings repository.SyncSettingsRepository, accounts repository.GoogleAccountRepository, tokens *TokenProvider, engine *Engine, imap IMAPFetcher) *Runner {
	return &Runner{
		jobs:        jobs,
		settings:    settings,
		accounts:    accounts,
		tokens:      tokens,
		engine:      engine,
		imap:        imap,
		fullSyncMax: defaultFullSyncMax,
	}
}

// RunSyncJob executes one tracked sync for the user. An auto request picks
// incremental when a cursor exists and the last successful sync is within
// the eligibility window, otherwise a full pass. The job record captures
// counts and the failure message either way.
func (r *Runner) RunSyncJob(ctx context.Context, userID string, syncType domain.SyncType) *RunResult {
	job := &domain.SyncJob{
		UserID:    userID,
		Type:      syncType,
		Status:    domain.SyncStatusRunning,
		StartedAt: time.Now(),
	}
	if err := r.jobs.Create(job); err != nil {
		log.Printf("[SyncRunner] Failed to create sync job for user %s: %v", userID, err)
		return &RunResult{Success: false, UserID: userID, ErrorMessage: "failed to create sync job"}
	}

	result := &RunResult{UserID: userID, SyncJobID: job.ID}

	settings, err := r.settings.Get(userID)
	if err != nil {
		r.failJob(job, result, err)
		return result
	}

	mode := r.resolveMode(syncType, settings, time.Now())
	result.Mode = mode

	account, err := r.accounts.FindByUserID(userID)
	if err != nil {
		r.failJob(job, result, err)
		return result
	}
	if account == nil {
		r.failJob(job, result, domain.ErrNotLinked)
		return result
	}

	var syncResult *domain.SyncResult
	var syncErr error

	if account.Provider == "imap" {
		syncResult, syncErr = r.runIMAP(ctx, userID, account)
	} else {
		accessToken, tokenErr := r.tokens.GetAccessToken(ctx, userID)
		if tokenErr != nil {
			r.failJob(job, result, tokenErr)
			return result
		}

		switch mode {
		case domain.SyncTypeIncremental:
			syncResult, syncErr = r.engine.PerformIncrementalSync(ctx, userID, accessToken, settings.LastSyncHistoryID)
		default:
			syncResult, syncErr = r.engine.PerformFullSync(ctx, userID, accessToken, r.fullSyncMax)
		}
	}

	if syncResult != nil {
		result.ProcessedThreads = syncResult.ProcessedThreads
		result.ProcessedMessages = syncResult.ProcessedMessages
		result.Errors = syncResult.Errors
		job.ProcessedThreads = syncResult.ProcessedThreads
		job.ProcessedMessages = syncResult.ProcessedMessages
	}

	if syncErr != nil {
		r.failJob(job, result, syncErr)
		return result
	}

	if err := r.advanceCursor(userID, settings, syncResult); err != nil {
		log.Printf("[SyncRunner] Failed to save sync cursor for user %s: %v", userID, err)
	}

	now := time.Now()
	job.Status = domain.SyncStatusComplete
	job.FinishedAt = &now
	if err := r.jobs.Update(job); err != nil {
		log.Printf("[SyncRunner] Failed to finalize sync job %s: %v", job.ID, err)
	}

	result.Success = true
	log.Printf("[SyncRunner] Sync %s complete for user %s: %d threads, %d messages, %d item errors",
		mode, userID, result.ProcessedThreads, result.ProcessedMessages, len(result.Errors))
	return result
}

// RunSyncForAllUsers runs an auto sync for every linked account in turn.
// One user's failure never stops the rest.
func (r *Runner) RunSyncForAllUsers(ctx context.Context) []RunResult {
	accounts, err := r.accounts.ListAll()
	if err != nil {
		log.Printf("[SyncRunner] Failed to list linked accounts: %v", err)
		return nil
	}

	results := make([]RunResult, 0, len(accounts))
	for _, account := range accounts {
		settings, err := r.settings.Get(account.UserID)
		if err == nil && settings != nil && !settings.AutoSyncEnabled {
			continue
		}
		result := r.RunSyncJob(ctx, account.UserID, domain.SyncTypeAuto)
		results = append(results, *result)
	}
	return results
}

// ClearSyncHistory removes every sync job record except the most recent one.
// Deletion runs in independent chunks; a failed chunk is counted and the
// rest still run.
func (r *Runner) ClearSyncHistory(userID string) *ClearHistoryResult {
	ids, err := r.jobs.ListIDsExceptMostRecent(userID)
	if err != nil {
		log.Printf("[SyncRunner] Failed to list sync history for user %s: %v", userID, err)
		return &ClearHistoryResult{Success: false}
	}
	if len(ids) == 0 {
		return &ClearHistoryResult{Success: true}
	}

	deleted, errs := r.jobs.DeleteByIDs(userID, ids)
	for _, e := range errs {
		log.Printf("[SyncRunner] Sync history chunk delete failed for user %s: %v", userID, e)
	}
	return &ClearHistoryResult{
		Success: len(errs) == 0,
		Deleted: deleted,
		Errors:  len(errs),
	}
}

// resolveMode picks the effective sync mode. Incremental needs both a saved
// cursor and a recent-enough last sync; explicit incremental requests
// without either also fall back to full.
func (r *Runner) resolveMode(requested domain.SyncType, settings *domain.SyncSettings, now time.Time) domain.SyncType {
	if requested == domain.SyncTypeInitial {
		return domain.SyncTypeInitial
	}
	if incrementalEligible(settings, now) {
		return domain.SyncTypeIncremental
	}
	return domain.SyncTypeInitial
}

func incrementalEligible(settings *domain.SyncSettings, now time.Time) bool {
	return settings != nil &&
		settings.LastSyncHistoryID > 0 &&
		settings.LastSyncAt != nil &&
		now.Sub(*settings.LastSyncAt) <= incrementalEligibility
}

func (r *Runner) runIMAP(ctx context.Context, userID string, account *domain.GoogleAccount) (*domain.SyncResult, error) {
	msgs, err := r.imap.FetchRecent(ctx, account.IMAPHost, account.IMAPPort, account.Email, account.IMAPPassword, int(r.fullSyncMax))
	if err != nil {
		return nil, err
	}
	return r.engine.IngestMessages(ctx, userID, msgs), nil
}

// advanceCursor persists the new history cursor and last-sync timestamp
// after a successful pass. A pass that produced no cursor (IMAP, or an
// empty mailbox) still stamps LastSyncAt.
func (r *Runner) advanceCursor(userID string, settings *domain.SyncSettings, result *domain.SyncResult) error {
	if settings == nil {
		settings = &domain.SyncSettings{UserID: userID, AutoSyncEnabled: true}
	}
	if result != nil && result.HistoryID > 0 {
		settings.LastSyncHistoryID = result.HistoryID
	}
	now := time.Now()
	settings.LastSyncAt = &now
	return r.settings.Save(settings)
}

func (r *Runner) failJob(job *domain.SyncJob, result *RunResult, err error) {
	now := time.Now()
	job.Status = domain.SyncStatusError
	job.FinishedAt = &now
	job.ErrorMessage = err.Error()
	if len(result.Errors) > 0 {
		details := make([]string, 0, len(result.Errors))
		for _, item := range result.Errors {
			details = append(details, item.Error())
		}
		job.ErrorMessage = err.Error() + "; " + strings.Join(details, "; ")
	}
	if updateErr := r.jobs.Update(job); updateErr != nil {
		log.Printf("[SyncRunner] Failed to record sync job failure %s: %v", job.ID, updateErr)
	}
	result.Success = false
	result.ErrorMessage = err.Error()
	result.NotLinked = errors.Is(err, domain.ErrNotLinked)
	result.ReauthRequired = errors.Is(err, domain.ErrReauthRequired)
	result.QuotaExceeded = domain.IsQuotaExceeded(err)
	log.Printf("[SyncRunner] Sync failed for user %s: %v", job.UserID, err)
}
