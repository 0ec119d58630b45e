package delivery

import (
	"net/http"
	"strconv"
	"time"

	"nexcrm-backend/internal/sync/domain"
	"nexcrm-backend/internal/sync/dto"
	"nexcrm-backend/internal/sync/repository"
	"nexcrm-backend/internal/sync/usecase"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	runner   *usecase.Runner
	jobs     repository.SyncJobRepository
	settings repository.SyncSettingsRepository
	accounts repository.GoogleAccountRepository
}

func NewSyncHandler(runner *usecase.Runner, jobs repository.SyncJobRepository, settings repository.SyncSettingsRepository, accounts repository.GoogleAccountRepository) *SyncHandler {
	return &SyncHandler{
		runner:   runner,
		jobs:     jobs,
		settings: settings,
		accounts: accounts,
	}
}

// Sync runs one sync job for the caller. GET /api/gmail/sync?type=initial|incremental|auto
func (h *SyncHandler) Sync(c *gin.Context) {
	userID := c.GetString("userID")

	syncType := domain.SyncType(c.DefaultQuery("type", string(domain.SyncTypeAuto)))
	switch syncType {
	case domain.SyncTypeInitial, domain.SyncTypeIncremental, domain.SyncTypeAuto:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be initial, incremental or auto"})
		return
	}

	result := h.runner.RunSyncJob(c.Request.Context(), userID, syncType)
	h.respond(c, result)
}

// SyncScheduled handles POST /api/gmail/sync-scheduled. With a userId query
// parameter it runs one user's sync (the id must match the session). Without
// one it requires the cron secret (enforced by middleware on the route) and
// syncs every linked account sequentially.
func (h *SyncHandler) SyncScheduled(c *gin.Context) {
	if targetID := c.Query("userId"); targetID != "" {
		userID := c.GetString("userID")
		if targetID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "userId does not match the authenticated user"})
			return
		}
		result := h.runner.RunSyncJob(c.Request.Context(), userID, domain.SyncTypeAuto)
		h.respond(c, result)
		return
	}

	results := h.runner.RunSyncForAllUsers(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ClearHistory deletes all job records except the most recent.
// DELETE /api/sync-jobs/clear
func (h *SyncHandler) ClearHistory(c *gin.Context) {
	userID := c.GetString("userID")

	result := h.runner.ClearSyncHistory(userID)
	c.JSON(http.StatusOK, dto.ClearHistoryResponse{
		Success: result.Success,
		Deleted: result.Deleted,
		Errors:  result.Errors,
	})
}

// ListJobs returns the sync job history, newest first. GET /api/sync-jobs
func (h *SyncHandler) ListJobs(c *gin.Context) {
	userID := c.GetString("userID")

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	jobs, err := h.jobs.ListByUser(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []domain.SyncJob{}
	}
	c.JSON(http.StatusOK, dto.SyncJobsResponse{Jobs: jobs})
}

// GetSettings returns the caller's sync settings. GET /api/sync-settings
func (h *SyncHandler) GetSettings(c *gin.Context) {
	userID := c.GetString("userID")

	settings, err := h.settings.Get(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.SyncSettingsResponse{AutoSyncEnabled: true}
	if settings != nil {
		resp.LastSyncHistoryID = settings.LastSyncHistoryID
		resp.LastSyncAt = settings.LastSyncAt
		resp.AutoSyncEnabled = settings.AutoSyncEnabled
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateSettings toggles auto sync. PUT /api/sync-settings
func (h *SyncHandler) UpdateSettings(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.UpdateSyncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.settings.Get(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if settings == nil {
		settings = &domain.SyncSettings{UserID: userID}
	}
	settings.AutoSyncEnabled = *req.AutoSyncEnabled

	if err := h.settings.Save(settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.SyncSettingsResponse{
		LastSyncHistoryID: settings.LastSyncHistoryID,
		LastSyncAt:        settings.LastSyncAt,
		AutoSyncEnabled:   settings.AutoSyncEnabled,
	})
}

// LinkAccount stores a linked mailbox account. POST /api/gmail/link
func (h *SyncHandler) LinkAccount(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.LinkAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account := &domain.GoogleAccount{
		UserID:       userID,
		Email:        req.Email,
		Provider:     req.Provider,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		IMAPHost:     req.IMAPHost,
		IMAPPort:     req.IMAPPort,
		IMAPPassword: req.IMAPPassword,
	}
	if account.Provider == "" {
		account.Provider = "gmail"
	}
	if req.ExpiresAt != "" {
		if expiry, err := time.Parse(time.RFC3339, req.ExpiresAt); err == nil {
			account.TokenExpiry = expiry
		}
	}

	if err := h.accounts.Save(account); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "email": account.Email, "provider": account.Provider})
}

// UnlinkAccount removes the linked account. DELETE /api/gmail/link
func (h *SyncHandler) UnlinkAccount(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.accounts.Delete(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// respond maps a run result onto the HTTP status taxonomy: 401 for dead
// refresh tokens, 403 when no account is linked, 429 for provider quota,
// 500 for everything else.
func (h *SyncHandler) respond(c *gin.Context, result *usecase.RunResult) {
	resp := dto.SyncResponse{
		Success:           result.Success,
		SyncJobID:         result.SyncJobID,
		Mode:              result.Mode,
		ProcessedThreads:  result.ProcessedThreads,
		ProcessedMessages: result.ProcessedMessages,
		Errors:            result.Errors,
		ErrorMessage:      result.ErrorMessage,
	}

	if result.Success {
		c.JSON(http.StatusOK, resp)
		return
	}

	switch {
	case result.ReauthRequired:
		c.JSON(http.StatusUnauthorized, gin.H{"error": result.ErrorMessage, "reauthRequired": true})
	case result.NotLinked:
		c.JSON(http.StatusForbidden, gin.H{"error": result.ErrorMessage, "notLinked": true})
	case result.QuotaExceeded:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": result.ErrorMessage, "quotaExceeded": true})
	default:
		c.JSON(http.StatusInternalServerError, resp)
	}
}
