package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	authrepo "nexcrm-backend/internal/auth/repository"
	"nexcrm-backend/internal/sync/usecase"
	"nexcrm-backend/pkg/fcm"
)

// summaryDrainLimit caps how many pending threads each tick hands to the
// analysis workers
const summaryDrainLimit = 100

// AutoSyncScheduler periodically runs an auto sync for every linked account
// and pushes a notification to users whose mailbox picked up new messages.
type AutoSyncScheduler struct {
	runner    *usecase.Runner
	summaries *usecase.SummaryWorkerService
	fcmRepo   authrepo.FCMTokenRepository
	fcmClient *fcm.Client
	interval  time.Duration
	stopChan  chan struct{}
}

func NewAutoSyncScheduler(
	runner *usecase.Runner,
	summaries *usecase.SummaryWorkerService,
	fcmRepo authrepo.FCMTokenRepository,
	fcmClient *fcm.Client,
	interval time.Duration,
) *AutoSyncScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &AutoSyncScheduler{
		runner:    runner,
		summaries: summaries,
		fcmRepo:   fcmRepo,
		fcmClient: fcmClient,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *AutoSyncScheduler) Start() {
	log.Printf("[SyncScheduler] Starting auto-sync scheduler (interval: %s)", s.interval)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runPass()
			case <-s.stopChan:
				log.Println("[SyncScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *AutoSyncScheduler) Stop() {
	close(s.stopChan)
}

// runPass syncs every linked account, queues pending thread analyses and
// notifies users that received new mail.
func (s *AutoSyncScheduler) runPass() {
	results := s.runner.RunSyncForAllUsers(context.Background())

	for i := range results {
		result := results[i]
		if !result.Success || result.ProcessedMessages == 0 {
			continue
		}
		s.notifyUser(&result)
	}

	if s.summaries != nil {
		if queued, err := s.summaries.DrainPending(summaryDrainLimit); err != nil {
			log.Printf("[SyncScheduler] Failed to queue pending analyses: %v", err)
		} else if queued > 0 {
			log.Printf("[SyncScheduler] Queued %d threads for analysis", queued)
		}
	}
}

// notifyUser sends the sync-complete push to every registered device,
// pruning tokens the provider rejected.
func (s *AutoSyncScheduler) notifyUser(result *usecase.RunResult) {
	if s.fcmClient == nil || result.UserID == "" {
		return
	}

	tokens, err := s.fcmRepo.GetTokensByUserID(result.UserID)
	if err != nil {
		log.Printf("[SyncScheduler] Error getting FCM tokens for user %s: %v", result.UserID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	var tokenStrings []string
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	notification := fcm.NotificationData{
		Title: "Inbox synced",
		Body:  fmt.Sprintf("%d new messages across %d conversations", result.ProcessedMessages, result.ProcessedThreads),
		Data: map[string]string{
			"type":         "sync_complete",
			"sync_job_id":  result.SyncJobID,
			"click_action": "/contacts",
		},
	}

	failedTokens, err := s.fcmClient.SendToDevices(context.Background(), tokenStrings, notification)
	if err != nil {
		log.Printf("[SyncScheduler] Error sending sync notification to user %s: %v", result.UserID, err)
		return
	}
	for _, token := range failedTokens {
		s.fcmRepo.DeleteToken(token)
	}
}
