package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	authrepo "nexcrm-backend/internal/auth/repository"
	syncdomain "nexcrm-backend/internal/sync/domain"
	syncrepo "nexcrm-backend/internal/sync/repository"
	"nexcrm-backend/internal/sync/usecase"
	"nexcrm-backend/pkg/fcm"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// MailboxNotification is the payload Gmail publishes to the watch topic
type MailboxNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service consumes Gmail watch pushes from Pub/Sub and turns each one into
// an incremental sync for the owning user. Duplicate pushes for a history id
// already seen are dropped.
type Service struct {
	pubsubClient *pubsub.Client
	accounts     syncrepo.GoogleAccountRepository
	fcmRepo      authrepo.FCMTokenRepository
	fcmClient    *fcm.Client
	runner       *usecase.Runner
	projectID    string
	topicName    string
	subName      string

	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(projectID, topicName string, accounts syncrepo.GoogleAccountRepository, fcmRepo authrepo.FCMTokenRepository, fcmClient *fcm.Client, runner *usecase.Runner, credentialsFile string) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient:  client,
		accounts:      accounts,
		fcmRepo:       fcmRepo,
		fcmClient:     fcmClient,
		runner:        runner,
		projectID:     projectID,
		topicName:     topicName,
		subName:       topicName + "-sub", // Convention: topic-sub
		lastHistoryID: make(map[string]uint64),
	}, nil
}

// Start ensures the subscription exists and blocks receiving messages until
// the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification MailboxNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	account, err := s.accounts.FindByEmail(notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding account for %s: %v", notification.EmailAddress, err)
		return
	}
	if account == nil {
		log.Printf("[PubSub] No linked account for %s", notification.EmailAddress)
		return
	}

	if !s.shouldProcess(account.UserID, notification.HistoryID) {
		log.Printf("[PubSub] Skipping duplicate notification for user %s (historyId %d)", account.UserID, notification.HistoryID)
		return
	}

	go s.runIncremental(account.UserID)
}

// shouldProcess records and deduplicates history ids per user
func (s *Service) shouldProcess(userID string, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastHistoryID[userID]; ok && historyID <= last {
		return false
	}
	s.lastHistoryID[userID] = historyID
	return true
}

func (s *Service) runIncremental(userID string) {
	result := s.runner.RunSyncJob(context.Background(), userID, syncdomain.SyncTypeAuto)
	if !result.Success {
		log.Printf("[PubSub] Push-triggered sync failed for user %s: %s", userID, result.ErrorMessage)
		return
	}
	if result.ProcessedMessages == 0 {
		return
	}

	s.notifyNewMail(userID, result)
}

func (s *Service) notifyNewMail(userID string, result *usecase.RunResult) {
	if s.fcmClient == nil || s.fcmRepo == nil {
		return
	}

	tokens, err := s.fcmRepo.GetTokensByUserID(userID)
	if err != nil {
		log.Printf("[FCM] Error getting tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	var tokenStrings []string
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	failedTokens, err := s.fcmClient.SendToDevices(context.Background(), tokenStrings, fcm.NotificationData{
		Title: "New mail",
		Body:  fmt.Sprintf("%d new messages in your inbox", result.ProcessedMessages),
		Data: map[string]string{
			"type":         "mail_update",
			"sync_job_id":  result.SyncJobID,
			"click_action": "/contacts",
		},
	})
	if err != nil {
		log.Printf("[FCM] Error sending notifications: %v", err)
		return
	}

	for _, token := range failedTokens {
		s.fcmRepo.DeleteToken(token)
	}
}
