package gmail

import (
	"context"
	"fmt"

	syncdomain "nexcrm-backend/internal/sync/domain"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Service is the Gmail-backed MailboxProvider. Token acquisition and refresh
// live in the sync token provider; this adapter only consumes bearer tokens.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// gmailClient creates a Gmail API client bound to an already-valid access token
func (s *Service) gmailClient(ctx context.Context, accessToken string) (*gmail.Service, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})

	srv, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// ListThreads returns up to maxResults of the user's most recent threads
func (s *Service) ListThreads(ctx context.Context, accessToken string, maxResults int64) ([]syncdomain.ThreadRef, error) {
	srv, err := s.gmailClient(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if maxResults <= 0 {
		maxResults = 100
	}
	if maxResults > 500 {
		maxResults = 500 // Gmail API maximum
	}

	resp, err := srv.Users.Threads.List("me").MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list threads: %w", err)
	}

	refs := make([]syncdomain.ThreadRef, 0, len(resp.Threads))
	for _, t := range resp.Threads {
		refs = append(refs, syncdomain.ThreadRef{ThreadID: t.Id})
	}
	return refs, nil
}

// GetThread fetches full thread detail and normalizes every message in it
func (s *Service) GetThread(ctx context.Context, accessToken, threadID string) (*syncdomain.ThreadDetail, error) {
	srv, err := s.gmailClient(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	thread, err := srv.Users.Threads.Get("me", threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve thread %s: %w", threadID, err)
	}

	detail := &syncdomain.ThreadDetail{
		ThreadID:  thread.Id,
		HistoryID: thread.HistoryId,
		Messages:  make([]syncdomain.NormalizedMessage, 0, len(thread.Messages)),
	}
	for _, msg := range thread.Messages {
		detail.Messages = append(detail.Messages, Normalize(msg))
	}
	return detail, nil
}

// GetMessage fetches a single message and normalizes it
func (s *Service) GetMessage(ctx context.Context, accessToken, messageID string) (*syncdomain.NormalizedMessage, error) {
	srv, err := s.gmailClient(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message %s: %w", messageID, err)
	}

	normalized := Normalize(msg)
	return &normalized, nil
}

// ListHistory pages through the change stream from startHistoryID, filtered
// to message-added events, and returns the provider's new cursor.
func (s *Service) ListHistory(ctx context.Context, accessToken string, startHistoryID uint64) ([]syncdomain.MessageAddedRef, uint64, error) {
	srv, err := s.gmailClient(ctx, accessToken)
	if err != nil {
		return nil, 0, err
	}

	var added []syncdomain.MessageAddedRef
	var newHistoryID uint64
	pageToken := ""

	for {
		call := srv.Users.History.List("me").
			StartHistoryId(startHistoryID).
			HistoryTypes("messageAdded").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, 0, fmt.Errorf("unable to list history: %w", err)
		}

		if resp.HistoryId > newHistoryID {
			newHistoryID = resp.HistoryId
		}

		for _, h := range resp.History {
			for _, ma := range h.MessagesAdded {
				if ma.Message == nil {
					continue
				}
				added = append(added, syncdomain.MessageAddedRef{
					MessageID: ma.Message.Id,
					ThreadID:  ma.Message.ThreadId,
				})
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return added, newHistoryID, nil
}

// Watch sets up push notifications for the user's mailbox
func (s *Service) Watch(ctx context.Context, accessToken, topicName string) (uint64, error) {
	srv, err := s.gmailClient(ctx, accessToken)
	if err != nil {
		return 0, err
	}

	// Clear any existing watch first to avoid the single-client limit
	_ = srv.Users.Stop("me").Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	resp, err := srv.Users.Watch("me", req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to watch mailbox: %w", err)
	}
	return resp.HistoryId, nil
}

// Stop stops push notifications for the user's mailbox
func (s *Service) Stop(ctx context.Context, accessToken string) error {
	srv, err := s.gmailClient(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := srv.Users.Stop("me").Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %w", err)
	}
	return nil
}

// GetProfile validates the access token and returns the mailbox address
func (s *Service) GetProfile(ctx context.Context, accessToken string) (string, uint64, error) {
	srv, err := s.gmailClient(ctx, accessToken)
	if err != nil {
		return "", 0, err
	}

	profile, err := srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("unable to fetch profile: %w", err)
	}
	return profile.EmailAddress, profile.HistoryId, nil
}
