package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	contactdomain "nexcrm-backend/internal/contact/domain"
	syncdomain "nexcrm-backend/internal/sync/domain"
	"nexcrm-backend/internal/sync/repository"

	"gorm.io/datatypes"
)

// ContactResolver is the slice of the contact repository the engine needs:
// sender-to-contact resolution and the last-email touch after ingestion.
type ContactResolver interface {
	FindIDByEmail(userID, email string) (string, error)
	TouchLastEmail(userID, contactID string, lastEmail time.Time) error
}

// Engine orchestrates full and incremental mailbox synchronization. Both
// modes are idempotent: messages are keyed by provider id and all writes are
// merge-upserts, so replaying already-seen data never duplicates records.
type Engine struct {
	provider syncdomain.MailboxProvider
	threads  repository.ThreadRepository
	messages repository.MessageRepository
	contacts ContactResolver
}

func NewEngine(provider syncdomain.MailboxProvider, threads repository.ThreadRepository, messages repository.MessageRepository, contacts ContactResolver) *Engine {
	return &Engine{
		provider: provider,
		threads:  threads,
		messages: messages,
		contacts: contacts,
	}
}

// PerformIncrementalSync replays the provider change stream from
// lastHistoryID. Per-message failures are recorded and skipped; a failure of
// the history fetch itself is fatal for the pass and returned after being
// appended to the error list.
func (e *Engine) PerformIncrementalSync(ctx context.Context, userID, accessToken string, lastHistoryID uint64) (*syncdomain.SyncResult, error) {
	result := &syncdomain.SyncResult{}

	added, newHistoryID, err := e.provider.ListHistory(ctx, accessToken, lastHistoryID)
	if err != nil {
		result.Errors = append(result.Errors, syncdomain.NewItemError("history.list", err))
		return result, fmt.Errorf("history fetch failed: %w", err)
	}
	result.HistoryID = newHistoryID

	threadsTouched := make(map[string]struct{})
	for _, ref := range added {
		msg, err := e.provider.GetMessage(ctx, accessToken, ref.MessageID)
		if err != nil {
			result.Errors = append(result.Errors, syncdomain.NewItemError(ref.MessageID, err))
			continue
		}

		if _, err := e.ingestMessage(ctx, userID, msg, false); err != nil {
			result.Errors = append(result.Errors, syncdomain.NewItemError(ref.MessageID, err))
			continue
		}

		threadsTouched[msg.ThreadID] = struct{}{}
		result.ProcessedMessages++
	}

	result.ProcessedThreads = len(threadsTouched)
	return result, nil
}

// PerformFullSync lists the most recent maxResults threads and ingests every
// message in each. Per-thread failures are recorded; remaining threads keep
// processing. The highest thread HistoryID seen becomes the new cursor.
func (e *Engine) PerformFullSync(ctx context.Context, userID, accessToken string, maxResults int64) (*syncdomain.SyncResult, error) {
	result := &syncdomain.SyncResult{}

	refs, err := e.provider.ListThreads(ctx, accessToken, maxResults)
	if err != nil {
		result.Errors = append(result.Errors, syncdomain.NewItemError("threads.list", err))
		return result, fmt.Errorf("thread listing failed: %w", err)
	}

	for _, ref := range refs {
		detail, err := e.provider.GetThread(ctx, accessToken, ref.ThreadID)
		if err != nil {
			result.Errors = append(result.Errors, syncdomain.NewItemError(ref.ThreadID, err))
			continue
		}

		if detail.HistoryID > result.HistoryID {
			result.HistoryID = detail.HistoryID
		}

		thread := &syncdomain.EmailThread{
			UserID:       userID,
			ThreadID:     detail.ThreadID,
			HistoryID:    detail.HistoryID,
			NeedsSummary: true,
		}
		if len(detail.Messages) > 0 {
			thread.Subject = detail.Messages[0].Subject
			thread.LastMessageAt = latestSentAt(detail.Messages)
		}
		if err := e.threads.Upsert(thread, false); err != nil {
			result.Errors = append(result.Errors, syncdomain.NewItemError(ref.ThreadID, err))
			continue
		}
		result.ProcessedThreads++

		for i := range detail.Messages {
			msg := detail.Messages[i]
			if _, err := e.ingestMessage(ctx, userID, &msg, true); err != nil {
				result.Errors = append(result.Errors, syncdomain.NewItemError(msg.MessageID, err))
				continue
			}
			result.ProcessedMessages++
		}
	}

	return result, nil
}

// IngestMessages feeds already-normalized messages (the IMAP path, which has
// no history cursor) through the same per-message pipeline.
func (e *Engine) IngestMessages(ctx context.Context, userID string, msgs []syncdomain.NormalizedMessage) *syncdomain.SyncResult {
	result := &syncdomain.SyncResult{}
	threadsTouched := make(map[string]struct{})

	for i := range msgs {
		msg := msgs[i]
		if _, err := e.ingestMessage(ctx, userID, &msg, false); err != nil {
			result.Errors = append(result.Errors, syncdomain.NewItemError(msg.MessageID, err))
			continue
		}
		threadsTouched[msg.ThreadID] = struct{}{}
		result.ProcessedMessages++
	}

	result.ProcessedThreads = len(threadsTouched)
	return result
}

// ingestMessage upserts one message document, resolves the sender to a
// contact, merge-upserts the thread (ContactID only written when resolution
// succeeded this pass) and touches the contact's last-email date. On the
// full-sync path the calling loop already wrote the thread row, so the
// thread is only re-upserted when a contact was resolved.
func (e *Engine) ingestMessage(ctx context.Context, userID string, msg *syncdomain.NormalizedMessage, threadAlreadyWritten bool) (string, error) {
	toJSON, err := json.Marshal(msg.To)
	if err != nil {
		toJSON = []byte("[]")
	}

	record := &syncdomain.EmailMessage{
		UserID:    userID,
		MessageID: msg.MessageID,
		ThreadID:  msg.ThreadID,
		From:      msg.From,
		To:        datatypes.JSON(toJSON),
		Subject:   msg.Subject,
		BodyPlain: msg.BodyPlain,
		SentAt:    msg.SentAt,
	}
	if err := e.messages.Upsert(record); err != nil {
		return "", fmt.Errorf("message upsert failed: %w", err)
	}

	senderEmail := contactdomain.NormalizeEmail(msg.SenderEmail())
	contactID, err := e.contacts.FindIDByEmail(userID, senderEmail)
	if err != nil {
		return "", fmt.Errorf("contact lookup failed: %w", err)
	}

	if !threadAlreadyWritten || contactID != "" {
		thread := &syncdomain.EmailThread{
			UserID:        userID,
			ThreadID:      msg.ThreadID,
			ContactID:     contactID,
			Subject:       msg.Subject,
			LastMessageAt: msg.SentAt,
			NeedsSummary:  true,
		}
		if err := e.threads.Upsert(thread, contactID != ""); err != nil {
			return "", fmt.Errorf("thread upsert failed: %w", err)
		}
	}

	if contactID != "" {
		if err := e.contacts.TouchLastEmail(userID, contactID, msg.SentAt); err != nil {
			return "", fmt.Errorf("contact touch failed: %w", err)
		}
	}

	return contactID, nil
}

func latestSentAt(msgs []syncdomain.NormalizedMessage) time.Time {
	var latest time.Time
	for _, m := range msgs {
		if m.SentAt.After(latest) {
			latest = m.SentAt
		}
	}
	return latest
}
