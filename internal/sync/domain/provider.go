package domain

import (
	"context"
	"strings"
	"time"
)

// NormalizedMessage is the flat shape every provider message is reduced to
// at the adapter boundary: headers resolved case-insensitively, body decoded,
// provider millisecond timestamp converted to time.Time.
type NormalizedMessage struct {
	MessageID string
	ThreadID  string
	From      string
	To        []string
	Subject   string
	BodyPlain string
	SentAt    time.Time
}

// SenderEmail pulls the bare address out of a "Name <addr>" From header.
func (m *NormalizedMessage) SenderEmail() string {
	if start := strings.Index(m.From, "<"); start >= 0 {
		if end := strings.Index(m.From[start:], ">"); end > 0 {
			return strings.TrimSpace(m.From[start+1 : start+end])
		}
	}
	return strings.TrimSpace(m.From)
}

// ThreadRef is a lightweight thread listing entry
type ThreadRef struct {
	ThreadID string
}

// ThreadDetail is a fully fetched thread with its messages already normalized
type ThreadDetail struct {
	ThreadID  string
	HistoryID uint64
	Messages  []NormalizedMessage
}

// MessageAddedRef is one "message added" event from the provider's change stream
type MessageAddedRef struct {
	MessageID string
	ThreadID  string
}

// MailboxProvider is the contract the sync engine runs against. The Gmail
// adapter implements it; tests use an in-memory fake.
type MailboxProvider interface {
	// ListThreads returns up to maxResults of the most recent threads
	ListThreads(ctx context.Context, accessToken string, maxResults int64) ([]ThreadRef, error)
	// GetThread fetches full thread detail including normalized messages
	GetThread(ctx context.Context, accessToken, threadID string) (*ThreadDetail, error)
	// GetMessage fetches and normalizes a single message
	GetMessage(ctx context.Context, accessToken, messageID string) (*NormalizedMessage, error)
	// ListHistory pages through the change stream from startHistoryID,
	// returning every message-added event and the provider's new cursor
	ListHistory(ctx context.Context, accessToken string, startHistoryID uint64) ([]MessageAddedRef, uint64, error)
}

// SyncResult is the outcome of one engine pass
type SyncResult struct {
	ProcessedThreads  int
	ProcessedMessages int
	HistoryID         uint64
	Errors            []ItemError
}
