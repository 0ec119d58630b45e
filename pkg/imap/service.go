package imap

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	syncdomain "nexcrm-backend/internal/sync/domain"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// Service reads recent inbox mail over plain IMAP for accounts that are not
// linked through the Gmail API. IMAP has no conversation ids, so each message
// becomes its own single-message thread downstream.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// FetchRecent connects over TLS, selects INBOX and fetches the newest limit
// messages, normalized to the sync pipeline's message shape.
func (s *Service) FetchRecent(ctx context.Context, host string, port int, username, password string, limit int) ([]syncdomain.NormalizedMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	c, err := client.DialTLS(fmt.Sprintf("%s:%d", host, port), nil)
	if err != nil {
		return nil, fmt.Errorf("imap dial failed: %w", err)
	}
	defer c.Logout()

	if err := c.Login(username, password); err != nil {
		return nil, fmt.Errorf("imap login failed: %w", err)
	}

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("imap select failed: %w", err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(limit) {
		from = mbox.Messages - uint32(limit) + 1
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, limit)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var result []syncdomain.NormalizedMessage
	for msg := range messages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		normalized, err := normalizeMessage(msg, section)
		if err != nil {
			log.Printf("[IMAP] Skipping message %d: %v", msg.Uid, err)
			continue
		}
		result = append(result, normalized)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch failed: %w", err)
	}

	return result, nil
}

func normalizeMessage(msg *imap.Message, section *imap.BodySectionName) (syncdomain.NormalizedMessage, error) {
	env := msg.Envelope
	if env == nil {
		return syncdomain.NormalizedMessage{}, fmt.Errorf("no envelope")
	}

	messageID := strings.Trim(env.MessageId, "<>")
	if messageID == "" {
		messageID = fmt.Sprintf("imap-%d", msg.Uid)
	}

	normalized := syncdomain.NormalizedMessage{
		MessageID: messageID,
		ThreadID:  messageID,
		Subject:   env.Subject,
		SentAt:    env.Date,
	}

	if len(env.From) > 0 {
		normalized.From = formatAddress(env.From[0])
	}
	for _, addr := range env.To {
		normalized.To = append(normalized.To, addr.Address())
	}

	if body := msg.GetBody(section); body != nil {
		normalized.BodyPlain = extractPlainText(body)
	}

	return normalized, nil
}

func formatAddress(addr *imap.Address) string {
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", addr.PersonalName, addr.Address())
	}
	return addr.Address()
}

// extractPlainText walks the MIME structure and returns the first text part
func extractPlainText(body io.Reader) string {
	mr, err := mail.CreateReader(body)
	if err != nil {
		return ""
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ""
		}

		if _, ok := part.Header.(*mail.InlineHeader); ok {
			data, err := io.ReadAll(part.Body)
			if err == nil && len(data) > 0 {
				return string(data)
			}
		}
	}

	return ""
}
