package gmail

import (
	"encoding/base64"
	"strings"
	"time"

	syncdomain "nexcrm-backend/internal/sync/domain"

	"google.golang.org/api/gmail/v1"
)

// Normalize maps a raw Gmail message payload onto the flat record the sync
// pipeline stores. Pure function: header names are matched case-insensitively,
// the body is decoded from the top-level body or the first body part only,
// and the millisecond internal timestamp becomes a time.Time.
func Normalize(msg *gmail.Message) syncdomain.NormalizedMessage {
	normalized := syncdomain.NormalizedMessage{
		MessageID: msg.Id,
		ThreadID:  msg.ThreadId,
		SentAt:    time.Unix(msg.InternalDate/1000, 0),
	}

	if msg.Payload == nil {
		return normalized
	}

	normalized.From = getHeader(msg.Payload.Headers, "from")
	normalized.Subject = getHeader(msg.Payload.Headers, "subject")
	if to := getHeader(msg.Payload.Headers, "to"); to != "" {
		normalized.To = splitAddressList(to)
	}
	normalized.BodyPlain = getMessageBody(msg.Payload)

	return normalized
}

// getHeader resolves a header case-insensitively; name must be lowercase
func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.ToLower(header.Name) == name {
			return header.Value
		}
	}
	return ""
}

// getMessageBody decodes the base64url body from the top-level payload, or
// from the first body part carrying data. Multipart alternatives beyond the
// first part are ignored.
func getMessageBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data)
		}
	}

	if len(payload.Parts) > 0 {
		part := payload.Parts[0]
		if part.Body != nil && part.Body.Data != "" {
			if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				return string(data)
			}
		}
	}

	return ""
}

func splitAddressList(header string) []string {
	parts := strings.Split(header, ",")
	addresses := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			addresses = append(addresses, trimmed)
		}
	}
	return addresses
}
