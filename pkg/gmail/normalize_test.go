package gmail

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
)

func encodeBody(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestNormalize_FullMessage(t *testing.T) {
	msg := &gmail.Message{
		Id:           "m1",
		ThreadId:     "t1",
		InternalDate: 1767225600000, // 2026-01-01T00:00:00Z in millis
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Alice Example <alice@example.com>"},
				{Name: "SUBJECT", Value: "Quarterly review"},
				{Name: "To", Value: "me@example.com, Team <team@example.com>"},
			},
			Body: &gmail.MessagePartBody{Data: encodeBody("hello there")},
		},
	}

	normalized := Normalize(msg)

	assert.Equal(t, "m1", normalized.MessageID)
	assert.Equal(t, "t1", normalized.ThreadID)
	// Header lookup is case-insensitive
	assert.Equal(t, "Alice Example <alice@example.com>", normalized.From)
	assert.Equal(t, "Quarterly review", normalized.Subject)
	assert.Equal(t, []string{"me@example.com", "Team <team@example.com>"}, normalized.To)
	assert.Equal(t, "hello there", normalized.BodyPlain)
	assert.Equal(t, time.Unix(1767225600, 0), normalized.SentAt)
	assert.Equal(t, "alice@example.com", normalized.SenderEmail())
}

func TestNormalize_BodyFromFirstPart(t *testing.T) {
	msg := &gmail.Message{
		Id:       "m2",
		ThreadId: "t2",
		Payload: &gmail.MessagePart{
			Parts: []*gmail.MessagePart{
				{Body: &gmail.MessagePartBody{Data: encodeBody("plain text part")}},
				{Body: &gmail.MessagePartBody{Data: encodeBody("html part, ignored")}},
			},
		},
	}

	normalized := Normalize(msg)

	assert.Equal(t, "plain text part", normalized.BodyPlain)
}

func TestNormalize_NilPayload(t *testing.T) {
	msg := &gmail.Message{Id: "m3", ThreadId: "t3", InternalDate: 0}

	normalized := Normalize(msg)

	require.Equal(t, "m3", normalized.MessageID)
	assert.Empty(t, normalized.From)
	assert.Empty(t, normalized.BodyPlain)
	assert.Nil(t, normalized.To)
}

func TestNormalize_UndecodableBody(t *testing.T) {
	msg := &gmail.Message{
		Id: "m4",
		Payload: &gmail.MessagePart{
			Body: &gmail.MessagePartBody{Data: "!!! not base64 !!!"},
		},
	}

	normalized := Normalize(msg)

	assert.Empty(t, normalized.BodyPlain)
}
