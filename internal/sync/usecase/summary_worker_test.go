package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	syncdomain "nexcrm-backend/internal/sync/domain"
	"nexcrm-backend/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSummarizer struct {
	analysis *ai.ThreadAnalysis
	err      error
	prompts  []string
}

func (f *fakeSummarizer) AnalyzeThread(ctx context.Context, threadText string) (*ai.ThreadAnalysis, error) {
	f.prompts = append(f.prompts, threadText)
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

func (f *fakeSummarizer) GenerateSynonyms(ctx context.Context, word string) ([]string, error) {
	return nil, nil
}

type fakeIndexer struct {
	indexed []string
}

func (f *fakeIndexer) IndexThreadSummary(ctx context.Context, userID, threadID, contactID, summaryText string) error {
	f.indexed = append(f.indexed, threadID)
	return nil
}

func seedThreadWithMessages(threads *fakeThreadRepo, messages *fakeMessageRepo) {
	threads.Upsert(&syncdomain.EmailThread{
		UserID:       "u1",
		ThreadID:     "t1",
		ContactID:    "c1",
		Subject:      "Renewal",
		NeedsSummary: true,
	}, true)
	messages.Upsert(&syncdomain.EmailMessage{
		UserID:    "u1",
		MessageID: "m1",
		ThreadID:  "t1",
		From:      "alice@example.com",
		BodyPlain: "Can we extend the contract?",
		SentAt:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	})
}

func TestProcessJob_WritesSummaryAndIndexes(t *testing.T) {
	threads := newFakeThreadRepo()
	messages := newFakeMessageRepo()
	seedThreadWithMessages(threads, messages)

	summarizer := &fakeSummarizer{analysis: &ai.ThreadAnalysis{
		Summary:     "Contact wants a contract extension.",
		ActionItems: []string{"draft amendment"},
		Sentiment:   "positive",
	}}
	indexer := &fakeIndexer{}
	worker := NewSummaryWorkerService(threads, messages, summarizer, indexer, 1)

	worker.processJob(SummaryJob{UserID: "u1", ThreadID: "t1"})

	thread, _ := threads.FindByThreadID("u1", "t1")
	require.NotNil(t, thread)
	assert.False(t, thread.NeedsSummary)

	parsed, err := syncdomain.ParseThreadSummary(thread.Summary)
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, "Contact wants a contract extension.", parsed.Summary)
	assert.Equal(t, []string{"draft amendment"}, parsed.ActionItems)

	assert.Equal(t, []string{"t1"}, indexer.indexed)

	// The model saw the subject and the message body
	require.Len(t, summarizer.prompts, 1)
	assert.Contains(t, summarizer.prompts[0], "Subject: Renewal")
	assert.Contains(t, summarizer.prompts[0], "extend the contract")
}

func TestProcessJob_AlreadySummarizedSkips(t *testing.T) {
	threads := newFakeThreadRepo()
	messages := newFakeMessageRepo()
	seedThreadWithMessages(threads, messages)

	raw, _ := syncdomain.MarshalThreadSummary(&syncdomain.ThreadSummary{Summary: "done"})
	threads.SetSummary("u1", "t1", raw)

	summarizer := &fakeSummarizer{analysis: &ai.ThreadAnalysis{Summary: "should not run"}}
	worker := NewSummaryWorkerService(threads, messages, summarizer, nil, 1)

	worker.processJob(SummaryJob{UserID: "u1", ThreadID: "t1"})

	assert.Empty(t, summarizer.prompts)
}

func TestProcessJob_AIErrorLeavesFlagSet(t *testing.T) {
	threads := newFakeThreadRepo()
	messages := newFakeMessageRepo()
	seedThreadWithMessages(threads, messages)

	summarizer := &fakeSummarizer{err: errors.New("model unavailable")}
	worker := NewSummaryWorkerService(threads, messages, summarizer, nil, 1)

	worker.processJob(SummaryJob{UserID: "u1", ThreadID: "t1"})

	thread, _ := threads.FindByThreadID("u1", "t1")
	// Still flagged so the next drain retries it
	assert.True(t, thread.NeedsSummary)
	assert.Empty(t, thread.Summary)
}

func TestDrainPending(t *testing.T) {
	threads := newFakeThreadRepo()
	messages := newFakeMessageRepo()
	seedThreadWithMessages(threads, messages)
	threads.Upsert(&syncdomain.EmailThread{UserID: "u1", ThreadID: "t2", NeedsSummary: true}, false)

	worker := NewSummaryWorkerService(threads, messages, &fakeSummarizer{}, nil, 1)

	queued, err := worker.DrainPending(10)

	require.NoError(t, err)
	assert.Equal(t, 2, queued)
}

func TestBuildThreadText_Truncates(t *testing.T) {
	msgs := []syncdomain.EmailMessage{{
		From:      "a@example.com",
		BodyPlain: strings.Repeat("x", maxThreadTextLen*2),
		SentAt:    time.Now(),
	}}

	text := buildThreadText("Long one", msgs)

	assert.LessOrEqual(t, len(text), maxThreadTextLen)
	assert.True(t, strings.HasPrefix(text, "Subject: Long one"))
}
