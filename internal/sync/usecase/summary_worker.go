package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"nexcrm-backend/internal/sync/domain"
	"nexcrm-backend/internal/sync/repository"
	"nexcrm-backend/pkg/ai"
)

// maxThreadTextLen caps the conversation text handed to the model
const maxThreadTextLen = 8000

// SummaryJob represents a job to analyze one thread
type SummaryJob struct {
	UserID   string
	ThreadID string
}

// SummaryIndexer receives finished summaries for vector indexing; the
// semantic contact search reads from it.
type SummaryIndexer interface {
	IndexThreadSummary(ctx context.Context, userID, threadID, contactID, summaryText string) error
}

// SummaryWorkerService generates structured AI analyses for threads flagged
// by the sync engine. Jobs flow through a buffered queue into a fixed pool
// of workers; a full queue drops the job (the flag on the thread row means
// it is picked up again on the next drain).
type SummaryWorkerService struct {
	threads     repository.ThreadRepository
	messages    repository.MessageRepository
	summarizer  ai.SummarizerService
	indexer     SummaryIndexer
	jobQueue    chan SummaryJob
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	mu          sync.Mutex
}

func NewSummaryWorkerService(threads repository.ThreadRepository, messages repository.MessageRepository, summarizer ai.SummarizerService, indexer SummaryIndexer, workerCount int) *SummaryWorkerService {
	if workerCount <= 0 {
		workerCount = 3
	}

	return &SummaryWorkerService{
		threads:     threads,
		messages:    messages,
		summarizer:  summarizer,
		indexer:     indexer,
		jobQueue:    make(chan SummaryJob, 500),
		workerCount: workerCount,
	}
}

// Start starts the summary workers
func (s *SummaryWorkerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	for i := 0; i < s.workerCount; i++ {
		s.workerWg.Add(1)
		go s.worker(i)
	}
	s.started = true
	log.Printf("[SummaryWorker] Started %d workers", s.workerCount)
}

// Stop stops all workers gracefully
func (s *SummaryWorkerService) Stop() {
	close(s.jobQueue)
	s.workerWg.Wait()
	log.Println("[SummaryWorker] All workers stopped")
}

func (s *SummaryWorkerService) worker(id int) {
	defer s.workerWg.Done()

	for job := range s.jobQueue {
		s.processJob(job)
	}

	log.Printf("[SummaryWorker] Worker %d stopped", id)
}

// QueueJob adds a single job to the queue (non-blocking)
func (s *SummaryWorkerService) QueueJob(job SummaryJob) bool {
	select {
	case s.jobQueue <- job:
		return true
	default:
		return false // Queue full
	}
}

// DrainPending queues every thread still flagged for analysis, up to limit.
// Called after a sync pass and periodically by the scheduler.
func (s *SummaryWorkerService) DrainPending(limit int) (int, error) {
	threads, err := s.threads.ListNeedingSummary(limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list threads pending analysis: %w", err)
	}

	queued := 0
	for _, thread := range threads {
		if s.QueueJob(SummaryJob{UserID: thread.UserID, ThreadID: thread.ThreadID}) {
			queued++
		}
	}
	return queued, nil
}

// processJob analyzes a single thread and persists the structured result
func (s *SummaryWorkerService) processJob(job SummaryJob) {
	if s.summarizer == nil {
		return
	}

	thread, err := s.threads.FindByThreadID(job.UserID, job.ThreadID)
	if err != nil || thread == nil {
		log.Printf("[SummaryWorker] Thread %s not found: %v", job.ThreadID, err)
		return
	}
	if !thread.NeedsSummary && len(thread.Summary) > 0 {
		return
	}

	msgs, err := s.messages.ListByThread(job.UserID, job.ThreadID)
	if err != nil {
		log.Printf("[SummaryWorker] Failed to load messages for thread %s: %v", job.ThreadID, err)
		return
	}
	if len(msgs) == 0 {
		return
	}

	ctx := context.Background()
	analysis, err := s.summarizer.AnalyzeThread(ctx, buildThreadText(thread.Subject, msgs))
	if err != nil {
		log.Printf("[SummaryWorker] AI error for thread %s: %v", job.ThreadID, err)
		return
	}

	summary := &domain.ThreadSummary{
		Summary:              analysis.Summary,
		RelationshipInsights: analysis.RelationshipInsights,
		ActionItems:          analysis.ActionItems,
		PainPoints:           analysis.PainPoints,
		CoachingThemes:       analysis.CoachingThemes,
		Sentiment:            analysis.Sentiment,
		OutreachDraft:        analysis.OutreachDraft,
		NextTouchpointNote:   analysis.NextTouchpointNote,
		NextTouchpointAt:     analysis.NextTouchpointAt,
	}
	raw, err := domain.MarshalThreadSummary(summary)
	if err != nil {
		log.Printf("[SummaryWorker] Failed to encode summary for thread %s: %v", job.ThreadID, err)
		return
	}

	if err := s.threads.SetSummary(job.UserID, job.ThreadID, raw); err != nil {
		log.Printf("[SummaryWorker] Save error for thread %s: %v", job.ThreadID, err)
		return
	}

	if s.indexer != nil && summary.Summary != "" {
		if err := s.indexer.IndexThreadSummary(ctx, job.UserID, job.ThreadID, thread.ContactID, summary.Summary); err != nil {
			log.Printf("[SummaryWorker] Vector index error for thread %s: %v", job.ThreadID, err)
		}
	}

	log.Printf("[SummaryWorker] Analyzed thread %s", job.ThreadID)
}

// buildThreadText flattens a conversation into the plain-text form the
// model consumes, oldest message first, truncated to the token budget.
func buildThreadText(subject string, msgs []domain.EmailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n\n", subject)
	for _, msg := range msgs {
		fmt.Fprintf(&b, "From: %s\nDate: %s\n%s\n\n---\n\n", msg.From, msg.SentAt.Format("2006-01-02 15:04"), msg.BodyPlain)
	}

	text := b.String()
	if len(text) > maxThreadTextLen {
		text = text[:maxThreadTextLen]
	}
	return text
}
