package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"nexcrm-backend/internal/contact/domain"
	syncdomain "nexcrm-backend/internal/sync/domain"
)

// AggregatedContactData is the contact-level fold of all per-thread AI
// summaries. Free-text fields are concatenations, list fields are flattened
// unions with duplicates retained, and single-value fields come from the
// chronologically last thread.
type AggregatedContactData struct {
	Summary              string     `json:"summary"`
	RelationshipInsights string     `json:"relationship_insights"`
	ActionItems          []string   `json:"action_items"`
	PainPoints           []string   `json:"pain_points"`
	CoachingThemes       []string   `json:"coaching_themes"`
	Sentiment            string     `json:"sentiment"`
	OutreachDraft        string     `json:"outreach_draft"`
	NextTouchpointNote   string     `json:"next_touchpoint_note"`
	NextTouchpointAt     *time.Time `json:"next_touchpoint_at,omitempty"`
	ThreadCount          int        `json:"thread_count"`
}

// AggregateContactSummaries folds every summarized thread of a contact into
// its AI fields and persists the result. Threads are ordered by last message
// time, so "last thread wins" fields reflect the most recent conversation.
// Returns nil when the contact has no summarized threads yet.
func (u *contactUsecase) AggregateContactSummaries(ctx context.Context, userID, contactID string) (*AggregatedContactData, error) {
	contact, err := u.contacts.FindByID(userID, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("contact not found")
	}

	threads, err := u.threads.ListByContactID(userID, contactID)
	if err != nil {
		return nil, err
	}

	var summaries []*syncdomain.ThreadSummary
	for i := range threads {
		summary, err := syncdomain.ParseThreadSummary(threads[i].Summary)
		if err != nil {
			log.Printf("[Aggregator] Skipping malformed summary on thread %s: %v", threads[i].ThreadID, err)
			continue
		}
		if summary == nil {
			continue
		}
		summaries = append(summaries, summary)
	}

	if len(summaries) == 0 {
		return nil, nil
	}

	aggregated := foldSummaries(summaries)

	contact.AISummary = aggregated.Summary
	contact.AIRelationshipInsights = aggregated.RelationshipInsights
	contact.AIActionItems = domain.EncodeStringList(aggregated.ActionItems)
	contact.AIPainPoints = domain.EncodeStringList(aggregated.PainPoints)
	contact.AICoachingThemes = domain.EncodeStringList(aggregated.CoachingThemes)
	contact.AISentiment = aggregated.Sentiment
	contact.AIOutreachDraft = aggregated.OutreachDraft
	if aggregated.NextTouchpointNote != "" {
		contact.NextTouchpointNote = aggregated.NextTouchpointNote
	}
	if aggregated.NextTouchpointAt != nil {
		contact.NextTouchpointAt = aggregated.NextTouchpointAt
	}

	if err := u.contacts.Save(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to persist aggregated summary: %w", err)
	}

	return aggregated, nil
}

// AggregateAllContacts recomputes the aggregate for every contact of the
// user; one contact's failure does not stop the rest. Returns how many
// contacts received an aggregate.
func (u *contactUsecase) AggregateAllContacts(ctx context.Context, userID string) (int, error) {
	contacts, err := u.contacts.ListAll(userID)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range contacts {
		aggregated, err := u.AggregateContactSummaries(ctx, userID, contacts[i].ID)
		if err != nil {
			log.Printf("[Aggregator] Failed to aggregate contact %s: %v", contacts[i].ID, err)
			continue
		}
		if aggregated != nil {
			updated++
		}
	}
	return updated, nil
}

// foldSummaries combines per-thread summaries into one aggregate. Input
// order is the thread order (oldest conversation first); the last entry
// supplies the single-value fields.
func foldSummaries(summaries []*syncdomain.ThreadSummary) *AggregatedContactData {
	aggregated := &AggregatedContactData{ThreadCount: len(summaries)}

	var summaryParts, insightParts []string
	for _, s := range summaries {
		if s.Summary != "" {
			summaryParts = append(summaryParts, s.Summary)
		}
		if s.RelationshipInsights != "" {
			insightParts = append(insightParts, s.RelationshipInsights)
		}
		aggregated.ActionItems = append(aggregated.ActionItems, s.ActionItems...)
		aggregated.PainPoints = append(aggregated.PainPoints, s.PainPoints...)
		aggregated.CoachingThemes = append(aggregated.CoachingThemes, s.CoachingThemes...)
	}
	aggregated.Summary = strings.Join(summaryParts, "\n\n")
	aggregated.RelationshipInsights = strings.Join(insightParts, "\n\n")

	last := summaries[len(summaries)-1]
	aggregated.Sentiment = last.Sentiment
	aggregated.OutreachDraft = last.OutreachDraft
	aggregated.NextTouchpointNote = last.NextTouchpointNote
	aggregated.NextTouchpointAt = last.NextTouchpointAt

	return aggregated
}
