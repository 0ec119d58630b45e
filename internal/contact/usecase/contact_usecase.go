package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"nexcrm-backend/internal/contact/domain"
	"nexcrm-backend/internal/contact/dto"
	"nexcrm-backend/internal/contact/repository"
	syncrepo "nexcrm-backend/internal/sync/repository"
	"nexcrm-backend/pkg/ai"
	"nexcrm-backend/pkg/config"
	"nexcrm-backend/pkg/fuzzy"
)

// VectorSearcher is the semantic index over AI thread summaries; hits come
// back as thread ids that the usecase maps to contacts.
type VectorSearcher interface {
	SemanticSearch(ctx context.Context, userID, query string, limit int) ([]string, []float64, error)
}

// ContactUsecase defines contact business logic
type ContactUsecase interface {
	CreateContact(ctx context.Context, userID string, req *dto.CreateContactRequest) (*domain.Contact, error)
	GetContact(userID, id string) (*domain.Contact, error)
	UpdateContact(ctx context.Context, userID, id string, req *dto.UpdateContactRequest) (*domain.Contact, error)
	DeleteContact(userID, id string) error
	ListContacts(userID string, limit, offset int, segment string) ([]domain.Contact, int64, error)
	SearchContacts(ctx context.Context, userID, query string, limit int) ([]domain.Contact, error)
	SemanticSearchContacts(ctx context.Context, userID, query string, limit int) ([]domain.Contact, error)
	ExportContactsCSV(userID string, w io.Writer) error

	ImportContactsBatch(ctx context.Context, userID string, rows []dto.ImportRow, overwriteMode string, onProgress func(dto.ImportProgress)) (*dto.ImportProgress, error)

	AggregateContactSummaries(ctx context.Context, userID, contactID string) (*AggregatedContactData, error)
	AggregateAllContacts(ctx context.Context, userID string) (int, error)
}

type contactUsecase struct {
	contacts   repository.ContactRepository
	threads    syncrepo.ThreadRepository
	vector     VectorSearcher
	summarizer ai.SummarizerService
	config     *config.Config
}

func NewContactUsecase(contacts repository.ContactRepository, threads syncrepo.ThreadRepository, vector VectorSearcher, summarizer ai.SummarizerService, cfg *config.Config) ContactUsecase {
	return &contactUsecase{
		contacts:   contacts,
		threads:    threads,
		vector:     vector,
		summarizer: summarizer,
		config:     cfg,
	}
}

func (u *contactUsecase) CreateContact(ctx context.Context, userID string, req *dto.CreateContactRequest) (*domain.Contact, error) {
	email := domain.NormalizeEmail(req.PrimaryEmail)
	if email == "" {
		return nil, fmt.Errorf("primary email is required")
	}

	id := domain.ContactIDFromEmail(email)
	existing, err := u.contacts.FindByID(userID, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("contact with email %s already exists", email)
	}

	contact := &domain.Contact{
		ID:              id,
		UserID:          userID,
		PrimaryEmail:    email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Company:         req.Company,
		Title:           req.Title,
		Phone:           req.Phone,
		Segment:         req.Segment,
		LeadSource:      req.LeadSource,
		EngagementScore: req.EngagementScore,
		Notes:           req.Notes,
	}
	if len(req.Tags) > 0 {
		contact.Tags = domain.EncodeStringList(req.Tags)
	}

	if err := u.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (u *contactUsecase) GetContact(userID, id string) (*domain.Contact, error) {
	contact, err := u.contacts.FindByID(userID, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("contact not found")
	}
	return contact, nil
}

func (u *contactUsecase) UpdateContact(ctx context.Context, userID, id string, req *dto.UpdateContactRequest) (*domain.Contact, error) {
	contact, err := u.contacts.FindByID(userID, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("contact not found")
	}

	if req.FirstName != nil {
		contact.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		contact.LastName = *req.LastName
	}
	if req.Company != nil {
		contact.Company = *req.Company
	}
	if req.Title != nil {
		contact.Title = *req.Title
	}
	if req.Phone != nil {
		contact.Phone = *req.Phone
	}
	if req.Tags != nil {
		contact.Tags = domain.EncodeStringList(req.Tags)
	}
	if req.Segment != nil {
		contact.Segment = *req.Segment
	}
	if req.LeadSource != nil {
		contact.LeadSource = *req.LeadSource
	}
	if req.EngagementScore != nil {
		contact.EngagementScore = *req.EngagementScore
	}
	if req.Notes != nil {
		contact.Notes = *req.Notes
	}
	if req.Archived != nil {
		contact.Archived = *req.Archived
	}
	if req.NextTouchpointAt != nil {
		contact.NextTouchpointAt = req.NextTouchpointAt
	}
	if req.NextTouchpointNote != nil {
		contact.NextTouchpointNote = *req.NextTouchpointNote
	}

	if err := u.contacts.Save(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (u *contactUsecase) DeleteContact(userID, id string) error {
	return u.contacts.Delete(userID, id)
}

func (u *contactUsecase) ListContacts(userID string, limit, offset int, segment string) ([]domain.Contact, int64, error) {
	return u.contacts.List(userID, limit, offset, segment)
}

const (
	// synonymExpandTimeout bounds the AI call so a slow provider cannot stall
	// an interactive search.
	synonymExpandTimeout = 3 * time.Second
	maxQuerySynonyms     = 5
	// a synonym hit always ranks below a direct hit on the same contact
	synonymScoreDiscount = 0.5
)

// expandSearchTerms asks the AI provider for search synonyms of the query.
// Expansion is best-effort: no provider or a failed call means the query
// stands alone.
func (u *contactUsecase) expandSearchTerms(ctx context.Context, query string) []string {
	terms := []string{query}
	if u.summarizer == nil {
		return terms
	}

	ctx, cancel := context.WithTimeout(ctx, synonymExpandTimeout)
	defer cancel()

	synonyms, err := u.summarizer.GenerateSynonyms(ctx, query)
	if err != nil {
		return terms
	}
	for _, s := range synonyms {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || s == strings.ToLower(query) {
			continue
		}
		terms = append(terms, s)
		if len(terms) > maxQuerySynonyms {
			break
		}
	}
	return terms
}

// SearchContacts runs an in-memory fuzzy match over the user's contacts,
// ranked by relevance, with the query expanded by AI-generated synonyms when
// a provider is configured. Contact books are small enough that a full scan
// plus edit-distance scoring beats maintaining a search index.
func (u *contactUsecase) SearchContacts(ctx context.Context, userID, query string, limit int) ([]domain.Contact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Contact{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	terms := u.expandSearchTerms(ctx, query)

	all, err := u.contacts.ListAll(userID)
	if err != nil {
		return nil, err
	}

	type scored struct {
		contact domain.Contact
		score   float64
	}
	var hits []scored
	for _, c := range all {
		var best float64
		for i, term := range terms {
			if !fuzzy.MatchContact(term, c.FirstName, c.LastName, c.PrimaryEmail, c.Company) {
				continue
			}
			s := fuzzy.ScoreContact(term, c.FirstName, c.LastName, c.PrimaryEmail, c.Company)
			if i > 0 {
				s *= synonymScoreDiscount
			}
			if s > best {
				best = s
			}
		}
		if best == 0 {
			continue
		}
		hits = append(hits, scored{contact: c, score: best})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	results := make([]domain.Contact, 0, limit)
	for _, h := range hits {
		if len(results) >= limit {
			break
		}
		results = append(results, h.contact)
	}
	return results, nil
}

// SemanticSearchContacts queries the vector index over thread summaries and
// maps hits back to their contacts, deduplicated in ranking order.
func (u *contactUsecase) SemanticSearchContacts(ctx context.Context, userID, query string, limit int) ([]domain.Contact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Contact{}, nil
	}
	if u.vector == nil {
		return nil, fmt.Errorf("semantic search not available")
	}
	if limit <= 0 {
		limit = 10
	}

	// Fetch extra hits since several threads can map to one contact
	threadIDs, _, err := u.vector.SemanticSearch(ctx, userID, query, limit*3)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}

	seen := make(map[string]struct{})
	var results []domain.Contact
	for _, threadID := range threadIDs {
		if len(results) >= limit {
			break
		}

		thread, err := u.threads.FindByThreadID(userID, threadID)
		if err != nil || thread == nil || thread.ContactID == "" {
			continue
		}
		if _, ok := seen[thread.ContactID]; ok {
			continue
		}
		seen[thread.ContactID] = struct{}{}

		contact, err := u.contacts.FindByID(userID, thread.ContactID)
		if err != nil || contact == nil {
			continue
		}
		results = append(results, *contact)
	}

	return results, nil
}

// csvHeader is the fixed export column order
var csvHeader = []string{
	"email", "first_name", "last_name", "company", "title", "phone",
	"tags", "segment", "lead_source", "engagement_score", "notes",
	"last_email_date", "archived", "created_at",
}

func (u *contactUsecase) ExportContactsCSV(userID string, w io.Writer) error {
	contacts, err := u.contacts.ListAll(userID)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, c := range contacts {
		lastEmail := ""
		if c.LastEmailDate != nil {
			lastEmail = c.LastEmailDate.Format(time.RFC3339)
		}
		record := []string{
			c.PrimaryEmail,
			c.FirstName,
			c.LastName,
			c.Company,
			c.Title,
			c.Phone,
			strings.Join(domain.DecodeTags(c.Tags), ";"),
			c.Segment,
			c.LeadSource,
			fmt.Sprintf("%d", c.EngagementScore),
			c.Notes,
			lastEmail,
			fmt.Sprintf("%t", c.Archived),
			c.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
