package ai

import (
	"context"
	"time"
)

// ThreadAnalysis is the structured output of one conversation analysis
// (shared type across providers)
type ThreadAnalysis struct {
	Summary              string     `json:"summary"`
	RelationshipInsights string     `json:"relationship_insights,omitempty"`
	ActionItems          []string   `json:"action_items,omitempty"`
	PainPoints           []string   `json:"pain_points,omitempty"`
	CoachingThemes       []string   `json:"coaching_themes,omitempty"`
	Sentiment            string     `json:"sentiment,omitempty"`
	OutreachDraft        string     `json:"outreach_draft,omitempty"`
	NextTouchpointNote   string     `json:"next_touchpoint_note,omitempty"`
	NextTouchpointAt     *time.Time `json:"next_touchpoint_at,omitempty"`
}

// SummarizerService is the interface for AI thread analysis and query expansion.
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type SummarizerService interface {
	AnalyzeThread(ctx context.Context, threadText string) (*ThreadAnalysis, error)
	GenerateSynonyms(ctx context.Context, word string) ([]string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
