package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ThreadSummary is the structured AI output stored on a thread. Produced by
// the summary worker, consumed by the contact aggregator.
type ThreadSummary struct {
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

// ParseThreadSummary decodes the jsonb summary column; a thread with no
// summary yet yields (nil, nil).
func ParseThreadSummary(raw datatypes.JSON) (*ThreadSummary, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s ThreadSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// MarshalThreadSummary encodes a summary for the jsonb column
func MarshalThreadSummary(s *ThreadSummary) (datatypes.JSON, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
