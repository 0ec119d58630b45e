package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Contact is one CRM record per correspondent, keyed by a deterministic
// function of the normalized primary email so repeated imports of the same
// address always land on the same row.
type Contact struct {
	ID           string `json:"id" gorm:"primaryKey"`
	UserID       string `json:"user_id" gorm:"index:idx_user_contact;uniqueIndex:idx_user_contact_unique;not null"`
	PrimaryEmail string `json:"primary_email" gorm:"index:idx_user_email_lookup;uniqueIndex:idx_user_contact_unique;not null"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Title     string `json:"title"`
	Phone     string `json:"phone"`

	// CRM metadata
	Tags            datatypes.JSON `json:"tags,omitempty" gorm:"type:jsonb"`
	Segment         string         `json:"segment" gorm:"index"`
	LeadSource      string         `json:"lead_source" gorm:"index"`
	EngagementScore int            `json:"engagement_score"`
	Notes           string         `json:"notes" gorm:"type:text"`

	// Touchpoints
	LastContactedAt    *time.Time `json:"last_contacted_at,omitempty"`
	NextTouchpointAt   *time.Time `json:"next_touchpoint_at,omitempty"`
	NextTouchpointNote string     `json:"next_touchpoint_note,omitempty"`

	// AI-derived fields, written only by the aggregator
	AISummary              string         `json:"ai_summary,omitempty" gorm:"type:text"`
	AIRelationshipInsights string         `json:"ai_relationship_insights,omitempty" gorm:"type:text"`
	AIActionItems          datatypes.JSON `json:"ai_action_items,omitempty" gorm:"type:jsonb"`
	AIPainPoints           datatypes.JSON `json:"ai_pain_points,omitempty" gorm:"type:jsonb"`
	AICoachingThemes       datatypes.JSON `json:"ai_coaching_themes,omitempty" gorm:"type:jsonb"`
	AISentiment            string         `json:"ai_sentiment,omitempty"`
	AIOutreachDraft        string         `json:"ai_outreach_draft,omitempty" gorm:"type:text"`

	LastEmailDate *time.Time `json:"last_email_date,omitempty"`
	Archived      bool       `json:"archived"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// NormalizeEmail lowercases and trims an address before any id derivation
// or storage, so lookups stay consistent across import and sync paths.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ContactIDFromEmail derives the stable contact id from the normalized
// primary email. Same address in -> same id out, regardless of case or
// surrounding whitespace.
func ContactIDFromEmail(email string) string {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}
