package dto

import "time"

// CreateContactRequest is the manual-create payload
type CreateContactRequest struct {
	PrimaryEmail    string   `json:"primary_email" binding:"required,email"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Company         string   `json:"company"`
	Title           string   `json:"title"`
	Phone           string   `json:"phone"`
	Tags            []string `json:"tags"`
	Segment         string   `json:"segment"`
	LeadSource      string   `json:"lead_source"`
	EngagementScore int      `json:"engagement_score"`
	Notes           string   `json:"notes"`
}

// UpdateContactRequest carries only the fields the client wants changed
type UpdateContactRequest struct {
	FirstName          *string    `json:"first_name"`
	LastName           *string    `json:"last_name"`
	Company            *string    `json:"company"`
	Title              *string    `json:"title"`
	Phone              *string    `json:"phone"`
	Tags               []string   `json:"tags"`
	Segment            *string    `json:"segment"`
	LeadSource         *string    `json:"lead_source"`
	EngagementScore    *int       `json:"engagement_score"`
	Notes              *string    `json:"notes"`
	Archived           *bool      `json:"archived"`
	NextTouchpointAt   *time.Time `json:"next_touchpoint_at"`
	NextTouchpointNote *string    `json:"next_touchpoint_note"`
}

// ImportRow is one parsed CSV row; column mapping happens client-side
type ImportRow struct {
	Email           string   `json:"email"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Company         string   `json:"company"`
	Title           string   `json:"title"`
	Phone           string   `json:"phone"`
	Tags            []string `json:"tags"`
	Segment         string   `json:"segment"`
	LeadSource      string   `json:"lead_source"`
	EngagementScore int      `json:"engagement_score"`
	Notes           string   `json:"notes"`
}

// ImportContactsRequest is the bulk-import payload
type ImportContactsRequest struct {
	Rows          []ImportRow `json:"rows" binding:"required"`
	OverwriteMode string      `json:"overwrite_mode"` // "skip" or "overwrite"
}

// ImportError reports one failed row
type ImportError struct {
	Row    int    `json:"row"`
	Email  string `json:"email,omitempty"`
	Detail string `json:"detail"`
}

// ImportProgress is the running total reported after each chunk and
// returned as the final result
type ImportProgress struct {
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Imported  int           `json:"imported"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	RowErrors []ImportError `json:"row_errors,omitempty"`
}

// SearchResult is one scored hit from fuzzy or semantic contact search
type SearchResult struct {
	ContactID string  `json:"contact_id"`
	Score     float64 `json:"score"`
}
