package domain

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// DecodeTags unpacks the jsonb tag list; an empty column yields nil
func DecodeTags(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil
	}
	return tags
}

// EncodeStringList packs a string list for a jsonb column
func EncodeStringList(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// OverwriteContact replaces every import-mapped field of the existing record
// with the incoming values, empty cells included. CreatedAt and Archived stay
// with the existing record, as do the fields an import never carries
// (touchpoints, AI-derived columns, LastEmailDate).
func OverwriteContact(existing, incoming *Contact) *Contact {
	merged := *existing

	merged.FirstName = incoming.FirstName
	merged.LastName = incoming.LastName
	merged.Company = incoming.Company
	merged.Title = incoming.Title
	merged.Phone = incoming.Phone
	merged.Segment = incoming.Segment
	merged.LeadSource = incoming.LeadSource
	merged.EngagementScore = incoming.EngagementScore
	merged.Notes = incoming.Notes
	merged.Tags = incoming.Tags

	return &merged
}
