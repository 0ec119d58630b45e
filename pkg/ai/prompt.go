package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// analysisPrompt is shared across providers so switching providers never
// changes the output contract.
const analysisPrompt = `You are a CRM assistant analyzing an email conversation between a sales/success rep and a contact.

TODAY'S DATE: %s

Analyze the conversation and return a single JSON object with exactly these fields:
{
  "summary": "2-3 sentence summary of the conversation",
  "relationship_insights": "1-2 sentences on the state of the relationship",
  "action_items": ["concrete follow-ups the rep owes"],
  "pain_points": ["problems or frustrations the contact expressed"],
  "coaching_themes": ["recurring topics worth coaching on"],
  "sentiment": "positive, neutral or negative",
  "outreach_draft": "a short draft for the next outreach email",
  "next_touchpoint_note": "when and why to reach out next",
  "next_touchpoint_at": "ISO 8601 date if a concrete date makes sense, else omit"
}

Rules:
1. Return ONLY the JSON object, no other text.
2. Use empty strings / empty arrays when a field does not apply.
3. Keep every field in English and grounded in the actual messages.

CONVERSATION:
%s

JSON OUTPUT:`

func buildAnalysisPrompt(threadText string) string {
	return fmt.Sprintf(analysisPrompt, time.Now().Format("2006-01-02"), threadText)
}

// rawAnalysis mirrors ThreadAnalysis with the touchpoint date still a string,
// since models emit a handful of date formats.
type rawAnalysis struct {
	Summary              string   `json:"summary"`
	RelationshipInsights string   `json:"relationship_insights"`
	ActionItems          []string `json:"action_items"`
	PainPoints           []string `json:"pain_points"`
	CoachingThemes       []string `json:"coaching_themes"`
	Sentiment            string   `json:"sentiment"`
	OutreachDraft        string   `json:"outreach_draft"`
	NextTouchpointNote   string   `json:"next_touchpoint_note"`
	NextTouchpointAt     string   `json:"next_touchpoint_at"`
}

// parseAnalysisResponse extracts the JSON object from a model response and
// decodes it, tolerating markdown fences and surrounding prose.
func parseAnalysisResponse(responseText string) (*ThreadAnalysis, error) {
	responseText = strings.TrimSpace(responseText)
	if strings.HasPrefix(responseText, "```json") {
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimSuffix(responseText, "```")
	} else if strings.HasPrefix(responseText, "```") {
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
	}
	responseText = strings.TrimSpace(responseText)

	jsonStart := strings.Index(responseText, "{")
	jsonEnd := strings.LastIndex(responseText, "}")
	if jsonStart != -1 && jsonEnd != -1 && jsonEnd > jsonStart {
		responseText = responseText[jsonStart : jsonEnd+1]
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(responseText), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %v", err)
	}

	analysis := &ThreadAnalysis{
		Summary:              raw.Summary,
		RelationshipInsights: raw.RelationshipInsights,
		ActionItems:          raw.ActionItems,
		PainPoints:           raw.PainPoints,
		CoachingThemes:       raw.CoachingThemes,
		Sentiment:            raw.Sentiment,
		OutreachDraft:        raw.OutreachDraft,
		NextTouchpointNote:   raw.NextTouchpointNote,
	}

	if raw.NextTouchpointAt != "" {
		formats := []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02T15:04:05", "2006-01-02"}
		for _, format := range formats {
			if t, err := time.Parse(format, raw.NextTouchpointAt); err == nil {
				analysis.NextTouchpointAt = &t
				break
			}
		}
	}

	return analysis, nil
}

// parseSynonymsResponse extracts a JSON string array from a model response,
// falling back to line splitting when the model ignored the format.
func parseSynonymsResponse(responseText string) ([]string, error) {
	responseText = strings.TrimSpace(responseText)
	if strings.HasPrefix(responseText, "```json") {
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimSuffix(responseText, "```")
	} else if strings.HasPrefix(responseText, "```") {
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
	}
	responseText = strings.TrimSpace(responseText)

	jsonStart := strings.Index(responseText, "[")
	jsonEnd := strings.LastIndex(responseText, "]")
	if jsonStart != -1 && jsonEnd != -1 && jsonEnd > jsonStart {
		responseText = responseText[jsonStart : jsonEnd+1]
	}

	var synonyms []string
	if err := json.Unmarshal([]byte(responseText), &synonyms); err != nil {
		lines := strings.Split(responseText, "\n")
		for _, line := range lines {
			line = strings.TrimSpace(line)
			line = strings.TrimPrefix(line, "- ")
			line = strings.TrimPrefix(line, "* ")
			if line != "" {
				synonyms = append(synonyms, line)
			}
		}
		if len(synonyms) == 0 {
			return nil, fmt.Errorf("failed to parse synonyms: %v", err)
		}
	}

	return synonyms, nil
}
