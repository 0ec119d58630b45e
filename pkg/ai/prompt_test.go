package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisResponse_PlainJSON(t *testing.T) {
	response := `{
		"summary": "Discussed renewal terms.",
		"relationship_insights": "Champion is engaged.",
		"action_items": ["send contract"],
		"pain_points": [],
		"coaching_themes": ["discovery depth"],
		"sentiment": "positive",
		"outreach_draft": "Hi Alex,",
		"next_touchpoint_note": "after legal review",
		"next_touchpoint_at": "2026-09-15"
	}`

	analysis, err := parseAnalysisResponse(response)

	require.NoError(t, err)
	assert.Equal(t, "Discussed renewal terms.", analysis.Summary)
	assert.Equal(t, []string{"send contract"}, analysis.ActionItems)
	assert.Equal(t, "positive", analysis.Sentiment)
	require.NotNil(t, analysis.NextTouchpointAt)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), *analysis.NextTouchpointAt)
}

func TestParseAnalysisResponse_MarkdownFences(t *testing.T) {
	response := "```json\n{\"summary\": \"fenced\", \"sentiment\": \"neutral\"}\n```"

	analysis, err := parseAnalysisResponse(response)

	require.NoError(t, err)
	assert.Equal(t, "fenced", analysis.Summary)
}

func TestParseAnalysisResponse_SurroundingProse(t *testing.T) {
	response := `Here is the analysis you asked for:
{"summary": "embedded", "sentiment": "negative"}
Hope that helps!`

	analysis, err := parseAnalysisResponse(response)

	require.NoError(t, err)
	assert.Equal(t, "embedded", analysis.Summary)
	assert.Equal(t, "negative", analysis.Sentiment)
}

func TestParseAnalysisResponse_RFC3339Touchpoint(t *testing.T) {
	analysis, err := parseAnalysisResponse(`{"summary": "x", "next_touchpoint_at": "2026-09-15T10:30:00Z"}`)

	require.NoError(t, err)
	require.NotNil(t, analysis.NextTouchpointAt)
	assert.Equal(t, 10, analysis.NextTouchpointAt.Hour())
}

func TestParseAnalysisResponse_UnparseableDateIgnored(t *testing.T) {
	analysis, err := parseAnalysisResponse(`{"summary": "x", "next_touchpoint_at": "sometime next week"}`)

	require.NoError(t, err)
	assert.Nil(t, analysis.NextTouchpointAt)
}

func TestParseAnalysisResponse_NotJSON(t *testing.T) {
	_, err := parseAnalysisResponse("I could not analyze this conversation.")

	require.Error(t, err)
}

func TestParseSynonymsResponse_JSONArray(t *testing.T) {
	synonyms, err := parseSynonymsResponse(`["deal", "agreement", "contract"]`)

	require.NoError(t, err)
	assert.Equal(t, []string{"deal", "agreement", "contract"}, synonyms)
}

func TestParseSynonymsResponse_LineFallback(t *testing.T) {
	synonyms, err := parseSynonymsResponse("- deal\n- agreement\n* contract")

	require.NoError(t, err)
	assert.Equal(t, []string{"deal", "agreement", "contract"}, synonyms)
}

func TestBuildAnalysisPrompt_EmbedsConversation(t *testing.T) {
	prompt := buildAnalysisPrompt("Subject: Renewal\n\nbody text")

	assert.Contains(t, prompt, "Subject: Renewal")
	assert.Contains(t, prompt, time.Now().Format("2006-01-02"))
}
