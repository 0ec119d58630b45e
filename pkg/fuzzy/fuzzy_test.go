package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, LevenshteinDistance("jordan", "jordan"))
	assert.Equal(t, 0, LevenshteinDistance("Jordan", "jordan"))
	assert.Equal(t, 1, LevenshteinDistance("jordan", "jorden"))
	assert.Equal(t, 3, LevenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 5, LevenshteinDistance("", "hello"))
	assert.Equal(t, 4, LevenshteinDistance("abcd", ""))
}

func TestFuzzyMatch(t *testing.T) {
	assert.True(t, FuzzyMatch("jordan", "Jordan Lee", 2))
	// One typo inside the threshold
	assert.True(t, FuzzyMatch("jorden", "Jordan Lee", 2))
	// Prefix of a word
	assert.True(t, FuzzyMatch("jor", "Jordan Lee", 1))
	assert.False(t, FuzzyMatch("smith", "Jordan Lee", 2))
}

func TestMatchContact(t *testing.T) {
	assert.True(t, MatchContact("jordan", "Jordan", "Lee", "jordan@acme.com", ""))
	assert.True(t, MatchContact("jorden", "Jordan", "Lee", "", ""))
	assert.True(t, MatchContact("acme", "Pat", "Kim", "pat@acme.com", "Acme Corp"))
	assert.False(t, MatchContact("zzzzzz", "Jordan", "Lee", "jordan@acme.com", "Acme Corp"))
}

func TestScoreContact_NameOutranksCompany(t *testing.T) {
	nameScore := ScoreContact("jordan", "Jordan", "Lee", "j@x.com", "")
	companyScore := ScoreContact("jordan", "Pat", "Kim", "p@x.com", "Jordan Logistics")

	assert.Greater(t, nameScore, companyScore)
	assert.Greater(t, companyScore, 0.0)
}

func TestScoreContact_EmailLocalPartPrefix(t *testing.T) {
	score := ScoreContact("jord", "", "", "jordan@acme.com", "")
	assert.Greater(t, score, 0.0)
}

func TestScoreContact_NoMatch(t *testing.T) {
	assert.Equal(t, 0.0, ScoreContact("qqqqqq", "Jordan", "Lee", "", ""))
}
