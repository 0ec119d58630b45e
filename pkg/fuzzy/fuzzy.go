package fuzzy

import (
	"strings"
)

// LevenshteinDistance calculates the edit distance between two strings:
// how many single-character insertions, deletions or substitutions turn
// one into the other.
func LevenshteinDistance(s1, s2 string) int {
	s1 = normalizeString(s1)
	s2 = normalizeString(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}

	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			d[i][j] = min3(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}

	return d[m][n]
}

// FuzzyMatch checks if query fuzzy-matches text within a given threshold.
// threshold is the maximum allowed edit distance.
func FuzzyMatch(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)

	if strings.Contains(text, query) {
		return true
	}

	words := strings.Fields(text)
	for _, word := range words {
		if LevenshteinDistance(query, word) <= threshold {
			return true
		}
		if strings.HasPrefix(word, query) {
			return true
		}
	}

	return false
}

// MatchContact checks if a contact's name, email or company matches the
// query, with typo tolerance scaled to query length
func MatchContact(query, firstName, lastName, email, company string) bool {
	threshold := 2
	if len(query) <= 3 {
		threshold = 1
	} else if len(query) >= 8 {
		threshold = 3
	}

	fullName := strings.TrimSpace(firstName + " " + lastName)
	if FuzzyMatch(query, fullName, threshold) {
		return true
	}
	if FuzzyMatch(query, email, threshold) {
		return true
	}
	if company != "" && FuzzyMatch(query, company, threshold) {
		return true
	}

	return false
}

// ScoreContact scores how relevant a contact is to a query.
// Higher score = more relevant. Name matches outrank email and company.
func ScoreContact(query, firstName, lastName, email, company string) float64 {
	query = normalizeString(query)
	score := 0.0

	nameNorm := normalizeString(strings.TrimSpace(firstName + " " + lastName))
	if strings.Contains(nameNorm, query) {
		score += 100.0
		if containsWord(nameNorm, query) {
			score += 50.0
		}
	} else {
		for _, word := range strings.Fields(nameNorm) {
			dist := LevenshteinDistance(query, word)
			if dist <= 2 {
				score += 50.0 - float64(dist)*15
			}
			if strings.HasPrefix(word, query) {
				score += 40.0
			}
		}
	}

	emailNorm := normalizeString(email)
	if strings.Contains(emailNorm, query) {
		score += 60.0
	} else {
		localPart := emailNorm
		if idx := strings.Index(emailNorm, "@"); idx > 0 {
			localPart = emailNorm[:idx]
		}
		if strings.HasPrefix(localPart, query) {
			score += 30.0
		}
	}

	companyNorm := normalizeString(company)
	if companyNorm != "" && strings.Contains(companyNorm, query) {
		score += 40.0
		if containsWord(companyNorm, query) {
			score += 20.0
		}
	}

	return score
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// normalizeString lowercases and collapses whitespace
func normalizeString(s string) string {
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// containsWord checks if text contains query as a whole word
func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}
