package fuzzymatch

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

const (
	// DefaultThreshold is the minimum score for best-candidate matches.
	DefaultThreshold = 85
	// DefaultPartialThreshold is the minimum score for the token-set and
	// partial-ratio strategies.
	DefaultPartialThreshold = 90

	// minSubstringLength keeps short non-distinctive patterns on word
	// boundary matching ("chi" must not land inside "chicago").
	minSubstringLength = 5
	// minCoverageRatio is the share of the text a non-distinctive
	// substring must cover: "boston" inside "boston bruins" is 46% and
	// rejected, so a city never matches a team from another league.
	minCoverageRatio = 0.70
)

// Result reports a match attempt.
type Result struct {
	Matched bool
	Score   float64
	Pattern string
}

// Matcher scores stream text against team patterns.
type Matcher struct {
	Threshold        int
	PartialThreshold int
}

// New returns a matcher with default thresholds.
func New() *Matcher {
	return &Matcher{Threshold: DefaultThreshold, PartialThreshold: DefaultPartialThreshold}
}

// MatchesAny checks whether any pattern matches within text, trying five
// strategies in strict priority order. First match wins.
func (m *Matcher) MatchesAny(patterns []Pattern, text string) Result {
	textLower := ExpandAbbreviations(Normalize(text))
	if textLower == "" {
		return Result{}
	}

	// Strategy 1: substring match on multi-word distinctive patterns.
	// "boston celtics" appearing in the text is definitive.
	for _, p := range patterns {
		if p.Distinctive && strings.Contains(p.Text, " ") && strings.Contains(textLower, p.Text) {
			return Result{Matched: true, Score: 100, Pattern: p.Text}
		}
	}

	// Strategy 2: word-boundary match for distinctive patterns. Keeps
	// "hawks" from landing inside "blackhawks".
	for _, p := range patterns {
		if p.Distinctive && containsWord(textLower, p.Text) {
			return Result{Matched: true, Score: 100, Pattern: p.Text}
		}
	}

	// Strategy 3: non-distinctive substring with coverage check, falling
	// back to word-boundary for multi-word location names.
	for _, p := range patterns {
		if p.Distinctive || len(p.Text) < minSubstringLength {
			continue
		}
		if strings.Contains(textLower, p.Text) {
			coverage := float64(len(p.Text)) / float64(len(textLower))
			if coverage >= minCoverageRatio {
				return Result{Matched: true, Score: 100, Pattern: p.Text}
			}
		}
		if strings.Contains(p.Text, " ") && containsWord(textLower, p.Text) {
			return Result{Matched: true, Score: 100, Pattern: p.Text}
		}
	}

	// Strategy 4: token set ratio for multi-word distinctive patterns,
	// good for "Atlanta Falcons" vs "Falcons @ Atlanta".
	for _, p := range patterns {
		if p.Distinctive && strings.Contains(p.Text, " ") {
			if score := fuzzy.TokenSetRatio(p.Text, textLower); score >= m.PartialThreshold {
				return Result{Matched: true, Score: float64(score), Pattern: p.Text}
			}
		}
	}

	// Strategy 5: partial ratio, multi-word distinctive only. Single words
	// would match as substrings (100% partial ratio inside longer words).
	for _, p := range patterns {
		if p.Distinctive && strings.Contains(p.Text, " ") {
			if score := fuzzy.PartialRatio(p.Text, textLower); score >= m.PartialThreshold {
				return Result{Matched: true, Score: float64(score), Pattern: p.Text}
			}
		}
	}

	return Result{}
}

// BestMatch finds the best candidate for a pattern, taking the maximum of
// plain, token-set, and partial ratios per candidate. Returns empty when no
// candidate reaches the threshold.
func (m *Matcher) BestMatch(pattern string, candidates []string) (string, float64) {
	patternLower := strings.ToLower(pattern)

	best := ""
	bestScore := 0
	for _, candidate := range candidates {
		candidateLower := strings.ToLower(candidate)
		score := fuzzy.Ratio(patternLower, candidateLower)
		if s := fuzzy.TokenSetRatio(patternLower, candidateLower); s > score {
			score = s
		}
		if s := fuzzy.PartialRatio(patternLower, candidateLower); s > score {
			score = s
		}
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}

	if bestScore >= m.Threshold {
		return best, float64(bestScore)
	}
	return "", 0
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// containsWord reports whether pattern occurs in text bounded by non-word
// characters or the text edges.
func containsWord(text, pattern string) bool {
	if pattern == "" {
		return false
	}
	for idx := 0; idx+len(pattern) <= len(text); {
		i := strings.Index(text[idx:], pattern)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(pattern)
		if (start == 0 || !isWordByte(text[start-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		idx = start + 1
	}
	return false
}
