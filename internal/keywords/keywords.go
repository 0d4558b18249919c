// Package keywords matches exception keywords against stream names.
// Keywords mark streams that need special handling: alternate feeds kept
// as separate channels, or streams excluded from matching entirely.
package keywords

import (
	"fmt"
	"regexp"
	"strings"
)

// Behaviors an exception keyword can request.
const (
	BehaviorSeparate = "separate"
	BehaviorIgnore   = "ignore"
)

// Keyword is one exception keyword set: any of Terms matching applies the
// behavior, with Label carried into the channel name for separate feeds.
type Keyword struct {
	ID       int64
	Terms    []string
	Label    string
	Behavior string
	Enabled  bool
}

// Result of checking a stream name against the configured keywords.
type Result struct {
	Matched  bool
	Term     string
	Label    string
	Behavior string
}

type compiledTerm struct {
	keyword Keyword
	term    string
	re      *regexp.Regexp
}

// Matcher holds compiled keyword patterns. Matching is boundary-aware so
// "Eli" never fires inside "Pelicans".
type Matcher struct {
	terms []compiledTerm
}

// NewMatcher compiles enabled keywords. Terms are matched case-insensitively
// at non-word boundaries; a term that fails to compile is reported rather
// than silently dropped.
func NewMatcher(keywords []Keyword) (*Matcher, error) {
	m := &Matcher{}
	for _, kw := range keywords {
		if !kw.Enabled {
			continue
		}
		for _, term := range kw.Terms {
			trimmed := strings.TrimSpace(term)
			if trimmed == "" {
				continue
			}
			re, err := compileTerm(trimmed)
			if err != nil {
				return nil, fmt.Errorf("compile keyword %q: %w", trimmed, err)
			}
			m.terms = append(m.terms, compiledTerm{keyword: kw, term: trimmed, re: re})
		}
	}
	return m, nil
}

// compileTerm builds a case-insensitive pattern requiring non-word
// characters (or string edges) on both sides of the term. Punctuation
// inside the term is matched literally, so "(ESP)" works as written.
func compileTerm(term string) (*regexp.Regexp, error) {
	pattern := `(?i)(?:^|[^0-9A-Za-z_])` + regexp.QuoteMeta(term) + `(?:$|[^0-9A-Za-z_])`
	return regexp.Compile(pattern)
}

// Match returns the first keyword whose term appears in streamName. Keywords
// are checked in configuration order.
func (m *Matcher) Match(streamName string) Result {
	for _, ct := range m.terms {
		if ct.re.MatchString(streamName) {
			return Result{
				Matched:  true,
				Term:     ct.term,
				Label:    ct.keyword.Label,
				Behavior: ct.keyword.Behavior,
			}
		}
	}
	return Result{}
}

// Len reports the number of compiled terms.
func (m *Matcher) Len() int {
	return len(m.terms)
}
