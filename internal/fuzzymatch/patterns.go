// Package fuzzymatch generates ranked, distinctiveness-tagged search
// patterns for teams and scores candidate text against them.
package fuzzymatch

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"teamsync/internal/sports"
)

// Pattern is a searchable pattern for team matching. Distinctive patterns
// (mascots, full names, abbreviations) are unique enough to match on their
// own; non-distinctive ones (cities, locations) need stronger corroboration.
type Pattern struct {
	Text        string
	Distinctive bool
	Source      string
}

// abbreviations expanded in stream text before matching. Longest first so
// "ufc fn" wins over "fn".
var abbreviations = map[string]string{
	"fn":     "fight night",
	"ufc fn": "ufc fight night",
	"ppv":    "pay per view",
	"vs":     "versus",
	"v":      "versus",
}

type expansion struct {
	re          *regexp.Regexp
	replacement string
}

var expansions = func() []expansion {
	keys := make([]string, 0, len(abbreviations))
	for key := range abbreviations {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	out := make([]expansion, 0, len(keys))
	for _, key := range keys {
		out = append(out, expansion{
			re:          regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `\b`),
			replacement: abbreviations[key],
		})
	}
	return out
}()

// asciiFold strips combining marks after NFD decomposition (é→e, ü→u).
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var punctuation = regexp.MustCompile(`[^a-z0-9_\s]+`)

// Normalize prepares text for matching: transliterate to plain ASCII,
// lowercase, strip punctuation to spaces, collapse whitespace.
func Normalize(value string) string {
	folded, _, err := transform.String(asciiFold, value)
	if err != nil {
		folded = value
	}
	lowered := strings.ToLower(strings.TrimSpace(folded))
	cleaned := punctuation.ReplaceAllString(lowered, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// ExpandAbbreviations rewrites known abbreviations in text so "UFC FN
// Prelims" matches "ufc fight night prelims".
func ExpandAbbreviations(text string) string {
	result := strings.ToLower(text)
	for _, exp := range expansions {
		result = exp.re.ReplaceAllString(result, exp.replacement)
	}
	return result
}

// TeamPatterns generates searchable patterns for a team in priority order.
//
// Distinctiveness is derived from provider data rather than a maintained
// mascot list: the full name is always distinctive; when the short name sits
// at the end of the name it is the mascot (distinctive) and the prefix is
// the city (non-distinctive); when it sits at the start the remainder is the
// mascot and the short name is the location; the abbreviation is always
// distinctive.
func TeamPatterns(team sports.Team) []Pattern {
	var patterns []Pattern
	seen := make(map[string]struct{})

	add := func(value string, distinctive bool, source string) {
		normalized := Normalize(value)
		if len(normalized) < 2 {
			return
		}
		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		patterns = append(patterns, Pattern{Text: normalized, Distinctive: distinctive, Source: source})
	}

	if team.Name != "" {
		add(team.Name, true, "full_name")
	}

	switch {
	case team.Name != "" && team.ShortName != "":
		nameNorm := Normalize(team.Name)
		shortNorm := Normalize(team.ShortName)
		switch {
		case strings.HasSuffix(nameNorm, " "+shortNorm):
			// "Boston Celtics" / "Celtics": prefix is the city.
			add(strings.TrimSuffix(nameNorm, " "+shortNorm), false, "derived_city")
			add(shortNorm, true, "short_name_mascot")
		case strings.HasPrefix(nameNorm, shortNorm+" "):
			// "Florida Atlantic Owls" / "Florida Atlantic": suffix is the mascot.
			add(shortNorm, false, "short_name_location")
			add(strings.TrimPrefix(nameNorm, shortNorm+" "), true, "derived_mascot")
		default:
			add(shortNorm, true, "short_name")
		}
	case team.ShortName != "":
		add(team.ShortName, true, "short_name")
	}

	add(team.Abbreviation, true, "abbreviation")

	return patterns
}
