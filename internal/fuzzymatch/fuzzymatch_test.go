package fuzzymatch

import (
	"testing"

	"teamsync/internal/sports"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Boston Celtics", "boston celtics"},
		{"  Montréal   Canadiens  ", "montreal canadiens"},
		{"St. Louis Blues!", "st louis blues"},
		{"A&M", "a m"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExpandAbbreviations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"ufc fn prelims", "ufc fight night prelims"},
		{"boxing ppv", "boxing pay per view"},
		{"celtics vs knicks", "celtics versus knicks"},
		{"fnatic match", "fnatic match"}, // no boundary, no expansion
	}
	for _, tc := range cases {
		if got := ExpandAbbreviations(tc.in); got != tc.want {
			t.Errorf("ExpandAbbreviations(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTeamPatternsMascotDerivation(t *testing.T) {
	t.Parallel()

	patterns := TeamPatterns(sports.Team{
		Name:         "Boston Celtics",
		ShortName:    "Celtics",
		Abbreviation: "BOS",
	})

	byText := make(map[string]Pattern)
	for _, p := range patterns {
		byText[p.Text] = p
	}

	if p, ok := byText["boston celtics"]; !ok || !p.Distinctive {
		t.Fatalf("full name pattern = %+v", p)
	}
	if p, ok := byText["celtics"]; !ok || !p.Distinctive {
		t.Fatalf("mascot pattern = %+v", p)
	}
	if p, ok := byText["boston"]; !ok || p.Distinctive {
		t.Fatalf("city pattern must be non-distinctive, got %+v", p)
	}
}

func TestTeamPatternsLocationDerivation(t *testing.T) {
	t.Parallel()

	patterns := TeamPatterns(sports.Team{
		Name:         "Florida Atlantic Owls",
		ShortName:    "Florida Atlantic",
		Abbreviation: "FAU",
	})

	byText := make(map[string]Pattern)
	for _, p := range patterns {
		byText[p.Text] = p
	}
	if p, ok := byText["owls"]; !ok || !p.Distinctive {
		t.Fatalf("derived mascot = %+v", p)
	}
	if p, ok := byText["florida atlantic"]; !ok || p.Distinctive {
		t.Fatalf("location must be non-distinctive, got %+v", p)
	}
}

func TestMatchesAnyDistinctiveSubstring(t *testing.T) {
	t.Parallel()

	m := New()
	patterns := TeamPatterns(sports.Team{Name: "Boston Celtics", ShortName: "Celtics", Abbreviation: "BOS"})

	res := m.MatchesAny(patterns, "NBA: Boston Celtics @ New York Knicks (720p)")
	if !res.Matched || res.Score != 100 {
		t.Fatalf("result = %+v", res)
	}
	if res.Pattern != "boston celtics" {
		t.Fatalf("pattern = %q, want full name via substring", res.Pattern)
	}
}

func TestMatchesAnyWordBoundary(t *testing.T) {
	t.Parallel()

	m := New()
	hawks := TeamPatterns(sports.Team{Name: "Atlanta Hawks", ShortName: "Hawks", Abbreviation: "ATL"})

	// "hawks" must not fire inside "blackhawks".
	if res := m.MatchesAny(hawks, "NHL: Chicago Blackhawks vs Blues"); res.Matched {
		t.Fatalf("hawks matched inside blackhawks: %+v", res)
	}
	if res := m.MatchesAny(hawks, "NBA: Hawks at Heat"); !res.Matched {
		t.Fatal("hawks should match at a word boundary")
	}
}

func TestMatchesAnyCityCoverage(t *testing.T) {
	t.Parallel()

	m := New()
	celtics := TeamPatterns(sports.Team{Name: "Boston Celtics", ShortName: "Celtics", Abbreviation: "BOS"})

	// "boston" alone covers too little of a longer title to be trusted.
	if res := m.MatchesAny(celtics, "Boston Bruins hockey tonight"); res.Matched {
		t.Fatalf("city must not match another team's feed: %+v", res)
	}
	// But a title that is essentially just the city qualifies.
	if res := m.MatchesAny(celtics, "boston"); !res.Matched {
		t.Fatal("city-only title should match on coverage")
	}
}

func TestMatchesAnyAbbreviationExpansion(t *testing.T) {
	t.Parallel()

	m := New()
	patterns := []Pattern{{Text: "ufc fight night", Distinctive: true}}

	if res := m.MatchesAny(patterns, "UFC FN 250: Main Card"); !res.Matched {
		t.Fatal("abbreviated title should match after expansion")
	}
}

func TestMatchesAnyEmptyText(t *testing.T) {
	t.Parallel()

	m := New()
	patterns := TeamPatterns(sports.Team{Name: "Boston Celtics", ShortName: "Celtics"})
	if res := m.MatchesAny(patterns, "  !! "); res.Matched {
		t.Fatalf("empty normalized text matched: %+v", res)
	}
}

func TestBestMatch(t *testing.T) {
	t.Parallel()

	m := New()
	candidates := []string{"New York Knicks", "New Orleans Pelicans", "Boston Celtics"}

	best, score := m.BestMatch("Boston Celtics", candidates)
	if best != "Boston Celtics" || score < float64(m.Threshold) {
		t.Fatalf("best = %q score = %v", best, score)
	}

	if best, _ := m.BestMatch("Seattle Kraken", candidates); best != "" {
		t.Fatalf("unrelated pattern matched %q", best)
	}
}

func TestContainsWord(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text    string
		pattern string
		want    bool
	}{
		{"hawks at heat", "hawks", true},
		{"blackhawks at blues", "hawks", false},
		{"hawks", "hawks", true},
		{"the hawks game", "hawks", true},
		{"hawksville", "hawks", false},
		{"", "hawks", false},
	}
	for _, tc := range cases {
		if got := containsWord(tc.text, tc.pattern); got != tc.want {
			t.Errorf("containsWord(%q, %q) = %v, want %v", tc.text, tc.pattern, got, tc.want)
		}
	}
}
