package keywords

import "testing"

func testKeywords() []Keyword {
	return []Keyword{
		{
			ID:       1,
			Terms:    []string{"(ESP)", "Spanish"},
			Label:    "Spanish",
			Behavior: BehaviorSeparate,
			Enabled:  true,
		},
		{
			ID:       2,
			Terms:    []string{"Eli", "Manning Cast"},
			Label:    "ManningCast",
			Behavior: BehaviorSeparate,
			Enabled:  true,
		},
		{
			ID:       3,
			Terms:    []string{"Replay"},
			Behavior: BehaviorIgnore,
			Enabled:  true,
		},
		{
			ID:       4,
			Terms:    []string{"Disabled Term"},
			Behavior: BehaviorIgnore,
			Enabled:  false,
		},
	}
}

func TestMatchPunctuationTerm(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher(testKeywords())
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	res := m.Match("NBA: Celtics @ Knicks (ESP)")
	if !res.Matched {
		t.Fatal("parenthesized term should match")
	}
	if res.Term != "(ESP)" || res.Label != "Spanish" || res.Behavior != BehaviorSeparate {
		t.Fatalf("result = %+v", res)
	}
}

func TestMatchBoundaryAware(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher(testKeywords())
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	// "Eli" must not fire inside "Pelicans".
	if res := m.Match("NBA: Pelicans at Mavericks"); res.Matched {
		t.Fatalf("matched inside a longer word: %+v", res)
	}
	if res := m.Match("MNF with Eli and Peyton"); !res.Matched || res.Term != "Eli" {
		t.Fatalf("boundary match failed: %+v", res)
	}
}

func TestMatchCaseInsensitive(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher(testKeywords())
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	if res := m.Match("game replay from last night"); !res.Matched || res.Behavior != BehaviorIgnore {
		t.Fatalf("result = %+v", res)
	}
}

func TestMatchSkipsDisabled(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher(testKeywords())
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	if res := m.Match("something with Disabled Term inside"); res.Matched {
		t.Fatalf("disabled keyword matched: %+v", res)
	}
}

func TestMatchOrder(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher(testKeywords())
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	// First configured keyword wins when several could match.
	res := m.Match("Spanish Replay feed")
	if !res.Matched || res.Label != "Spanish" {
		t.Fatalf("result = %+v", res)
	}
}

func TestNoMatch(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher(testKeywords())
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	if res := m.Match("ordinary game feed"); res.Matched {
		t.Fatalf("unexpected match: %+v", res)
	}
}
