package importer

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  Jane   Doe ": "jane doe",
		"J. Doe":        "j doe",
		"O'Brien, Pat":  "o brien pat",
		"":              "",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := NameScorer{}
	a := s.Score("Jane Doe", "J. Doe")
	b := s.Score("Jane Doe", "J. Doe")
	if a != b {
		t.Fatalf("expected deterministic score, got %v then %v", a, b)
	}
}

func TestScoreCaseAndWhitespaceInsensitive(t *testing.T) {
	s := NameScorer{}
	if got := s.Score("  JANE   doe ", "Jane Doe"); got != 1 {
		t.Fatalf("expected 1.0 for normalized-equal names, got %v", got)
	}
}

func TestScoreArgumentOrderKeepsTier(t *testing.T) {
	s := NameScorer{}
	ab := s.Score("Bob Martin", "Robert Martin")
	ba := s.Score("Robert Martin", "Bob Martin")
	if TierFor(ab) != TierFor(ba) {
		t.Fatalf("tier changed with argument order: %v vs %v", ab, ba)
	}
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  Tier
	}{
		{0.95, TierExact},
		{0.90, TierExact},
		{0.89, TierHigh},
		{0.70, TierHigh},
		{0.69, TierPartial},
		{0.50, TierPartial},
		{0.49, TierNone},
		{0, TierNone},
	}
	for _, c := range cases {
		if got := TierFor(c.score); got != c.want {
			t.Fatalf("TierFor(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestScoreUnrelatedNamesDiscarded(t *testing.T) {
	s := NameScorer{}
	if got := s.Score("Zzzz Qqqq", "Jane Doe"); TierFor(got) != TierNone {
		t.Fatalf("expected unrelated names below partial tier, got %v", got)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"same", "same", 0},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Fatalf("levenshtein(%q,%q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
