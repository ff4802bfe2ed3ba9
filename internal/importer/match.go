package importer

import "strings"

// Scorer scores similarity between a report-supplied name and a roster
// name in [0,1].
type Scorer interface {
	Score(candidate, rosterName string) float64
}

type Tier string

const (
	TierExact   Tier = "exact"
	TierHigh    Tier = "high"
	TierPartial Tier = "partial"
	TierNone    Tier = "none"
)

const (
	tierExactMin   = 0.90
	tierHighMin    = 0.70
	tierPartialMin = 0.50

	// AutoConfirmThreshold is the fuzzy score at which a match is
	// confirmed without human review.
	AutoConfirmThreshold = 0.85
)

func TierFor(score float64) Tier {
	switch {
	case score >= tierExactMin:
		return TierExact
	case score >= tierHighMin:
		return TierHigh
	case score >= tierPartialMin:
		return TierPartial
	default:
		return TierNone
	}
}

// NormalizeName lower-cases, strips punctuation and collapses whitespace.
// Alias lookups and fuzzy scoring both operate on normalized names.
func NormalizeName(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// NameScorer is the default Scorer: the better of token-set overlap and
// length-normalized edit distance over normalized names. Both directions
// of the comparison normalize identically, so argument order does not
// change the tier.
type NameScorer struct{}

func (NameScorer) Score(candidate, rosterName string) float64 {
	a := NormalizeName(candidate)
	b := NormalizeName(rosterName)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	t := tokenSetScore(a, b)
	e := editScore(a, b)
	if t > e {
		return t
	}
	return e
}

func tokenSetScore(a, b string) float64 {
	at := strings.Fields(a)
	bt := strings.Fields(b)
	if len(at) == 0 || len(bt) == 0 {
		return 0
	}
	set := make(map[string]bool, len(at))
	for _, t := range at {
		set[t] = true
	}
	shared := 0
	for _, t := range bt {
		if set[t] {
			shared++
		}
	}
	return float64(2*shared) / float64(len(at)+len(bt))
}

func editScore(a, b string) float64 {
	d := levenshtein(a, b)
	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	if max == 0 {
		return 0
	}
	return 1 - float64(d)/float64(max)
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
