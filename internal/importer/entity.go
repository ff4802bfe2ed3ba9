package importer

import "sort"

type MatchStatus string

const (
	StatusUnmatched        MatchStatus = "UNMATCHED"
	StatusConfirmed        MatchStatus = "CONFIRMED"
	StatusAutoConfirmed    MatchStatus = "AUTO_CONFIRMED"
	StatusNeedsReview      MatchStatus = "NEEDS_REVIEW"
	StatusManuallyAssigned MatchStatus = "MANUALLY_ASSIGNED"
	StatusSkipped          MatchStatus = "SKIPPED"
)

const (
	MatchTypeAlias  = "alias"
	MatchTypeFuzzy  = "fuzzy"
	MatchTypeManual = "manual"
)

// Override is a human decision applied at commit time, keyed by the
// entity's normalized display name. It wins at any confidence tier.
type Override struct {
	UserID string `json:"user_id"`
	Skip   bool   `json:"skip"`
}

type Candidate struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
	Tier        Tier    `json:"tier"`
}

type EntityMatch struct {
	Entity     EntityRow   `json:"entity"`
	UserID     string      `json:"user_id,omitempty"`
	MatchType  string      `json:"match_type,omitempty"`
	Confidence float64     `json:"confidence"`
	Status     MatchStatus `json:"status"`
	Candidates []Candidate `json:"candidates,omitempty"`
	// NewAlias marks matches whose alias record does not exist yet and
	// should be proposed by the commit planner.
	NewAlias bool `json:"new_alias"`
}

// Resolved reports whether this match feeds entry extraction.
func (m EntityMatch) Resolved() bool {
	switch m.Status {
	case StatusConfirmed, StatusAutoConfirmed, StatusManuallyAssigned:
		return m.UserID != ""
	default:
		return false
	}
}

// MatchEntity resolves one entity row to a roster user: manual override
// first, then store alias (authoritative, regardless of fuzzy score), then
// fuzzy against the full roster. Totals rows are never auto-confirmed by
// score; they stay needs-review until a human maps them.
func (c *Context) MatchEntity(e EntityRow, override *Override) EntityMatch {
	m := EntityMatch{Entity: e, Status: StatusUnmatched}

	if override != nil {
		if override.Skip {
			m.Status = StatusSkipped
			return m
		}
		m.UserID = override.UserID
		m.MatchType = MatchTypeManual
		m.Confidence = 1.0
		m.Status = StatusManuallyAssigned
		_, hadAlias := c.AliasFor(e.DisplayName)
		m.NewAlias = !hadAlias
		return m
	}

	if a, ok := c.AliasFor(e.DisplayName); ok {
		m.UserID = a.UserID
		m.MatchType = MatchTypeAlias
		m.Confidence = 1.0
		m.Status = StatusConfirmed
		return m
	}

	m.Candidates = c.rankCandidates(e.DisplayName)
	if len(m.Candidates) == 0 {
		return m
	}

	best := m.Candidates[0]
	m.Confidence = best.Score
	if e.IsTotals {
		m.Status = StatusNeedsReview
		return m
	}
	switch {
	case best.Score >= AutoConfirmThreshold:
		m.UserID = best.UserID
		m.MatchType = MatchTypeFuzzy
		m.Status = StatusAutoConfirmed
		m.NewAlias = true
	default:
		m.Status = StatusNeedsReview
	}
	return m
}

// rankCandidates scores every roster user and keeps those at or above the
// partial tier, best first. Ties keep roster order, so results are
// deterministic for a fixed snapshot.
func (c *Context) rankCandidates(displayName string) []Candidate {
	var out []Candidate
	for _, u := range c.Roster {
		score := c.Scorer.Score(displayName, u.DisplayName)
		if TierFor(score) == TierNone {
			continue
		}
		out = append(out, Candidate{
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			Score:       score,
			Tier:        TierFor(score),
		})
	}
	// Stable sort keeps equal scores in roster order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
