package importer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dealerscore/backend/internal/models"
	"github.com/dealerscore/backend/internal/utils"
)

// CommitPlan is everything one import commit writes: alias upserts for
// newly confirmed names, entry upserts keyed (kpi, period, entry_type),
// and one import-log row for audit. The plan is idempotent: applying it
// twice upserts onto the same natural keys.
type CommitPlan struct {
	Aliases []models.Alias          `json:"aliases"`
	Entries []models.ScorecardEntry `json:"entries"`
	Log     models.ImportLog        `json:"log"`
}

type entityOutcome struct {
	DisplayName string  `json:"display_name"`
	UserID      string  `json:"user_id,omitempty"`
	MatchType   string  `json:"match_type,omitempty"`
	Confidence  float64 `json:"confidence"`
	Status      string  `json:"status"`
	IsTotals    bool    `json:"is_totals,omitempty"`
}

// BuildPlan turns a reconciliation result into upsert records. Entities
// left unresolved stay out of the entry set; they appear only in the log's
// unmatched list.
func BuildPlan(res Result, c *Context, fileName string, fileData []byte, period string) CommitPlan {
	now := time.Now().UTC()
	plan := CommitPlan{}

	for _, a := range res.AliasProposals {
		a.ID = uuid.NewString()
		a.CreatedAt = now
		plan.Aliases = append(plan.Aliases, a)
	}

	for _, e := range res.Entries {
		plan.Entries = append(plan.Entries, models.ScorecardEntry{
			ID:        uuid.NewString(),
			KPIID:     e.KPIID,
			Period:    e.Period,
			EntryType: e.EntryType,
			Value:     e.Value,
			Variance:  e.Variance,
			Status:    e.Status,
			UpdatedAt: now,
		})
	}

	outcomes := make([]entityOutcome, 0, len(res.Matches))
	for _, m := range res.Matches {
		outcomes = append(outcomes, entityOutcome{
			DisplayName: m.Entity.DisplayName,
			UserID:      m.UserID,
			MatchType:   m.MatchType,
			Confidence:  m.Confidence,
			Status:      string(m.Status),
			IsTotals:    m.Entity.IsTotals,
		})
	}
	outcomesJSON, _ := json.Marshal(outcomes)

	plan.Log = models.ImportLog{
		ID:             uuid.NewString(),
		StoreID:        c.Profile.StoreID,
		ProfileID:      c.Profile.ID,
		FileName:       fileName,
		FileHash:       utils.Fingerprint(fileData),
		Period:         period,
		MatchedCount:   res.Summary.Matched,
		UnmatchedCount: res.Summary.Unmatched + res.Summary.NeedsReview,
		EntryCount:     len(plan.Entries),
		UnmatchedNames: res.Summary.UnmatchedNames,
		Outcomes:       outcomesJSON,
		CreatedAt:      now,
	}
	return plan
}
