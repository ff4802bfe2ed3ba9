package importer

import (
	"encoding/json"
	"testing"

	"github.com/dealerscore/backend/internal/models"
)

func TestBuildPlan(t *testing.T) {
	c := NewContext(advisorSnapshot(), nil)
	res, err := Reconcile(c, advisorGrid(), "2025-03", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	fileData := []byte("spreadsheet-bytes")
	plan := BuildPlan(res, c, "march.xlsx", fileData, "2025-03")

	if len(plan.Entries) != len(res.Entries) {
		t.Fatalf("expected %d entries, got %d", len(res.Entries), len(plan.Entries))
	}
	for _, e := range plan.Entries {
		if e.ID == "" || e.Period != "2025-03" {
			t.Fatalf("bad entry record: %+v", e)
		}
	}

	// Jane matched through an existing alias, so nothing is proposed.
	if len(plan.Aliases) != 0 {
		t.Fatalf("expected no alias proposals, got %+v", plan.Aliases)
	}

	if plan.Log.FileName != "march.xlsx" || plan.Log.Period != "2025-03" {
		t.Fatalf("bad log identity: %+v", plan.Log)
	}
	if plan.Log.FileHash == "" {
		t.Fatalf("expected file fingerprint in log")
	}
	if plan.Log.MatchedCount != 1 || plan.Log.EntryCount != len(plan.Entries) {
		t.Fatalf("bad log counts: %+v", plan.Log)
	}

	var outcomes []map[string]any
	if err := json.Unmarshal(plan.Log.Outcomes, &outcomes); err != nil {
		t.Fatalf("outcomes not valid json: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0]["display_name"] != "Jane Doe" {
		t.Fatalf("expected per-entity outcome for Jane Doe, got %v", outcomes)
	}
}

func TestBuildPlanProposesNewAliases(t *testing.T) {
	snap := advisorSnapshot()
	snap.Aliases = nil // force a fuzzy auto-confirm
	c := NewContext(snap, nil)

	res, err := Reconcile(c, advisorGrid(), "2025-03", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	plan := BuildPlan(res, c, "march.xlsx", []byte("x"), "2025-03")

	if len(plan.Aliases) != 1 {
		t.Fatalf("expected 1 alias proposal, got %+v", plan.Aliases)
	}
	a := plan.Aliases[0]
	if a.ID == "" || a.StoreID != "S1" || a.UserID != "U9" || a.AliasName != "Jane Doe" {
		t.Fatalf("bad alias proposal: %+v", a)
	}
}

func TestBuildPlanStableFingerprint(t *testing.T) {
	c := NewContext(advisorSnapshot(), nil)
	res, _ := Reconcile(c, advisorGrid(), "2025-03", nil)

	p1 := BuildPlan(res, c, "march.xlsx", []byte("same-bytes"), "2025-03")
	p2 := BuildPlan(res, c, "march.xlsx", []byte("same-bytes"), "2025-03")
	if p1.Log.FileHash != p2.Log.FileHash {
		t.Fatalf("fingerprint must be stable: %s vs %s", p1.Log.FileHash, p2.Log.FileHash)
	}
}

func TestBuildPlanUnresolvedEntitiesInLogOnly(t *testing.T) {
	snap := advisorSnapshot()
	snap.Aliases = nil
	snap.Roster = []models.RosterUser{{ID: "U5", DisplayName: "Someone Else Entirely"}}
	c := NewContext(snap, nil)

	res, err := Reconcile(c, advisorGrid(), "2025-03", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	plan := BuildPlan(res, c, "march.xlsx", []byte("x"), "2025-03")

	if len(plan.Entries) != 0 || len(plan.Aliases) != 0 {
		t.Fatalf("unresolved entity must not produce records: %+v", plan)
	}
	if plan.Log.UnmatchedCount != 1 || len(plan.Log.UnmatchedNames) != 1 {
		t.Fatalf("expected unmatched name recorded in log, got %+v", plan.Log)
	}
}
