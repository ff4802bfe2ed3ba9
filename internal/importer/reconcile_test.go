package importer

import (
	"testing"

	"github.com/dealerscore/backend/internal/grid"
	"github.com/dealerscore/backend/internal/models"
)

func advisorSnapshot() Snapshot {
	return Snapshot{
		Profile: models.ImportProfile{ID: "P1", StoreID: "S1", ReportType: ReportTypeAdvisor},
		Roster: []models.RosterUser{
			{ID: "U9", DisplayName: "Jane Doe"},
			{ID: "U2", DisplayName: "Bob Martin"},
		},
		Aliases: []models.Alias{
			{StoreID: "S1", AliasName: "jane doe", UserID: "U9"},
			{StoreID: "S1", AliasName: "bob martin", UserID: "U2"},
		},
		RelativeMappings: []models.RelativeMapping{
			{ProfileID: "P1", OwnerUserID: "U9", ColumnIndex: 1, KPIID: "K1"},
			{ProfileID: "P1", OwnerUserID: "U9", ColumnIndex: 2, KPIID: "K2"},
			{ProfileID: "P1", OwnerUserID: "U9", ColumnIndex: 3, KPIID: "K3"},
		},
		KPIs: []models.KPIDefinition{
			{ID: "K1", Name: "CP RO Count", MetricType: models.MetricUnit, TargetDirection: models.DirectionAbove, Target: 10, AssignedTo: strPtr("U9")},
			{ID: "K2", Name: "CP Hours", MetricType: models.MetricUnit, TargetDirection: models.DirectionAbove, Target: 30, AssignedTo: strPtr("U9")},
			{ID: "K3", Name: "CP Labour Sales", MetricType: models.MetricDollar, TargetDirection: models.DirectionAbove, Target: 1000, AssignedTo: strPtr("U9")},
			{ID: "K4", Name: "CP ELR", MetricType: models.MetricDollar, TargetDirection: models.DirectionAbove, Target: 40, AssignedTo: strPtr("U9")},
		},
	}
}

func advisorGrid() grid.Grid {
	return grid.FromStrings([][]string{
		{"Store Report"},
		{"Pay Type", "#SO", "Sold Hrs", "Lab Sold"},
		{"Advisor 1 - Jane Doe"},
		{"Customer", "12", "34.5", "1200"},
	})
}

func entryByKPI(entries []ResolvedEntry, kpiID string) (ResolvedEntry, bool) {
	for _, e := range entries {
		if e.KPIID == kpiID {
			return e, true
		}
	}
	return ResolvedEntry{}, false
}

func TestReconcileEndToEnd(t *testing.T) {
	c := NewContext(advisorSnapshot(), nil)
	res, err := Reconcile(c, advisorGrid(), "2025-03", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Summary.Matched != 1 || res.Summary.Unmatched != 0 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}

	for kpi, want := range map[string]float64{"K1": 12, "K2": 34.5, "K3": 1200} {
		e, ok := entryByKPI(res.Entries, kpi)
		if !ok {
			t.Fatalf("missing entry for %s", kpi)
		}
		if e.Value != want {
			t.Fatalf("entry %s = %v, want %v", kpi, e.Value, want)
		}
		if e.EntryType != models.EntryTypeImported {
			t.Fatalf("entry %s type = %s", kpi, e.EntryType)
		}
		if e.OwnerUserID != "U9" {
			t.Fatalf("entry %s owner = %q", kpi, e.OwnerUserID)
		}
	}

	// CP ELR = 1200 / 34.5, full precision.
	derived, ok := entryByKPI(res.Entries, "K4")
	if !ok {
		t.Fatalf("expected derived CP ELR entry")
	}
	if derived.EntryType != models.EntryTypeDerived {
		t.Fatalf("expected derived entry type, got %s", derived.EntryType)
	}
	want := 1200 / 34.5
	if derived.Value != want {
		t.Fatalf("CP ELR = %v, want %v", derived.Value, want)
	}
}

func TestReconcileRowShiftIndependence(t *testing.T) {
	snap := advisorSnapshot()
	c := NewContext(snap, nil)

	shifted := grid.FromStrings([][]string{
		{"Store Report"},
		{"Pay Type", "#SO", "Sold Hrs", "Lab Sold"},
		{"Advisor 1 - Bob Martin"},
		{"Customer", "5", "10", "400"},
		{"Advisor 2 - Jane Doe"},
		{"Customer", "12", "34.5", "1200"},
	})

	res, err := Reconcile(c, shifted, "2025-04", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	// Jane moved rows but (owner, column) still resolves to the same KPI.
	e, ok := entryByKPI(res.Entries, "K2")
	if !ok || e.Value != 34.5 {
		t.Fatalf("expected K2=34.5 independent of row position, got %+v", e)
	}
}

func TestReconcileDerivationNeverMixesOwners(t *testing.T) {
	two := "U2"
	snap := advisorSnapshot()
	snap.RelativeMappings = append(snap.RelativeMappings,
		models.RelativeMapping{ProfileID: "P1", OwnerUserID: "U2", ColumnIndex: 2, KPIID: "K12"},
		models.RelativeMapping{ProfileID: "P1", OwnerUserID: "U2", ColumnIndex: 3, KPIID: "K13"},
	)
	snap.KPIs = append(snap.KPIs,
		models.KPIDefinition{ID: "K12", Name: "CP Hours", MetricType: models.MetricUnit, TargetDirection: models.DirectionAbove, Target: 30, AssignedTo: &two},
		models.KPIDefinition{ID: "K13", Name: "CP Labour Sales", MetricType: models.MetricDollar, TargetDirection: models.DirectionAbove, Target: 1000, AssignedTo: &two},
		models.KPIDefinition{ID: "K14", Name: "CP ELR", MetricType: models.MetricDollar, TargetDirection: models.DirectionAbove, Target: 40, AssignedTo: &two},
	)
	c := NewContext(snap, nil)

	g := grid.FromStrings([][]string{
		{"Pay Type", "#SO", "Sold Hrs", "Lab Sold"},
		{"Advisor 1 - Jane Doe"},
		{"Customer", "12", "100", "10000"},
		{"Advisor 2 - Bob Martin"},
		{"Customer", "5", "50", "1000"},
	})

	res, err := Reconcile(c, g, "2025-03", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	jane, ok := entryByKPI(res.Entries, "K4")
	if !ok || jane.Value != 100 {
		t.Fatalf("expected Jane's CP ELR 10000/100=100, got %+v", jane)
	}
	bob, ok := entryByKPI(res.Entries, "K14")
	if !ok || bob.Value != 20 {
		t.Fatalf("expected Bob's CP ELR 1000/50=20, got %+v", bob)
	}
}

func TestReconcileUnmatchedEntityExcluded(t *testing.T) {
	snap := advisorSnapshot()
	snap.Aliases = nil
	snap.Roster = []models.RosterUser{{ID: "U5", DisplayName: "Someone Else Entirely"}}
	c := NewContext(snap, nil)

	res, err := Reconcile(c, advisorGrid(), "2025-03", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Fatalf("unmatched entity must not produce entries, got %+v", res.Entries)
	}
	if len(res.Summary.UnmatchedNames) != 1 || res.Summary.UnmatchedNames[0] != "Jane Doe" {
		t.Fatalf("expected Jane Doe in unmatched list, got %v", res.Summary.UnmatchedNames)
	}
}

func TestReconcileOverrideResolvesUnmatched(t *testing.T) {
	snap := advisorSnapshot()
	snap.Aliases = nil
	snap.Roster = []models.RosterUser{{ID: "U9", DisplayName: "Someone Else Entirely"}}
	c := NewContext(snap, nil)

	overrides := map[string]Override{
		NormalizeName("Jane Doe"): {UserID: "U9"},
	}
	res, err := Reconcile(c, advisorGrid(), "2025-03", overrides)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Summary.Matched != 1 {
		t.Fatalf("expected override to resolve entity: %+v", res.Summary)
	}
	if len(res.AliasProposals) != 1 || res.AliasProposals[0].UserID != "U9" {
		t.Fatalf("expected alias proposal for override, got %+v", res.AliasProposals)
	}
	if _, ok := entryByKPI(res.Entries, "K2"); !ok {
		t.Fatalf("expected entries for overridden entity")
	}
}

func TestReconcileUnmappedColumnsCountedNotFatal(t *testing.T) {
	snap := advisorSnapshot()
	snap.RelativeMappings = snap.RelativeMappings[:1] // only column 1 mapped
	c := NewContext(snap, nil)

	res, err := Reconcile(c, advisorGrid(), "2025-03", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Summary.UnresolvedColumns == 0 {
		t.Fatalf("expected unresolved columns counted")
	}
	if _, ok := entryByKPI(res.Entries, "K1"); !ok {
		t.Fatalf("mapped column must still extract")
	}
}

func TestReconcileDepartmentAggregation(t *testing.T) {
	dept := Snapshot{
		Profile: models.ImportProfile{ID: "P1", StoreID: "S1", ReportType: ReportTypeAdvisor},
		Roster: []models.RosterUser{
			{ID: "U9", DisplayName: "Jane Doe"},
			{ID: "U2", DisplayName: "Bob Martin"},
		},
		Aliases: []models.Alias{
			{StoreID: "S1", AliasName: "jane doe", UserID: "U9"},
			{StoreID: "S1", AliasName: "bob martin", UserID: "U2"},
		},
		AbsoluteMappings: []models.AbsoluteMapping{
			{ProfileID: "P1", ColumnIndex: 3, KPIName: "Lab Sold", PerUser: false},
		},
		KPIs: []models.KPIDefinition{
			{ID: "KD", Name: "Lab Sold", MetricType: models.MetricDollar, TargetDirection: models.DirectionAbove, Target: 1500},
		},
	}
	c := NewContext(dept, nil)

	g := grid.FromStrings([][]string{
		{"Pay Type", "#SO", "Sold Hrs", "Lab Sold"},
		{"Advisor 1 - Jane Doe"},
		{"Customer", "12", "34.5", "1200"},
		{"Advisor 2 - Bob Martin"},
		{"Customer", "5", "10", "400"},
	})

	res, err := Reconcile(c, g, "2025-03", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	e, ok := entryByKPI(res.Entries, "KD")
	if !ok {
		t.Fatalf("expected department entry")
	}
	if e.Value != 1600 {
		t.Fatalf("expected per-entity values summed to department level, got %v", e.Value)
	}
	if e.OwnerUserID != "" {
		t.Fatalf("department entry must have no owner, got %q", e.OwnerUserID)
	}
}

func TestReconcileTotalsRowPreferredWithoutFilter(t *testing.T) {
	snap := Snapshot{
		Profile: models.ImportProfile{ID: "P1", StoreID: "S1", ReportType: ReportTypeAdvisor},
		Roster:  []models.RosterUser{{ID: "U9", DisplayName: "Jane Doe"}},
		Aliases: []models.Alias{{StoreID: "S1", AliasName: "jane doe", UserID: "U9"}},
		RelativeMappings: []models.RelativeMapping{
			{ProfileID: "P1", OwnerUserID: "U9", ColumnIndex: 3, KPIID: "K3"},
		},
		KPIs: []models.KPIDefinition{
			{ID: "K3", Name: "Lab Sold", MetricType: models.MetricDollar, TargetDirection: models.DirectionAbove, Target: 1000, AssignedTo: strPtr("U9")},
		},
	}
	c := NewContext(snap, nil)

	g := grid.FromStrings([][]string{
		{"Pay Type", "#SO", "Sold Hrs", "Lab Sold"},
		{"Advisor 1 - Jane Doe"},
		{"Customer", "12", "34.5", "1200"},
		{"Warranty", "2", "4", "300"},
		{"Total", "14", "38.5", "1500"},
	})

	res, err := Reconcile(c, g, "2025-03", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	e, ok := entryByKPI(res.Entries, "K3")
	if !ok || e.Value != 1500 {
		t.Fatalf("expected totals sub-row value 1500, got %+v", e)
	}
}

func TestReconcileRepeatedRunsIdentical(t *testing.T) {
	c := NewContext(advisorSnapshot(), nil)
	g := advisorGrid()

	a, err := Reconcile(c, g, "2025-03", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	b, err := Reconcile(c, g, "2025-03", nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(a.Entries) != len(b.Entries) {
		t.Fatalf("entry count flapped: %d vs %d", len(a.Entries), len(b.Entries))
	}
	for i := range a.Entries {
		if a.Entries[i] != b.Entries[i] {
			t.Fatalf("entry %d differs across runs: %+v vs %+v", i, a.Entries[i], b.Entries[i])
		}
	}
}
