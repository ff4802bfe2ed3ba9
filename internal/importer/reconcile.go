package importer

import (
	"sort"
	"strings"

	"github.com/dealerscore/backend/internal/grid"
	"github.com/dealerscore/backend/internal/models"
	"github.com/dealerscore/backend/internal/scorecard"
)

// ResolvedEntry is one (kpi, period) value ready for upsert, annotated
// with its owner for review display. OwnerUserID is empty for
// department-level values.
type ResolvedEntry struct {
	KPIID       string  `json:"kpi_id"`
	KPIName     string  `json:"kpi_name"`
	OwnerUserID string  `json:"owner_user_id,omitempty"`
	Period      string  `json:"period"`
	EntryType   string  `json:"entry_type"`
	Value       float64 `json:"value"`
	Variance    float64 `json:"variance"`
	Status      string  `json:"status"`
}

type Summary struct {
	Entities           int      `json:"entities"`
	Matched            int      `json:"matched"`
	AutoConfirmed      int      `json:"auto_confirmed"`
	NeedsReview        int      `json:"needs_review"`
	Unmatched          int      `json:"unmatched"`
	TotalsRows         int      `json:"totals_rows"`
	UnresolvedColumns  int      `json:"unresolved_columns"`
	DerivationsSkipped int      `json:"derivations_skipped"`
	EntryCount         int      `json:"entry_count"`
	UnmatchedNames     []string `json:"unmatched_names"`
}

type Result struct {
	Classification Classification  `json:"classification"`
	Matches        []EntityMatch   `json:"matches"`
	Entries        []ResolvedEntry `json:"entries"`
	AliasProposals []models.Alias  `json:"alias_proposals"`
	Summary        Summary         `json:"summary"`
}

var payTypes = map[string]string{
	"customer": "customer",
	"warranty": "warranty",
	"internal": "internal",
	"total":    "total",
	"totals":   "total",
}

// Reconcile runs the full pipeline over one grid: classify rows, match
// entities, resolve columns, extract values, derive dependent KPIs.
// It is pure over the snapshot in c; nothing is persisted until the caller
// commits the plan built from the Result, so an abandoned review discards
// everything.
func Reconcile(c *Context, g grid.Grid, period string, overrides map[string]Override) (Result, error) {
	cls, err := Classify(g, c.Profile.ReportType)
	if err != nil {
		return Result{}, err
	}

	res := Result{Classification: cls}
	res.Summary.Entities = len(cls.Entities)

	for _, e := range cls.Entities {
		var ov *Override
		if o, ok := overrides[NormalizeName(e.DisplayName)]; ok {
			ov = &o
		}
		m := c.MatchEntity(e, ov)
		res.Matches = append(res.Matches, m)

		switch {
		case e.IsTotals && !m.Resolved():
			res.Summary.TotalsRows++
		case m.Status == StatusConfirmed || m.Status == StatusManuallyAssigned:
			res.Summary.Matched++
		case m.Status == StatusAutoConfirmed:
			res.Summary.Matched++
			res.Summary.AutoConfirmed++
		case m.Status == StatusNeedsReview:
			res.Summary.NeedsReview++
			res.Summary.UnmatchedNames = append(res.Summary.UnmatchedNames, e.DisplayName)
		case m.Status == StatusUnmatched:
			res.Summary.Unmatched++
			res.Summary.UnmatchedNames = append(res.Summary.UnmatchedNames, e.DisplayName)
		}

		if m.NewAlias && m.Resolved() {
			res.AliasProposals = append(res.AliasProposals, models.Alias{
				StoreID:   c.Profile.StoreID,
				AliasName: e.DisplayName,
				UserID:    m.UserID,
			})
		}
	}

	// Extraction: values keyed by KPI id. Per-user columns set the value;
	// department-aggregated columns sum across entities.
	values := map[string]float64{}
	deptSums := map[string]float64{}

	for _, m := range res.Matches {
		if !m.Resolved() {
			continue
		}
		c.extractSegment(g, m.Entity.DataRows, m.UserID, values, deptSums, &res.Summary)
	}
	c.extractSegment(g, cls.DepartmentRows, "", values, deptSums, &res.Summary)
	for id, v := range deptSums {
		values[id] = v
	}

	res.Entries = c.buildEntries(values, period)
	res.Entries = append(res.Entries, c.deriveEntries(values, period, &res.Summary)...)
	res.Summary.EntryCount = len(res.Entries)
	return res, nil
}

// extractSegment reads every mapped numeric cell in the given rows. Column
// 0 is the sub-table label (pay type or name) and is never a data column.
// Unmapped columns are skipped silently; only the summary counts them.
func (c *Context) extractSegment(g grid.Grid, rows []int, ownerUserID string, values, deptSums map[string]float64, sum *Summary) {
	type slot struct {
		value     float64
		fromTotal bool
		set       bool
	}
	perUser := map[string]slot{}

	for _, ri := range rows {
		row := g[ri]
		rowPay := rowPayType(row)
		for col := 1; col < len(row); col++ {
			cell := row[col]
			if !cell.IsNum {
				continue
			}
			r, ok := c.ResolveColumn(ownerUserID, col)
			if !ok {
				sum.UnresolvedColumns++
				continue
			}
			if r.Source == SourceAbsolute && r.PayTypeFilter != "" && rowPay != r.PayTypeFilter {
				continue
			}

			if !r.PerUser {
				deptSums[r.KPI.ID] += cell.Number
				continue
			}

			s := perUser[r.KPI.ID]
			// Without a pay-type filter the totals sub-row wins over the
			// per-pay-type rows; otherwise first numeric wins.
			if !s.set || (rowPay == "total" && !s.fromTotal) {
				perUser[r.KPI.ID] = slot{value: cell.Number, fromTotal: rowPay == "total", set: true}
			}
		}
	}

	for id, s := range perUser {
		values[id] = s.value
	}
}

func rowPayType(row []grid.Cell) string {
	if len(row) == 0 {
		return ""
	}
	return payTypes[strings.ToLower(strings.TrimSpace(row[0].Text))]
}

func (c *Context) buildEntries(values map[string]float64, period string) []ResolvedEntry {
	var out []ResolvedEntry
	for _, kpi := range c.sortedKPIs() {
		v, ok := values[kpi.ID]
		if !ok {
			continue
		}
		variance, status := scorecard.Compute(v, kpi.Target, kpi.MetricType, kpi.TargetDirection)
		out = append(out, ResolvedEntry{
			KPIID:       kpi.ID,
			KPIName:     kpi.Name,
			OwnerUserID: derefOwner(kpi.AssignedTo),
			Period:      period,
			EntryType:   models.EntryTypeImported,
			Value:       v,
			Variance:    variance,
			Status:      string(status),
		})
	}
	return out
}

// deriveEntries recomputes dependent KPIs per owner. Grouping by owner
// before derivation is what guarantees a ratio never mixes one owner's
// numerator with another's denominator.
func (c *Context) deriveEntries(values map[string]float64, period string, sum *Summary) []ResolvedEntry {
	byOwner := map[string]map[string]float64{}
	for _, kpi := range c.sortedKPIs() {
		v, ok := values[kpi.ID]
		if !ok {
			continue
		}
		owner := derefOwner(kpi.AssignedTo)
		if byOwner[owner] == nil {
			byOwner[owner] = map[string]float64{}
		}
		byOwner[owner][kpi.Name] = v
	}

	var out []ResolvedEntry
	for _, owner := range sortedKeys(byOwner) {
		owned := byOwner[owner]
		derived, skipped := scorecard.Derive(owned, func(name string) bool {
			_, ok := c.ownedKPI(name, owner)
			return ok
		})
		sum.DerivationsSkipped += skipped
		for _, name := range sortedKeys(derived) {
			kpi, _ := c.ownedKPI(name, owner)
			v := derived[name]
			variance, status := scorecard.Compute(v, kpi.Target, kpi.MetricType, kpi.TargetDirection)
			out = append(out, ResolvedEntry{
				KPIID:       kpi.ID,
				KPIName:     kpi.Name,
				OwnerUserID: owner,
				Period:      period,
				EntryType:   models.EntryTypeDerived,
				Value:       v,
				Variance:    variance,
				Status:      string(status),
			})
		}
	}
	return out
}

// ownedKPI resolves a KPI name strictly scoped to one owner (or strictly
// department-level when owner is empty) with no cross-scope fallback.
func (c *Context) ownedKPI(name, owner string) (models.KPIDefinition, bool) {
	for _, k := range c.kpisByName[NormalizeName(name)] {
		if owner == "" && k.AssignedTo == nil {
			return k, true
		}
		if owner != "" && k.AssignedTo != nil && *k.AssignedTo == owner {
			return k, true
		}
	}
	return models.KPIDefinition{}, false
}

func (c *Context) sortedKPIs() []models.KPIDefinition {
	out := make([]models.KPIDefinition, 0, len(c.kpiByID))
	for _, k := range c.kpiByID {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func derefOwner(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
