package importer

import "github.com/dealerscore/backend/internal/models"

const (
	SourceRelative = "relative"
	SourceAbsolute = "absolute"
)

// ColumnResolution is the KPI a (owner, column) pair extracts into.
type ColumnResolution struct {
	KPI models.KPIDefinition
	// PerUser is false when the column aggregates at department level
	// regardless of which entity's row it was read from.
	PerUser bool
	// PayTypeFilter restricts extraction to the sub-table row with this
	// pay type; empty takes the entity's totals row.
	PayTypeFilter string
	Source        string
}

// ResolveColumn maps a column to a KPI for one owner. A relative mapping
// wins over an absolute one because it records an explicit per-user
// decision; relative mappings carry no row index, so the owner moving to a
// different row in the next period resolves identically. A column with
// neither mapping is unmapped: callers skip it silently and count it.
func (c *Context) ResolveColumn(ownerUserID string, col int) (ColumnResolution, bool) {
	if ownerUserID != "" {
		if m, ok := c.relByOwnerCol[ownerColKey(ownerUserID, col)]; ok {
			kpi, ok := c.kpiByID[m.KPIID]
			if !ok {
				// Mapping points at a deleted KPI; treat as unmapped.
				return ColumnResolution{}, false
			}
			return ColumnResolution{KPI: kpi, PerUser: true, Source: SourceRelative}, true
		}
	}

	m, ok := c.absByCol[col]
	if !ok {
		return ColumnResolution{}, false
	}
	kpi, ok := c.KPIByNameForOwner(m.KPIName, ownerUserID, m.PayTypeFilter)
	if !ok {
		return ColumnResolution{}, false
	}
	return ColumnResolution{
		KPI:           kpi,
		PerUser:       m.PerUser,
		PayTypeFilter: m.PayTypeFilter,
		Source:        SourceAbsolute,
	}, true
}
