package importer

import (
	"fmt"

	"github.com/dealerscore/backend/internal/models"
)

// Context is the frozen snapshot one reconciliation pass runs against.
// Everything is fetched at invocation start; roster or mapping changes made
// mid-pass are not observed until the next invocation. Pipeline stages read
// it and return new values, never mutate it.
type Context struct {
	Profile models.ImportProfile
	Roster  []models.RosterUser
	Scorer  Scorer

	aliasByName   map[string]models.Alias
	relByOwnerCol map[string]models.RelativeMapping
	absByCol      map[int]models.AbsoluteMapping
	templateByCol map[int]models.ColumnTemplate
	kpiByID       map[string]models.KPIDefinition
	kpisByName    map[string][]models.KPIDefinition
}

type Snapshot struct {
	Profile          models.ImportProfile
	Roster           []models.RosterUser
	Aliases          []models.Alias
	AbsoluteMappings []models.AbsoluteMapping
	RelativeMappings []models.RelativeMapping
	Templates        []models.ColumnTemplate
	KPIs             []models.KPIDefinition
}

func NewContext(snap Snapshot, scorer Scorer) *Context {
	if scorer == nil {
		scorer = NameScorer{}
	}
	c := &Context{
		Profile:       snap.Profile,
		Roster:        snap.Roster,
		Scorer:        scorer,
		aliasByName:   make(map[string]models.Alias, len(snap.Aliases)),
		relByOwnerCol: make(map[string]models.RelativeMapping, len(snap.RelativeMappings)),
		absByCol:      make(map[int]models.AbsoluteMapping, len(snap.AbsoluteMappings)),
		templateByCol: make(map[int]models.ColumnTemplate, len(snap.Templates)),
		kpiByID:       make(map[string]models.KPIDefinition, len(snap.KPIs)),
		kpisByName:    make(map[string][]models.KPIDefinition),
	}
	for _, a := range snap.Aliases {
		c.aliasByName[NormalizeName(a.AliasName)] = a
	}
	for _, m := range snap.RelativeMappings {
		c.relByOwnerCol[ownerColKey(m.OwnerUserID, m.ColumnIndex)] = m
	}
	for _, m := range snap.AbsoluteMappings {
		c.absByCol[m.ColumnIndex] = m
	}
	for _, t := range snap.Templates {
		c.templateByCol[t.ColumnIndex] = t
	}
	for _, k := range snap.KPIs {
		c.kpiByID[k.ID] = k
		key := NormalizeName(k.Name)
		c.kpisByName[key] = append(c.kpisByName[key], k)
	}
	return c
}

func ownerColKey(ownerUserID string, col int) string {
	return fmt.Sprintf("%s|%d", ownerUserID, col)
}

func (c *Context) AliasFor(displayName string) (models.Alias, bool) {
	a, ok := c.aliasByName[NormalizeName(displayName)]
	return a, ok
}

func (c *Context) KPI(id string) (models.KPIDefinition, bool) {
	k, ok := c.kpiByID[id]
	return k, ok
}

func (c *Context) Template(col int) (models.ColumnTemplate, bool) {
	t, ok := c.templateByCol[col]
	return t, ok
}

// KPIByNameForOwner resolves a KPI name scoped to one owner, falling back
// to a department-level (unassigned) KPI of the same name. payType narrows
// same-named KPIs split by pay type; empty matches any.
func (c *Context) KPIByNameForOwner(name, ownerUserID, payType string) (models.KPIDefinition, bool) {
	candidates := c.kpisByName[NormalizeName(name)]
	var dept *models.KPIDefinition
	for i := range candidates {
		k := candidates[i]
		if payType != "" && k.PayType != "" && k.PayType != payType {
			continue
		}
		if k.AssignedTo != nil && ownerUserID != "" && *k.AssignedTo == ownerUserID {
			return k, true
		}
		if k.AssignedTo == nil && dept == nil {
			dept = &candidates[i]
		}
	}
	if dept != nil {
		return *dept, true
	}
	return models.KPIDefinition{}, false
}
