package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealerscore/backend/internal/importer"
	"github.com/dealerscore/backend/internal/models"
)

// CommitResult reports what an ApplyPlan call actually wrote. Failures are
// per-record: one bad row never aborts the unrelated rest, and every
// failure surfaces in the import log.
type CommitResult struct {
	AliasesWritten int      `json:"aliases_written"`
	EntriesWritten int      `json:"entries_written"`
	Errors         []string `json:"errors"`
}

// ApplyPlan writes an import commit plan. Each record gets its own short
// transaction; the natural keys make retries safe. The log row
// is written last and carries the record errors collected along the way.
func (s *Store) ApplyPlan(ctx context.Context, plan importer.CommitPlan) (CommitResult, error) {
	var res CommitResult

	for _, a := range plan.Aliases {
		err := s.WithTx(ctx, func(tx pgx.Tx) error {
			return s.UpsertAlias(ctx, tx, a)
		})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("alias %q: %v", a.AliasName, err))
			continue
		}
		res.AliasesWritten++
	}

	for _, e := range plan.Entries {
		err := s.WithTx(ctx, func(tx pgx.Tx) error {
			return s.UpsertEntry(ctx, tx, e)
		})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("entry kpi=%s period=%s: %v", e.KPIID, e.Period, err))
			continue
		}
		res.EntriesWritten++
	}

	log := plan.Log
	log.Errors = res.Errors
	if err := s.InsertImportLog(ctx, log); err != nil {
		return res, fmt.Errorf("write import log: %w", err)
	}
	return res, nil
}

// ApplyTemplatesForOwner pre-populates relative mappings for a newly
// linked owner from the profile's column templates. Best-effort secondary
// operation: a failure partway is reported but never rolls back the commit
// that preceded it. Columns the owner already mapped, and template KPI
// names the owner has no KPI for, are skipped.
func (s *Store) ApplyTemplatesForOwner(ctx context.Context, profileID, storeID, ownerUserID string) (int, []string) {
	templates, err := s.ListTemplates(ctx, profileID)
	if err != nil {
		return 0, []string{fmt.Sprintf("list templates: %v", err)}
	}
	existing, err := s.ListRelativeMappings(ctx, profileID)
	if err != nil {
		return 0, []string{fmt.Sprintf("list relative mappings: %v", err)}
	}
	mapped := map[int]bool{}
	for _, m := range existing {
		if m.OwnerUserID == ownerUserID {
			mapped[m.ColumnIndex] = true
		}
	}

	applied := 0
	var errs []string
	for _, t := range templates {
		if mapped[t.ColumnIndex] {
			continue
		}
		var kpiID string
		err := s.Pool.QueryRow(ctx,
			`SELECT id FROM kpis WHERE store_id = $1 AND assigned_to = $2 AND lower(name) = lower($3) LIMIT 1`,
			storeID, ownerUserID, t.KPIName,
		).Scan(&kpiID)
		if err != nil {
			if err == pgx.ErrNoRows {
				continue
			}
			errs = append(errs, fmt.Sprintf("template col %d: %v", t.ColumnIndex, err))
			continue
		}
		m := models.RelativeMapping{
			ID:          uuid.NewString(),
			ProfileID:   profileID,
			OwnerUserID: ownerUserID,
			ColumnIndex: t.ColumnIndex,
			KPIID:       kpiID,
			KPIName:     t.KPIName,
		}
		if err := s.UpsertRelativeMapping(ctx, m); err != nil {
			errs = append(errs, fmt.Sprintf("template col %d: %v", t.ColumnIndex, err))
			continue
		}
		applied++
	}
	return applied, errs
}

// LoadSnapshot fetches the frozen state one reconciliation pass runs
// against. Fetched once at invocation start; later changes are invisible
// to the pass.
func (s *Store) LoadSnapshot(ctx context.Context, profileID string) (importer.Snapshot, error) {
	profile, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return importer.Snapshot{}, fmt.Errorf("load profile: %w", err)
	}
	roster, err := s.ListUsers(ctx, profile.StoreID, "")
	if err != nil {
		return importer.Snapshot{}, fmt.Errorf("load roster: %w", err)
	}
	aliases, err := s.ListAliases(ctx, profile.StoreID)
	if err != nil {
		return importer.Snapshot{}, fmt.Errorf("load aliases: %w", err)
	}
	abs, err := s.ListAbsoluteMappings(ctx, profileID)
	if err != nil {
		return importer.Snapshot{}, fmt.Errorf("load absolute mappings: %w", err)
	}
	rel, err := s.ListRelativeMappings(ctx, profileID)
	if err != nil {
		return importer.Snapshot{}, fmt.Errorf("load relative mappings: %w", err)
	}
	templates, err := s.ListTemplates(ctx, profileID)
	if err != nil {
		return importer.Snapshot{}, fmt.Errorf("load templates: %w", err)
	}
	kpis, err := s.ListKPIs(ctx, profile.StoreID, "")
	if err != nil {
		return importer.Snapshot{}, fmt.Errorf("load kpis: %w", err)
	}

	return importer.Snapshot{
		Profile:          profile,
		Roster:           roster,
		Aliases:          aliases,
		AbsoluteMappings: abs,
		RelativeMappings: rel,
		Templates:        templates,
		KPIs:             kpis,
	}, nil
}
