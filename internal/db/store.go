package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerscore/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetProfile(ctx context.Context, profileID string) (models.ImportProfile, error) {
	var p models.ImportProfile
	err := s.Pool.QueryRow(ctx,
		`SELECT id, store_id, name, report_type FROM import_profiles WHERE id = $1`,
		profileID,
	).Scan(&p.ID, &p.StoreID, &p.Name, &p.ReportType)
	return p, err
}

func (s *Store) ListUsers(ctx context.Context, storeID, department string) ([]models.RosterUser, error) {
	query := `SELECT id, store_id, display_name, department, updated_at FROM users`
	var args []any
	var wheres []string
	if storeID != "" {
		args = append(args, storeID)
		wheres = append(wheres, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if department != "" {
		args = append(args, department)
		wheres = append(wheres, fmt.Sprintf("department = $%d", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY display_name ASC, id ASC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RosterUser
	for rows.Next() {
		var u models.RosterUser
		if err := rows.Scan(&u.ID, &u.StoreID, &u.DisplayName, &u.Department, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) ListAliases(ctx context.Context, storeID string) ([]models.Alias, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, store_id, alias_name, user_id, created_at FROM aliases WHERE store_id = $1 ORDER BY alias_name ASC`,
		storeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Alias
	for rows.Next() {
		var a models.Alias
		if err := rows.Scan(&a.ID, &a.StoreID, &a.AliasName, &a.UserID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListKPIs(ctx context.Context, storeID, userID string) ([]models.KPIDefinition, error) {
	query := `SELECT id, store_id, name, metric_type, target_direction, target, assigned_to, pay_type FROM kpis WHERE store_id = $1`
	args := []any{storeID}
	if userID != "" {
		args = append(args, userID)
		query += fmt.Sprintf(" AND assigned_to = $%d", len(args))
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.KPIDefinition
	for rows.Next() {
		var k models.KPIDefinition
		var payType *string
		if err := rows.Scan(&k.ID, &k.StoreID, &k.Name, &k.MetricType, &k.TargetDirection, &k.Target, &k.AssignedTo, &payType); err != nil {
			return nil, err
		}
		if payType != nil {
			k.PayType = *payType
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) GetKPI(ctx context.Context, id string) (models.KPIDefinition, error) {
	var k models.KPIDefinition
	var payType *string
	err := s.Pool.QueryRow(ctx,
		`SELECT id, store_id, name, metric_type, target_direction, target, assigned_to, pay_type FROM kpis WHERE id = $1`,
		id,
	).Scan(&k.ID, &k.StoreID, &k.Name, &k.MetricType, &k.TargetDirection, &k.Target, &k.AssignedTo, &payType)
	if payType != nil {
		k.PayType = *payType
	}
	return k, err
}

func (s *Store) ListAbsoluteMappings(ctx context.Context, profileID string) ([]models.AbsoluteMapping, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, profile_id, column_index, kpi_name, pay_type_filter, per_user FROM absolute_mappings WHERE profile_id = $1 ORDER BY column_index ASC`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AbsoluteMapping
	for rows.Next() {
		var m models.AbsoluteMapping
		var filter *string
		if err := rows.Scan(&m.ID, &m.ProfileID, &m.ColumnIndex, &m.KPIName, &filter, &m.PerUser); err != nil {
			return nil, err
		}
		if filter != nil {
			m.PayTypeFilter = *filter
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListRelativeMappings(ctx context.Context, profileID string) ([]models.RelativeMapping, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, profile_id, owner_user_id, column_index, kpi_id, kpi_name FROM relative_mappings WHERE profile_id = $1 ORDER BY owner_user_id ASC, column_index ASC`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RelativeMapping
	for rows.Next() {
		var m models.RelativeMapping
		if err := rows.Scan(&m.ID, &m.ProfileID, &m.OwnerUserID, &m.ColumnIndex, &m.KPIID, &m.KPIName); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListTemplates(ctx context.Context, profileID string) ([]models.ColumnTemplate, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, profile_id, column_index, kpi_name FROM column_templates WHERE profile_id = $1 ORDER BY column_index ASC`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ColumnTemplate
	for rows.Next() {
		var t models.ColumnTemplate
		if err := rows.Scan(&t.ID, &t.ProfileID, &t.ColumnIndex, &t.KPIName); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertAlias keys on (store_id, lower(alias_name)); a re-confirmed name
// re-points the existing alias instead of duplicating it.
func (s *Store) UpsertAlias(ctx context.Context, tx pgx.Tx, a models.Alias) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO aliases (id, store_id, alias_name, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (store_id, lower(alias_name)) DO UPDATE SET
			user_id = EXCLUDED.user_id
	`, a.ID, a.StoreID, a.AliasName, a.UserID, a.CreatedAt)
	return err
}

// UpsertEntry keys on (kpi_id, period, entry_type): re-importing a period
// supersedes the previous pass, never duplicates it.
func (s *Store) UpsertEntry(ctx context.Context, tx pgx.Tx, e models.ScorecardEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO entries (id, kpi_id, period, entry_type, value, variance, status, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (kpi_id, period, entry_type) DO UPDATE SET
			value = EXCLUDED.value,
			variance = EXCLUDED.variance,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, e.ID, e.KPIID, e.Period, e.EntryType, e.Value, e.Variance, e.Status, e.UpdatedAt)
	return err
}

// UpsertRelativeMapping keys on (profile_id, owner_user_id, column_index),
// the natural key that keeps at most one relative mapping per owner column.
func (s *Store) UpsertRelativeMapping(ctx context.Context, m models.RelativeMapping) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO relative_mappings (id, profile_id, owner_user_id, column_index, kpi_id, kpi_name)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (profile_id, owner_user_id, column_index) DO UPDATE SET
			kpi_id = EXCLUDED.kpi_id,
			kpi_name = EXCLUDED.kpi_name
	`, m.ID, m.ProfileID, m.OwnerUserID, m.ColumnIndex, m.KPIID, m.KPIName)
	return err
}

func (s *Store) UpsertTemplate(ctx context.Context, t models.ColumnTemplate) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO column_templates (id, profile_id, column_index, kpi_name)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (profile_id, column_index) DO UPDATE SET
			kpi_name = EXCLUDED.kpi_name
	`, t.ID, t.ProfileID, t.ColumnIndex, t.KPIName)
	return err
}

func (s *Store) InsertImportLog(ctx context.Context, l models.ImportLog) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO import_logs (id, store_id, profile_id, file_name, file_hash, period, matched_count, unmatched_count, entry_count, unmatched_names, outcomes, errors, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, l.ID, l.StoreID, l.ProfileID, l.FileName, l.FileHash, l.Period, l.MatchedCount, l.UnmatchedCount, l.EntryCount, l.UnmatchedNames, l.Outcomes, l.Errors, l.CreatedAt)
	return err
}

func (s *Store) GetLatestImportLog(ctx context.Context, storeID string) (models.ImportLog, error) {
	var l models.ImportLog
	err := s.Pool.QueryRow(ctx, `
		SELECT id, store_id, profile_id, file_name, file_hash, period, matched_count, unmatched_count, entry_count, unmatched_names, outcomes, errors, created_at
		FROM import_logs WHERE store_id = $1 ORDER BY created_at DESC LIMIT 1
	`, storeID).Scan(&l.ID, &l.StoreID, &l.ProfileID, &l.FileName, &l.FileHash, &l.Period, &l.MatchedCount, &l.UnmatchedCount, &l.EntryCount, &l.UnmatchedNames, &l.Outcomes, &l.Errors, &l.CreatedAt)
	return l, err
}
