package models

import "time"

type MetricType string

const (
	MetricDollar     MetricType = "dollar"
	MetricPercentage MetricType = "percentage"
	MetricUnit       MetricType = "unit"
)

type TargetDirection string

const (
	DirectionAbove TargetDirection = "above"
	DirectionBelow TargetDirection = "below"
)

type RosterUser struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"store_id"`
	DisplayName string    `json:"display_name"`
	Department  string    `json:"department"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Alias is a confirmed historical mapping from a report-supplied name to a
// user. Exact alias hits are authoritative and bypass fuzzy matching.
type Alias struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	AliasName string    `json:"alias_name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type KPIDefinition struct {
	ID              string          `json:"id"`
	StoreID         string          `json:"store_id"`
	Name            string          `json:"name"`
	MetricType      MetricType      `json:"metric_type"`
	TargetDirection TargetDirection `json:"target_direction"`
	Target          float64         `json:"target"`
	// AssignedTo is nil for department-level KPIs.
	AssignedTo *string `json:"assigned_to,omitempty"`
	// PayType splits same-named KPIs: customer, warranty, internal, total.
	PayType string `json:"pay_type,omitempty"`
}

// AbsoluteMapping binds a column to a KPI name for the whole profile,
// independent of which entity owns the row.
type AbsoluteMapping struct {
	ID            string `json:"id"`
	ProfileID     string `json:"profile_id"`
	ColumnIndex   int    `json:"column_index"`
	KPIName       string `json:"kpi_name"`
	PayTypeFilter string `json:"pay_type_filter,omitempty"`
	PerUser       bool   `json:"per_user"`
}

// RelativeMapping binds (owner, column) to a KPI. No row index is stored:
// rosters churn between periods and shift rows, so the binding must survive
// the owner appearing at a different row in the next report.
type RelativeMapping struct {
	ID          string `json:"id"`
	ProfileID   string `json:"profile_id"`
	OwnerUserID string `json:"owner_user_id"`
	ColumnIndex int    `json:"column_index"`
	KPIID       string `json:"kpi_id"`
	KPIName     string `json:"kpi_name"`
}

// ColumnTemplate is profile-wide memory of which KPI a column historically
// held, used to pre-populate relative mappings for newly linked owners.
type ColumnTemplate struct {
	ID          string `json:"id"`
	ProfileID   string `json:"profile_id"`
	ColumnIndex int    `json:"column_index"`
	KPIName     string `json:"kpi_name"`
}

type ImportProfile struct {
	ID         string `json:"id"`
	StoreID    string `json:"store_id"`
	Name       string `json:"name"`
	ReportType string `json:"report_type"`
}

const (
	EntryTypeImported = "imported"
	EntryTypeDerived  = "derived"
	EntryTypeManual   = "manual"
)

// ScorecardEntry is keyed by (kpi_id, period, entry_type); commits upsert on
// that key so re-importing the same period supersedes rather than duplicates.
type ScorecardEntry struct {
	ID        string    `json:"id"`
	KPIID     string    `json:"kpi_id"`
	Period    string    `json:"period"`
	EntryType string    `json:"entry_type"`
	Value     float64   `json:"value"`
	Variance  float64   `json:"variance"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ImportLog struct {
	ID             string    `json:"id"`
	StoreID        string    `json:"store_id"`
	ProfileID      string    `json:"profile_id"`
	FileName       string    `json:"file_name"`
	FileHash       string    `json:"file_hash"`
	Period         string    `json:"period"`
	MatchedCount   int       `json:"matched_count"`
	UnmatchedCount int       `json:"unmatched_count"`
	EntryCount     int       `json:"entry_count"`
	UnmatchedNames []string  `json:"unmatched_names"`
	Outcomes       []byte    `json:"outcomes"`
	Errors         []string  `json:"errors"`
	CreatedAt      time.Time `json:"created_at"`
}
