package importer

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dealerscore/backend/internal/grid"
)

var ErrHeaderNotFound = errors.New("header row not found")

const (
	ReportTypeAdvisor    = "advisor"
	ReportTypeTechnician = "technician"
)

// headerFragments are the lower-cased header texts a productivity report
// column row is expected to contain. A row qualifies as the header when at
// least two fragments appear as substrings of its cells.
var headerFragments = []string{
	"pay type",
	"#so",
	"sold hrs",
	"lab sold",
	"e.l.r.",
	"parts sold",
	"hrs per ro",
	"labor sold",
}

const headerMatchThreshold = 2

var (
	advisorMarkerRe = regexp.MustCompile(`^Advisor\s+(\d+)\s*[-–—]\s*(\S.*)$`)
	totalsRe        = regexp.MustCompile(`(?i)^\s*(all repair orders|grand total|total)\s*$`)
	hasLetterRe     = regexp.MustCompile(`[A-Za-z]`)
)

// EntityRow is one detected advisor/technician marker row. EntityID is
// minted per classification and is the identity used downstream; row
// indices are kept only to slice data rows out of the grid.
type EntityRow struct {
	EntityID    string `json:"entity_id"`
	RowIndex    int    `json:"row_index"`
	Marker      string `json:"marker"`
	DisplayName string `json:"display_name"`
	IsTotals    bool   `json:"is_totals"`
	// DataRows are the grid row indices between this marker and the next.
	DataRows []int `json:"data_rows"`
}

type Classification struct {
	HeaderRow    int         `json:"header_row"`
	Header       []string    `json:"header"`
	MetadataRows []int       `json:"metadata_rows"`
	Entities     []EntityRow `json:"entities"`
	// DepartmentRows are data rows appearing before the first entity
	// marker; their values belong to the department, not a person.
	DepartmentRows []int `json:"department_rows"`
}

// Classify locates the header row and segments the rows below it into
// entity-owned and department-level data rows. Scanning is top-down and the
// first qualifying header row wins, so repeated runs on the same grid are
// identical.
func Classify(g grid.Grid, reportType string) (Classification, error) {
	cls := Classification{HeaderRow: -1}

	for i, row := range g {
		if len(row) < 3 {
			continue
		}
		if countHeaderFragments(row) >= headerMatchThreshold {
			cls.HeaderRow = i
			for _, c := range row {
				cls.Header = append(cls.Header, c.Text)
			}
			break
		}
	}
	if cls.HeaderRow < 0 {
		return Classification{}, ErrHeaderNotFound
	}
	for i := 0; i < cls.HeaderRow; i++ {
		cls.MetadataRows = append(cls.MetadataRows, i)
	}

	for i := cls.HeaderRow + 1; i < len(g); i++ {
		row := g[i]
		if isEmptyRow(row) {
			continue
		}
		if name, ok := entityMarker(row, reportType); ok {
			cls.Entities = append(cls.Entities, EntityRow{
				EntityID:    uuid.NewString(),
				RowIndex:    i,
				Marker:      row[0].Text,
				DisplayName: name,
				IsTotals:    totalsRe.MatchString(name),
			})
			continue
		}
		if len(cls.Entities) == 0 {
			cls.DepartmentRows = append(cls.DepartmentRows, i)
			continue
		}
		last := &cls.Entities[len(cls.Entities)-1]
		last.DataRows = append(last.DataRows, i)
	}

	return cls, nil
}

func countHeaderFragments(row []grid.Cell) int {
	count := 0
	for _, frag := range headerFragments {
		for _, c := range row {
			if strings.Contains(strings.ToLower(strings.TrimSpace(c.Text)), frag) {
				count++
				break
			}
		}
	}
	return count
}

func entityMarker(row []grid.Cell, reportType string) (string, bool) {
	if len(row) == 0 {
		return "", false
	}
	first := strings.TrimSpace(row[0].Text)
	if first == "" {
		return "", false
	}

	if m := advisorMarkerRe.FindStringSubmatch(first); m != nil {
		return strings.TrimSpace(m[2]), true
	}
	// A totals label with data cells is a sub-row inside the current
	// segment, not a new section; only a bare label row starts one.
	if totalsRe.MatchString(first) && restEmpty(row) {
		return first, true
	}
	if reportType == ReportTypeTechnician {
		// Technician reports carry a bare name in the first cell with the
		// rest of the marker row empty.
		if !hasLetterRe.MatchString(first) || row[0].IsNum {
			return "", false
		}
		if restEmpty(row) {
			return first, true
		}
	}
	return "", false
}

func restEmpty(row []grid.Cell) bool {
	for _, c := range row[1:] {
		if strings.TrimSpace(c.Text) != "" {
			return false
		}
	}
	return true
}

func isEmptyRow(row []grid.Cell) bool {
	for _, c := range row {
		if strings.TrimSpace(c.Text) != "" {
			return false
		}
	}
	return true
}
