package grid

import (
	"errors"
	"strings"
)

var ErrNoSheets = errors.New("workbook has no sheets")

// Cell is one spreadsheet cell. Text always carries the raw string; Number
// is set when the text coerces to a numeric value (plain, grouped
// thousands, currency or percent formatted).
type Cell struct {
	Text   string
	Number float64
	IsNum  bool
}

// Grid is the raw 2-D cell matrix of the first sheet. Rows may be ragged;
// no integrity constraints are applied at this layer.
type Grid [][]Cell

// Cell returns the cell at (row, col), tolerating short rows.
func (g Grid) Cell(row, col int) (Cell, bool) {
	if row < 0 || row >= len(g) {
		return Cell{}, false
	}
	r := g[row]
	if col < 0 || col >= len(r) {
		return Cell{}, false
	}
	return r[col], true
}

func newCell(text string) Cell {
	c := Cell{Text: text}
	if v, ok := parseNumber(text); ok {
		c.Number = v
		c.IsNum = true
	}
	return c
}

// FromStrings builds a Grid from raw string rows. Used by the decoders and
// by tests that construct grids directly.
func FromStrings(rows [][]string) Grid {
	g := make(Grid, 0, len(rows))
	for _, row := range rows {
		cells := make([]Cell, 0, len(row))
		for _, text := range row {
			cells = append(cells, newCell(strings.TrimSpace(text)))
		}
		g = append(g, cells)
	}
	return g
}
