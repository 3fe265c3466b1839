package schema

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred content type of a column.
type Kind string

const (
	KindEmpty   Kind = "empty"
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
	KindMixed   Kind = "mixed"
)

// Column describes one header column as observed in a sample of rows.
type Column struct {
	Name    string
	Index   int
	Kind    Kind
	Filled  int // non-blank cells
	Numeric int // cells that parse as finite numbers
}

// Profile samples up to limit rows (all rows when limit <= 0) and classifies
// each column. A column is numeric when every non-blank cell parses as a
// finite float, text when none do, and mixed otherwise. Rows shorter than the
// header count as blank for the missing cells.
func Profile(m *Map, rows [][]string, limit int) []Column {
	cols := make([]Column, m.Len())
	for i, name := range m.header {
		cols[i] = Column{Name: name, Index: i}
	}
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	for _, row := range rows[:limit] {
		for i := range cols {
			if i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			cols[i].Filled++
			if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
				cols[i].Numeric++
			}
		}
	}
	for i := range cols {
		c := &cols[i]
		switch {
		case c.Filled == 0:
			c.Kind = KindEmpty
		case c.Numeric == c.Filled:
			c.Kind = KindNumeric
		case c.Numeric == 0:
			c.Kind = KindText
		default:
			c.Kind = KindMixed
		}
	}
	return cols
}
