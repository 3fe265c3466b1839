// Package dataset extracts the derived sources each view consumes from one
// ingestion run's merged rows. Every column is looked up by header name
// through the run's schema.Map; positional indices never appear in a view
// binding.
//
// Extraction fails eagerly with schema.MissingColumnError when a bound column
// is absent. Rows that are too short or whose numeric cells do not parse are
// skipped and counted, never an error.
package dataset

import (
	"math"
	"strconv"
	"strings"

	"waferstats/internal/config"
	"waferstats/internal/schema"
	"waferstats/internal/stats"
)

// Table is the read-only view of one run's rows.
type Table struct {
	schema *schema.Map
	rows   [][]string
}

// New wraps rows (header excluded) resolved through m.
func New(m *schema.Map, rows [][]string) *Table {
	return &Table{schema: m, rows: rows}
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Result is one extracted source. Scanned counts the rows looked at (after
// the view's limit) and Skipped those that produced no item.
type Result[T any] struct {
	Items   []T
	Scanned int
	Skipped int
}

// Cell is one wafer-map die.
type Cell struct {
	X     float64
	Y     float64
	Value float64
}

// Histogram extracts the flat sample set of v.Value.
func (t *Table) Histogram(v config.HistogramView) (Result[float64], error) {
	return extract(t, v.Limit, []string{v.Value}, func(row []string, idx []int) (float64, bool) {
		return number(row, idx[0])
	})
}

// Scatter extracts (x, y, group) points. The group column is optional.
func (t *Table) Scatter(v config.ScatterView) (Result[stats.Point], error) {
	return extract(t, v.Limit, []string{v.X, v.Y, v.Group}, func(row []string, idx []int) (stats.Point, bool) {
		x, okX := number(row, idx[0])
		y, okY := number(row, idx[1])
		if !okX || !okY {
			return stats.Point{}, false
		}
		g, _ := text(row, idx[2])
		return stats.Point{X: x, Y: y, Group: g}, true
	})
}

// WaferMap extracts (x, y, value) die cells.
func (t *Table) WaferMap(v config.WaferMapView) (Result[Cell], error) {
	return extract(t, v.Limit, []string{v.X, v.Y, v.Value}, func(row []string, idx []int) (Cell, bool) {
		x, okX := number(row, idx[0])
		y, okY := number(row, idx[1])
		val, okV := number(row, idx[2])
		if !okX || !okY || !okV {
			return Cell{}, false
		}
		return Cell{X: x, Y: y, Value: val}, true
	})
}

// Trend extracts (group, value) pairs in file order. X is the 1-based
// position of the point in the extracted series.
func (t *Table) Trend(v config.TrendView) (Result[stats.Point], error) {
	res, err := extract(t, v.Limit, []string{v.Group, v.Value}, func(row []string, idx []int) (stats.Point, bool) {
		g, okG := text(row, idx[0])
		y, okY := number(row, idx[1])
		if !okG || !okY {
			return stats.Point{}, false
		}
		return stats.Point{Y: y, Group: g}, true
	})
	for i := range res.Items {
		res.Items[i].X = float64(i + 1)
	}
	return res, err
}

// BoxPlot extracts (category, value, label) samples. The label column is
// optional.
func (t *Table) BoxPlot(v config.BoxPlotView) (Result[stats.Sample], error) {
	return extract(t, v.Limit, []string{v.Category, v.Value, v.Label}, func(row []string, idx []int) (stats.Sample, bool) {
		c, okC := text(row, idx[0])
		val, okV := number(row, idx[1])
		if !okC || !okV {
			return stats.Sample{}, false
		}
		l, _ := text(row, idx[2])
		return stats.Sample{Category: c, Value: val, Label: l}, true
	})
}

// extract resolves cols, then runs fn over the first limit rows (all rows
// when limit is 0). An empty column name resolves to -1.
func extract[T any](t *Table, limit int, cols []string, fn func(row []string, idx []int) (T, bool)) (Result[T], error) {
	var res Result[T]
	if err := t.schema.Require(cols...); err != nil {
		return res, err
	}
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = -1
		if strings.TrimSpace(c) != "" {
			idx[i], _ = t.schema.Index(c)
		}
	}

	rows := t.rows
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	res.Scanned = len(rows)
	res.Items = make([]T, 0, len(rows))
	for _, row := range rows {
		item, ok := fn(row, idx)
		if !ok {
			res.Skipped++
			continue
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

// number parses the cell at i as a finite float. Surrounding white space is
// ignored; anything else that is not a complete number is rejected.
func number(row []string, i int) (float64, bool) {
	s, ok := text(row, i)
	if !ok || s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// text returns the trimmed cell at i. It reports false when the row has no
// such cell.
func text(row []string, i int) (string, bool) {
	if i < 0 || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}
