// Package export writes the derived tables of an analysis Report to an xlsx
// workbook: a summary sheet plus one sheet each for histogram bins,
// box-plot summaries and candlestick summaries.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"waferstats/internal/analysis"
	"waferstats/internal/stats"
)

// Sheet names.
const (
	SheetSummary     = "Summary"
	SheetHistogram   = "Histogram"
	SheetBoxPlot     = "BoxPlot"
	SheetCandlestick = "Candlestick"
)

var (
	histogramHeader = []any{"Start", "End", "Count"}
	groupHeader     = []any{"Category", "Count", "Min", "Q1", "Median", "Q3", "Max"}
)

// WriteWorkbook renders rep as xlsx into w. Sheets for views that did not
// run are left out.
func WriteWorkbook(w io.Writer, rep *analysis.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("export: rename default sheet: %w", err)
	}
	if err := writeSummary(f, rep); err != nil {
		return err
	}

	if h := rep.Histogram; h != nil {
		rows := make([][]any, len(h.Bins))
		for i, b := range h.Bins {
			rows[i] = []any{b.Start, b.End, b.Count}
		}
		if err := writeSheet(f, SheetHistogram, histogramHeader, rows); err != nil {
			return err
		}
	}
	if g := rep.BoxPlot; g != nil {
		if err := writeSheet(f, SheetBoxPlot, groupHeader, groupRows(g.Box)); err != nil {
			return err
		}
		if err := writeSheet(f, SheetCandlestick, groupHeader, groupRows(g.Candles)); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, rep *analysis.Report) error {
	rows := [][]any{
		{"Run", rep.RunID},
		{"Source", rep.Source},
		{"Rows", rep.Rows},
		{"Digest", fmt.Sprintf("%016x", rep.Digest)},
		{"Elapsed (ms)", float64(rep.Elapsed.Microseconds()) / 1000},
		{},
		{"View", "Items", "Skipped", "Execution Time (ms)", "Warning"},
	}
	for _, t := range rep.Timings {
		row := []any{t.View, t.Items, t.Skipped, float64(t.Elapsed.Microseconds()) / 1000}
		if t.Err != nil {
			row = append(row, t.Err.Error())
		}
		rows = append(rows, row)
	}
	return setRows(f, SheetSummary, 1, rows)
}

func writeSheet(f *excelize.File, name string, header []any, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("export: create sheet %s: %w", name, err)
	}
	if err := setRows(f, name, 1, [][]any{header}); err != nil {
		return err
	}
	return setRows(f, name, 2, rows)
}

// setRows writes rows starting at 1-based row number first.
func setRows(f *excelize.File, sheet string, first int, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, first+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: %s row %d: %w", sheet, first+i, err)
		}
	}
	return nil
}

func groupRows(groups []stats.Group) [][]any {
	rows := make([][]any, len(groups))
	for i, g := range groups {
		s := g.Summary
		rows[i] = []any{g.Category, g.Count, s.Min, s.Q1, s.Median, s.Q3, s.Max}
	}
	return rows
}
