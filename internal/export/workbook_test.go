package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"waferstats/internal/analysis"
	"waferstats/internal/stats"
)

func report() *analysis.Report {
	return &analysis.Report{
		RunID:  "3f0c",
		Source: "lot42.csv",
		Rows:   12,
		Histogram: &analysis.HistogramResult{
			Samples: 12,
			Bins: []stats.Bin{
				{Start: 0, End: 2.5, Count: 5},
				{Start: 2.5, End: 5, Count: 7},
			},
		},
		BoxPlot: &analysis.GroupResult{
			Box: []stats.Group{
				{Category: "W1", Count: 5, Summary: stats.Summary{Min: 10, Q1: 20, Median: 30, Q3: 40, Max: 50}},
				{Category: "W2", Count: 2, Summary: stats.Summary{Min: 1, Q1: 1, Median: 1, Q3: 1, Max: 2}},
			},
			Candles: []stats.Group{
				{Category: "W1", Count: 5, Summary: stats.Summary{Min: 10, Q1: 20, Median: 30, Q3: 40, Max: 50}},
			},
		},
		Timings: []analysis.Timing{
			{View: "histogram", Items: 12, Elapsed: 1500 * time.Microsecond},
			{View: "wafer_map", Err: errors.New(`wafer_map: missing column "Z"`)},
		},
	}
}

func open(t *testing.T, rep *analysis.Report) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, rep))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteWorkbook_Sheets(t *testing.T) {
	f := open(t, report())
	assert.Equal(t, []string{SheetSummary, SheetHistogram, SheetBoxPlot, SheetCandlestick}, f.GetSheetList())
}

func TestWriteWorkbook_BoxPlotRows(t *testing.T) {
	f := open(t, report())

	rows, err := f.GetRows(SheetBoxPlot)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Category", "Count", "Min", "Q1", "Median", "Q3", "Max"}, rows[0])
	assert.Equal(t, []string{"W1", "5", "10", "20", "30", "40", "50"}, rows[1])
	assert.Equal(t, []string{"W2", "2", "1", "1", "1", "1", "2"}, rows[2])

	rows, err = f.GetRows(SheetCandlestick)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWriteWorkbook_Histogram(t *testing.T) {
	f := open(t, report())

	rows, err := f.GetRows(SheetHistogram)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Start", "End", "Count"},
		{"0", "2.5", "5"},
		{"2.5", "5", "7"},
	}, rows)
}

func TestWriteWorkbook_Summary(t *testing.T) {
	f := open(t, report())

	v, err := f.GetCellValue(SheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "lot42.csv", v)

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, rows, 9)
	assert.Equal(t, "View", rows[6][0])
	assert.Equal(t, []string{"histogram", "12", "0", "1.5"}, rows[7])
	assert.Equal(t, `wafer_map: missing column "Z"`, rows[8][4])
}

func TestWriteWorkbook_OnlySummaryWhenNoViews(t *testing.T) {
	f := open(t, &analysis.Report{RunID: "x"})
	assert.Equal(t, []string{SheetSummary}, f.GetSheetList())
}
