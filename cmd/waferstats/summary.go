package main

import (
	"fmt"

	"waferstats/internal/analysis"
	"waferstats/internal/ingest"
	"waferstats/internal/schema"
	"waferstats/internal/stats"
)

type ingestSummary struct {
	RunID     string          `json:"run_id"`
	Source    string          `json:"source"`
	Rows      int             `json:"rows"`
	Chunks    int             `json:"chunks"`
	Bytes     int             `json:"bytes"`
	Digest    string          `json:"digest"`
	ElapsedMS float64         `json:"elapsed_ms"`
	Header    []string        `json:"header"`
	Columns   []columnSummary `json:"columns"`
}

type columnSummary struct {
	Name    string `json:"name"`
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Filled  int    `json:"filled"`
	Numeric int    `json:"numeric"`
}

func newIngestSummary(run *ingest.Run, cols []schema.Column) ingestSummary {
	s := ingestSummary{
		RunID:     run.ID,
		Source:    run.Source,
		Rows:      run.Data.Len(),
		Chunks:    run.Chunks,
		Bytes:     run.Bytes,
		Digest:    fmt.Sprintf("%016x", run.Digest),
		ElapsedMS: float64(run.Elapsed.Microseconds()) / 1000,
		Header:    run.Schema.Header(),
	}
	for _, c := range cols {
		s.Columns = append(s.Columns, columnSummary{
			Name: c.Name, Index: c.Index, Kind: string(c.Kind), Filled: c.Filled, Numeric: c.Numeric,
		})
	}
	return s
}

type reportSummary struct {
	RunID     string        `json:"run_id"`
	Source    string        `json:"source"`
	Rows      int           `json:"rows"`
	ElapsedMS float64       `json:"elapsed_ms"`
	Views     []viewSummary `json:"views"`
	Histogram []binJSON     `json:"histogram,omitempty"`
	BoxPlot   []groupJSON   `json:"box_plot,omitempty"`
	Candles   []groupJSON   `json:"candlestick,omitempty"`
	CandleMin *float64      `json:"candlestick_min,omitempty"`
	Scatter   *seriesJSON   `json:"scatter,omitempty"`
	Trend     *seriesJSON   `json:"trend,omitempty"`
	WaferMap  int           `json:"wafer_map_cells,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
}

type viewSummary struct {
	View      string  `json:"view"`
	Items     int     `json:"items"`
	Skipped   int     `json:"skipped"`
	ElapsedMS float64 `json:"elapsed_ms"`
	Warning   string  `json:"warning,omitempty"`
}

type binJSON struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int     `json:"count"`
}

type groupJSON struct {
	Category string     `json:"category"`
	Count    int        `json:"count"`
	Values   [5]float64 `json:"values"`
}

type seriesJSON struct {
	Total   int `json:"total"`
	Points  int `json:"points"`
	Batches int `json:"batches"`
}

func newReportSummary(rep *analysis.Report) reportSummary {
	s := reportSummary{
		RunID:     rep.RunID,
		Source:    rep.Source,
		Rows:      rep.Rows,
		ElapsedMS: float64(rep.Elapsed.Microseconds()) / 1000,
	}
	for _, t := range rep.Timings {
		v := viewSummary{View: t.View, Items: t.Items, Skipped: t.Skipped, ElapsedMS: float64(t.Elapsed.Microseconds()) / 1000}
		if t.Err != nil {
			v.Warning = t.Err.Error()
		}
		s.Views = append(s.Views, v)
	}
	if h := rep.Histogram; h != nil {
		for _, b := range h.Bins {
			s.Histogram = append(s.Histogram, binJSON{Start: b.Start, End: b.End, Count: b.Count})
		}
	}
	if g := rep.BoxPlot; g != nil {
		s.BoxPlot = groupsJSON(g.Box)
		s.Candles = groupsJSON(g.Candles)
		if g.HasRange {
			lo := g.CandleMin
			s.CandleMin = &lo
		}
	}
	s.Scatter = seriesSummary(rep.Scatter)
	s.Trend = seriesSummary(rep.Trend)
	if rep.WaferMap != nil {
		s.WaferMap = len(rep.WaferMap.Cells)
	}
	for _, w := range rep.Warnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
	return s
}

func groupsJSON(groups []stats.Group) []groupJSON {
	out := make([]groupJSON, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupJSON{Category: g.Category, Count: g.Count, Values: g.Summary.Values()})
	}
	return out
}

func seriesSummary(r *analysis.SeriesResult) *seriesJSON {
	if r == nil {
		return nil
	}
	return &seriesJSON{Total: r.Total, Points: len(r.Points), Batches: len(r.Batches)}
}
