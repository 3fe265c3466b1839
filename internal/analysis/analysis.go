// Package analysis runs every configured view over one committed ingestion
// run and collects the derived sources, their aggregates, per-view timing and
// warnings into a Report.
//
// A view that cannot be built (missing column) or has nothing to aggregate
// is recorded as a warning. It never stops the other views.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"waferstats/internal/config"
	"waferstats/internal/dataset"
	"waferstats/internal/ingest"
	"waferstats/internal/logging"
	"waferstats/internal/metrics"
	"waferstats/internal/schema"
	"waferstats/internal/stats"
	"waferstats/internal/telemetry"
)

// View names used in reports, spans and metrics.
const (
	ViewHistogram   = "histogram"
	ViewScatter     = "scatter"
	ViewWaferMap    = "wafer_map"
	ViewTrend       = "trend"
	ViewBoxPlot     = "box_plot"
	ViewCandlestick = "candlestick"
)

// profileRows bounds how many rows are sampled for column kind inference.
const profileRows = 1000

// Report is the outcome of analyzing one run.
type Report struct {
	RunID      string
	Source     string
	Generation uint64
	Digest     uint64
	Rows       int
	Columns    []schema.Column

	Histogram *HistogramResult
	Scatter   *SeriesResult
	WaferMap  *WaferMapResult
	Trend     *SeriesResult
	BoxPlot   *GroupResult

	Timings  []Timing
	Warnings []error
	Elapsed  time.Duration
}

// Timing records how one view went.
type Timing struct {
	View    string
	Elapsed time.Duration
	Items   int
	Skipped int
	Err     error
}

// HistogramResult holds the binned samples of the histogram view.
type HistogramResult struct {
	Samples int
	Rule    stats.BinRule
	Bins    []stats.Bin
	Polygon []stats.Point
}

// SeriesResult holds a decimated point series. Total is the length before
// decimation. Batches partitions Points for progressive delivery and is a
// single batch unless Progressive is set.
type SeriesResult struct {
	Total       int
	Points      []stats.Point
	Progressive bool
	Batches     [][]stats.Point
}

// WaferMapResult holds the die cells of the wafer-map view.
type WaferMapResult struct {
	Cells []dataset.Cell
}

// GroupResult holds the per-category summaries of the box-plot view and its
// candlestick variant.
type GroupResult struct {
	Samples int
	Box     []stats.Group
	Candles []stats.Group
	// CandleMin and CandleMax bound every candlestick summary value when
	// HasRange is set.
	CandleMin float64
	CandleMax float64
	HasRange  bool
}

// Options configures an Analyzer. All fields are optional.
type Options struct {
	Job    string
	Logger *slog.Logger
	Tracer trace.Tracer
}

// Analyzer builds Reports.
type Analyzer struct {
	opts Options
	log  *slog.Logger
}

// New returns an Analyzer.
func New(opts Options) *Analyzer {
	opts.Tracer = telemetry.Tracer(opts.Tracer)
	return &Analyzer{opts: opts, log: logging.OrDefault(opts.Logger)}
}

// Analyze runs the views of p over run with default options.
func Analyze(ctx context.Context, run *ingest.Run, p config.Pipeline) *Report {
	return New(Options{Job: p.Job}).Analyze(ctx, run, p)
}

// Analyze runs every enabled view of p over run. Aggregate settings are read
// from p.Aggregate; unknown rule names fall back to the defaults.
func (a *Analyzer) Analyze(ctx context.Context, run *ingest.Run, p config.Pipeline) *Report {
	start := time.Now()
	ctx = logging.WithRunID(ctx, run.ID)
	ctx, span := a.opts.Tracer.Start(ctx, "analyze", trace.WithAttributes(
		attribute.Int("rows", run.Data.Len()),
	))
	defer span.End()

	rep := &Report{
		RunID:      run.ID,
		Source:     run.Source,
		Generation: run.Generation,
		Digest:     run.Digest,
		Rows:       run.Data.Len(),
		Columns:    schema.Profile(run.Schema, run.Data.Rows, profileRows),
	}
	tbl := dataset.New(run.Schema, run.Data.Rows)
	agg := p.Aggregate
	rule, _ := stats.ParseBinRule(agg.BinRule)
	mode, _ := stats.ParseQuantileMode(agg.Quantile)

	v := p.Views
	if v.Histogram.Enabled() {
		a.view(ctx, rep, ViewHistogram, func() (int, int, error) {
			res, err := tbl.Histogram(v.Histogram)
			if err != nil {
				return 0, 0, err
			}
			bins := agg.Bins
			if bins <= 0 {
				bins = stats.BinCount(rule, len(res.Items))
			}
			h := &HistogramResult{Samples: len(res.Items), Rule: rule, Bins: stats.Histogram(res.Items, bins)}
			h.Polygon = stats.Polygon(h.Bins)
			rep.Histogram = h
			if len(h.Bins) == 0 {
				return 0, res.Skipped, stats.Warn(ViewHistogram, "no numeric values")
			}
			return len(res.Items), res.Skipped, nil
		})
	}
	if v.Scatter.Enabled() {
		a.view(ctx, rep, ViewScatter, func() (int, int, error) {
			res, err := tbl.Scatter(v.Scatter)
			if err != nil {
				return 0, 0, err
			}
			rep.Scatter = series(res.Items, agg)
			if len(res.Items) == 0 {
				return 0, res.Skipped, stats.Warn(ViewScatter, "no numeric points")
			}
			return len(res.Items), res.Skipped, nil
		})
	}
	if v.WaferMap.Enabled() {
		a.view(ctx, rep, ViewWaferMap, func() (int, int, error) {
			res, err := tbl.WaferMap(v.WaferMap)
			if err != nil {
				return 0, 0, err
			}
			rep.WaferMap = &WaferMapResult{Cells: res.Items}
			if len(res.Items) == 0 {
				return 0, res.Skipped, stats.Warn(ViewWaferMap, "no numeric cells")
			}
			return len(res.Items), res.Skipped, nil
		})
	}
	if v.Trend.Enabled() {
		a.view(ctx, rep, ViewTrend, func() (int, int, error) {
			res, err := tbl.Trend(v.Trend)
			if err != nil {
				return 0, 0, err
			}
			rep.Trend = series(res.Items, agg)
			if len(res.Items) == 0 {
				return 0, res.Skipped, stats.Warn(ViewTrend, "no numeric values")
			}
			return len(res.Items), res.Skipped, nil
		})
	}
	if v.BoxPlot.Enabled() {
		a.view(ctx, rep, ViewBoxPlot, func() (int, int, error) {
			res, err := tbl.BoxPlot(v.BoxPlot)
			if err != nil {
				return 0, 0, err
			}
			g := &GroupResult{
				Samples: len(res.Items),
				Box:     stats.BoxPlot(res.Items, mode),
				Candles: stats.Candlestick(res.Items, mode),
			}
			g.CandleMin, g.CandleMax, g.HasRange = stats.CandleRange(g.Candles)
			rep.BoxPlot = g
			if len(g.Box) == 0 {
				return 0, res.Skipped, stats.Warn(ViewBoxPlot, "no valid samples")
			}
			if len(g.Candles) == 0 {
				rep.Warnings = append(rep.Warnings, stats.Warn(ViewCandlestick,
					fmt.Sprintf("no group has at least %d values", stats.MinCandleSamples)))
			}
			return len(res.Items), res.Skipped, nil
		})
	}

	rep.Elapsed = time.Since(start)
	metrics.RecordStep(a.opts.Job, "analyze", nil, rep.Elapsed)
	a.log.InfoContext(ctx, "analysis finished",
		"views", len(rep.Timings),
		"warnings", len(rep.Warnings),
		"elapsed", rep.Elapsed,
	)
	return rep
}

// view times fn and files its outcome. fn returns the number of items
// produced, the number of rows skipped and an optional error; any error is
// a warning for this view only.
func (a *Analyzer) view(ctx context.Context, rep *Report, name string, fn func() (int, int, error)) {
	ctx, span := a.opts.Tracer.Start(ctx, "view."+name)
	defer span.End()

	start := time.Now()
	items, skipped, err := fn()
	t := Timing{View: name, Elapsed: time.Since(start), Items: items, Skipped: skipped}

	if err != nil {
		var w *stats.AggregationWarning
		if !errors.As(err, &w) {
			err = fmt.Errorf("%s: %w", name, err)
		}
		t.Err = err
		rep.Warnings = append(rep.Warnings, err)
		span.SetStatus(codes.Error, err.Error())
		a.log.WarnContext(ctx, "view degraded", "view", name, "error", err)
	}
	rep.Timings = append(rep.Timings, t)

	span.SetAttributes(attribute.Int("items", items), attribute.Int("skipped", skipped))
	metrics.RecordStep(a.opts.Job, "view."+name, err, t.Elapsed)
	metrics.RecordRows(a.opts.Job, "extracted", int64(items))
	metrics.RecordRows(a.opts.Job, "skipped", int64(skipped))
}

// series decimates points. A raw series longer than the progressive
// threshold has its decimated points partitioned into batches.
func series(points []stats.Point, agg config.AggregateConfig) *SeriesResult {
	out := stats.LTTB(points, agg.DownsampleTarget)
	res := &SeriesResult{Total: len(points), Points: out}
	if len(out) == 0 {
		return res
	}
	res.Progressive = stats.Progressive(len(points), agg.ProgressiveThreshold)
	if res.Progressive {
		res.Batches = stats.Batches(out, agg.ProgressiveBatch)
	} else {
		res.Batches = [][]stats.Point{out}
	}
	return res
}

// Missing lists every column a view of rep could not resolve.
func (r *Report) Missing() []string {
	var out []string
	for _, t := range r.Timings {
		out = append(out, schema.Missing(t.Err)...)
	}
	return out
}
