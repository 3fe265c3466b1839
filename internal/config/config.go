// Package config defines the canonical, file-serializable configuration model
// for waferstats. A single Pipeline document describes where the test-record
// text comes from, how it is parsed, which header columns feed which derived
// view, how the aggregators are tuned, and the ambient runtime knobs
// (workers, metrics, logging, tracing).
//
// Pipelines are decoded from JSON or YAML (see Load). Parser options are kept
// as a free-form Options bag with typed getters so that new knobs can be added
// without changing the struct graph.
//
// Example (trimmed):
//
//	{
//	  "job":    "wafer-leakage",
//	  "source": { "kind": "file", "file": { "path": "data/wafer.csv" } },
//	  "parser": { "kind": "csv", "options": { "trim_space": true } },
//	  "views":  {
//	    "histogram": { "value": "Leakage_Current" },
//	    "box_plot":  { "category": "WAF ID 2", "value": "PARAMETER_01", "label": "Device Name" }
//	  },
//	  "aggregate": { "bin_rule": "sturges" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Pipeline describes one ingestion-and-aggregation setup. It is the top-level
// object decoded from a pipeline file.
type Pipeline struct {
	// Job labels metrics and logs for runs of this pipeline.
	Job string `json:"job" yaml:"job" validate:"required"`

	Source    Source          `json:"source" yaml:"source"`
	Parser    Parser          `json:"parser" yaml:"parser"`
	Views     Views           `json:"views" yaml:"views"`
	Aggregate AggregateConfig `json:"aggregate" yaml:"aggregate"`
	Stream    StreamConfig    `json:"stream" yaml:"stream"`
	Runtime   RuntimeConfig   `json:"runtime" yaml:"runtime"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing"`
}

// Source identifies where the raw delimited text comes from.
type Source struct {
	// Kind selects the source implementation: "file", "http" or "inline".
	Kind string `json:"kind" yaml:"kind" validate:"required"`

	File   SourceFile   `json:"file" yaml:"file"`
	HTTP   SourceHTTP   `json:"http" yaml:"http"`
	Inline SourceInline `json:"inline" yaml:"inline"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path" yaml:"path"`
}

// SourceHTTP holds configuration for the "http" source kind. The resource is
// fetched with a single blocking GET.
type SourceHTTP struct {
	URL                string   `json:"url" yaml:"url" validate:"omitempty,url"`
	Timeout            Duration `json:"timeout" yaml:"timeout"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// SourceInline carries the text itself, used for small fixtures and for
// content handed over by a file picker.
type SourceInline struct {
	Text string `json:"text" yaml:"text"`
}

// Parser selects how chunks are turned into rows. Only "csv" exists.
type Parser struct {
	Kind string `json:"kind" yaml:"kind"`

	// Options is interpreted by the parser implementation. For CSV:
	//   trim_space (bool), lazy_quotes (bool)
	Options Options `json:"options" yaml:"options"`
}

// Views binds header names to the derived datasets handed to the renderer.
// A view whose value column is empty is disabled.
type Views struct {
	Histogram HistogramView `json:"histogram" yaml:"histogram"`
	Scatter   ScatterView   `json:"scatter" yaml:"scatter"`
	WaferMap  WaferMapView  `json:"wafer_map" yaml:"wafer_map"`
	Trend     TrendView     `json:"trend" yaml:"trend"`
	BoxPlot   BoxPlotView   `json:"box_plot" yaml:"box_plot"`
}

// HistogramView extracts one flat numeric sample set.
type HistogramView struct {
	Value string `json:"value" yaml:"value"`
	Limit int    `json:"limit" yaml:"limit" validate:"gte=0"`
}

// ScatterView extracts (x, y, group) points.
type ScatterView struct {
	X     string `json:"x" yaml:"x"`
	Y     string `json:"y" yaml:"y"`
	Group string `json:"group" yaml:"group"`
	Limit int    `json:"limit" yaml:"limit" validate:"gte=0"`
}

// WaferMapView extracts (x, y, value) die cells.
type WaferMapView struct {
	X     string `json:"x" yaml:"x"`
	Y     string `json:"y" yaml:"y"`
	Value string `json:"value" yaml:"value"`
	Limit int    `json:"limit" yaml:"limit" validate:"gte=0"`
}

// TrendView extracts (group, value) pairs in file order.
type TrendView struct {
	Group string `json:"group" yaml:"group"`
	Value string `json:"value" yaml:"value"`
	Limit int    `json:"limit" yaml:"limit" validate:"gte=0"`
}

// BoxPlotView extracts (category, value, label) triples for box-plot and
// candlestick summaries.
type BoxPlotView struct {
	Category string `json:"category" yaml:"category"`
	Value    string `json:"value" yaml:"value"`
	Label    string `json:"label" yaml:"label"`
	Limit    int    `json:"limit" yaml:"limit" validate:"gte=0"`
}

// Enabled reports whether the view is bound to any column.
func (v HistogramView) Enabled() bool { return v.Value != "" }

func (v ScatterView) Enabled() bool { return v.X != "" || v.Y != "" }

func (v WaferMapView) Enabled() bool { return v.X != "" || v.Y != "" || v.Value != "" }

func (v TrendView) Enabled() bool { return v.Group != "" || v.Value != "" }

func (v BoxPlotView) Enabled() bool { return v.Category != "" || v.Value != "" }

// AggregateConfig tunes the statistical transforms.
type AggregateConfig struct {
	// BinRule is "squareRoot" or "sturges".
	BinRule string `json:"bin_rule" yaml:"bin_rule"`
	// Bins overrides the rule when positive.
	Bins int `json:"bins" yaml:"bins" validate:"gte=0"`
	// Quantile is "nearest" (default) or "linear".
	Quantile string `json:"quantile" yaml:"quantile"`
	// DownsampleTarget is the LTTB output size; 0 disables decimation.
	DownsampleTarget int `json:"downsample_target" yaml:"downsample_target" validate:"gte=0"`
	// ProgressiveThreshold is the series length above which output is split
	// into progressive batches.
	ProgressiveThreshold int `json:"progressive_threshold" yaml:"progressive_threshold" validate:"gte=0"`
	// ProgressiveBatch is the size of each progressive batch.
	ProgressiveBatch int `json:"progressive_batch" yaml:"progressive_batch" validate:"gte=0"`
}

// StreamConfig configures the synthetic real-time series.
type StreamConfig struct {
	Capacity    int            `json:"capacity" yaml:"capacity" validate:"gte=0"`
	MinInterval Duration       `json:"min_interval" yaml:"min_interval"`
	MaxInterval Duration       `json:"max_interval" yaml:"max_interval"`
	Series      []StreamSeries `json:"series" yaml:"series" validate:"dive"`
}

// StreamSeries describes one generated series.
type StreamSeries struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	// Kind is "uniform" or "sine".
	Kind      string   `json:"kind" yaml:"kind" validate:"required,oneof=uniform sine"`
	Min       float64  `json:"min" yaml:"min"`
	Max       float64  `json:"max" yaml:"max"`
	Amplitude float64  `json:"amplitude" yaml:"amplitude"`
	Period    Duration `json:"period" yaml:"period"`
}

// RuntimeConfig controls concurrency.
type RuntimeConfig struct {
	// Workers is the number of parse tasks per ingestion; 0 means detected
	// hardware parallelism.
	Workers int `json:"workers" yaml:"workers" validate:"gte=0"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend is "pushgateway", "datadog" or "none".
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url" validate:"omitempty,url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr"`
	Namespace      string `json:"namespace" yaml:"namespace"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=json text"`
}

// TracingConfig controls the OpenTelemetry exporter.
type TracingConfig struct {
	// Exporter is "stdout" or "none".
	Exporter string `json:"exporter" yaml:"exporter" validate:"omitempty,oneof=stdout none"`
}

// Duration is a time.Duration that decodes from a Go duration string
// ("250ms", "4s") or from a number of seconds.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

func parseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(f * float64(time.Second)), nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return Duration(v), nil
}

// UnmarshalJSON accepts either a string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*d = 0
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalJSON encodes the duration as a Go duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalYAML accepts either a string or a number of seconds.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := parseDuration(n.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Options is the free-form parser option bag. Getters return the default
// when a key is absent or of an unexpected type.
type Options map[string]any

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// UnmarshalJSON makes a missing or null "options" object decode to a non-nil,
// empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
