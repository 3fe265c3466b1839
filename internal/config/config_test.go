package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Pipeline decoding tests
// -----------------------------------------------------------------------------
//
// These tests validate that pipeline documents decode into the intended Go
// struct graph from both JSON and YAML. Fixtures are inline strings to keep
// the tests hermetic.

func TestPipeline_DecodeJSON(t *testing.T) {
	t.Parallel()

	const js = `{
	  "job": "leakage",
	  "source": { "kind": "file", "file": { "path": "testdata/wafer.csv" } },
	  "parser": { "kind": "csv", "options": { "trim_space": true, "lazy_quotes": false } },
	  "views": {
	    "histogram": { "value": "Leakage_Current" },
	    "scatter":   { "x": "Site_Number", "y": "Voltage_Result", "limit": 100000 },
	    "wafer_map": { "x": "X_Coordinate", "y": "Y_Coordinate", "value": "Voltage_Result", "limit": 20000 },
	    "box_plot":  { "category": "WAF ID 2", "value": "PARAMETER_01", "label": "Device Name" }
	  },
	  "aggregate": { "bin_rule": "sturges", "quantile": "linear" },
	  "stream": {
	    "capacity": 50,
	    "min_interval": "25ms",
	    "max_interval": 2,
	    "series": [ { "name": "s", "kind": "sine", "amplitude": 10, "period": "500ms" } ]
	  },
	  "runtime": { "workers": 3 }
	}`

	p, err := Decode([]byte(js), ".json")
	if err != nil {
		t.Fatalf("Decode(json): %v", err)
	}

	if p.Job != "leakage" {
		t.Fatalf("job = %q, want leakage", p.Job)
	}
	if p.Source.Kind != "file" || p.Source.File.Path != "testdata/wafer.csv" {
		t.Fatalf("source decoded = %#v, want kind=file path=testdata/wafer.csv", p.Source)
	}
	if got := p.Parser.Options.Bool("trim_space", false); !got {
		t.Fatalf("parser.options.trim_space = %v, want true", got)
	}
	if p.Views.BoxPlot.Category != "WAF ID 2" || p.Views.BoxPlot.Label != "Device Name" {
		t.Fatalf("box_plot decoded = %#v", p.Views.BoxPlot)
	}
	if p.Views.WaferMap.Limit != 20000 || p.Views.Scatter.Limit != 100000 {
		t.Fatalf("limits decoded = wafer_map:%d scatter:%d", p.Views.WaferMap.Limit, p.Views.Scatter.Limit)
	}
	if p.Aggregate.BinRule != "sturges" || p.Aggregate.Quantile != "linear" {
		t.Fatalf("aggregate decoded = %#v", p.Aggregate)
	}
	if p.Stream.MinInterval.D() != 25*time.Millisecond {
		t.Fatalf("min_interval = %s, want 25ms", p.Stream.MinInterval)
	}
	if p.Stream.MaxInterval.D() != 2*time.Second {
		t.Fatalf("max_interval = %s, want 2s (numbers are seconds)", p.Stream.MaxInterval)
	}
	if len(p.Stream.Series) != 1 || p.Stream.Series[0].Period.D() != 500*time.Millisecond {
		t.Fatalf("series decoded = %#v", p.Stream.Series)
	}
	if p.Runtime.Workers != 3 {
		t.Fatalf("runtime.workers = %d, want 3", p.Runtime.Workers)
	}
}

func TestPipeline_DecodeJSON_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"job":"x","storage":{}}`), ".json")
	if err == nil {
		t.Fatalf("Decode with unknown field: expected error, got nil")
	}
}

func TestPipeline_DecodeYAML(t *testing.T) {
	t.Parallel()

	const y = `
job: leakage
source:
  kind: inline
  inline:
    text: "a,b\n1,2\n"
parser:
  kind: csv
  options:
    trim_space: true
views:
  trend:
    group: WAF ID 2
    value: PARAMETER_01
stream:
  min_interval: 10ms
  max_interval: 4s
`
	p, err := Decode([]byte(y), ".yaml")
	if err != nil {
		t.Fatalf("Decode(yaml): %v", err)
	}
	if p.Source.Kind != "inline" || p.Source.Inline.Text != "a,b\n1,2\n" {
		t.Fatalf("source decoded = %#v", p.Source)
	}
	if !p.Parser.Options.Bool("trim_space", false) {
		t.Fatalf("parser.options.trim_space not decoded from yaml")
	}
	if p.Views.Trend.Group != "WAF ID 2" {
		t.Fatalf("trend.group = %q, want %q", p.Views.Trend.Group, "WAF ID 2")
	}
	if p.Stream.MaxInterval.D() != 4*time.Second {
		t.Fatalf("max_interval = %s, want 4s", p.Stream.MaxInterval)
	}
}

func TestLoad_FromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "p.yml")
	if err := os.WriteFile(path, []byte("job: j\nsource:\n  kind: file\n  file:\n    path: x.csv\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Job != "j" || p.Source.File.Path != "x.csv" {
		t.Fatalf("Load decoded = %#v", p)
	}
	if p.Parser.Options == nil {
		t.Fatalf("Parser.Options should be non-nil after Load")
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("Load(missing): expected error")
	}
}

// -----------------------------------------------------------------------------
// Resolve / environment tests
// -----------------------------------------------------------------------------

func TestPipeline_ResolveDefaults(t *testing.T) {
	t.Parallel()

	p := Pipeline{Source: Source{Kind: "inline"}}.Resolve(Env{})

	if p.Job != DefaultJob {
		t.Fatalf("job = %q, want %q", p.Job, DefaultJob)
	}
	if p.Runtime.Workers != runtime.NumCPU() {
		t.Fatalf("workers = %d, want NumCPU=%d", p.Runtime.Workers, runtime.NumCPU())
	}
	if p.Aggregate.BinRule != DefaultBinRule || p.Aggregate.Quantile != DefaultQuantile {
		t.Fatalf("aggregate defaults = %#v", p.Aggregate)
	}
	if p.Aggregate.ProgressiveThreshold != 300000 || p.Aggregate.ProgressiveBatch != 50000 {
		t.Fatalf("progressive defaults = %d/%d", p.Aggregate.ProgressiveThreshold, p.Aggregate.ProgressiveBatch)
	}
	if p.Stream.Capacity != 100 || len(p.Stream.Series) != 3 {
		t.Fatalf("stream defaults = cap %d, series %d", p.Stream.Capacity, len(p.Stream.Series))
	}
	if p.Stream.MinInterval.D() != 10*time.Millisecond || p.Stream.MaxInterval.D() != 4*time.Second {
		t.Fatalf("interval defaults = %s..%s", p.Stream.MinInterval, p.Stream.MaxInterval)
	}
	if p.Metrics.Backend != "none" || p.Logging.Level != "info" || p.Logging.Format != "json" {
		t.Fatalf("ambient defaults = metrics:%q level:%q format:%q", p.Metrics.Backend, p.Logging.Level, p.Logging.Format)
	}
}

func TestPipeline_ResolvePrecedence(t *testing.T) {
	t.Parallel()

	env := Env{Workers: 6, MetricsBackend: "pushgateway", LogLevel: "debug"}

	fromEnv := Pipeline{}.Resolve(env)
	if fromEnv.Runtime.Workers != 6 || fromEnv.Metrics.Backend != "pushgateway" || fromEnv.Logging.Level != "debug" {
		t.Fatalf("env fallback not applied: %#v", fromEnv)
	}

	explicit := Pipeline{
		Runtime: RuntimeConfig{Workers: 2},
		Metrics: MetricsConfig{Backend: "datadog"},
		Logging: LoggingConfig{Level: "warn"},
	}.Resolve(env)
	if explicit.Runtime.Workers != 2 || explicit.Metrics.Backend != "datadog" || explicit.Logging.Level != "warn" {
		t.Fatalf("pipeline values must win over env: %#v", explicit)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("WAFER_WORKERS", "5")
	t.Setenv("WAFER_METRICS_BACKEND", "none")

	e, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if e.Workers != 5 || e.MetricsBackend != "none" {
		t.Fatalf("LoadEnv = %#v", e)
	}

	t.Setenv("WAFER_WORKERS", "many")
	if _, err := LoadEnv(); err == nil {
		t.Fatalf("LoadEnv with non-numeric workers: expected error")
	}
}

// -----------------------------------------------------------------------------
// Options helper tests
// -----------------------------------------------------------------------------

// TestOptions_Bool covers present, missing and wrong-typed values.
func TestOptions_Bool(t *testing.T) {
	t.Parallel()

	opts := Options{"trim_space": true, "lazy_quotes": "yes"}

	if !opts.Bool("trim_space", false) {
		t.Fatalf("Bool(trim_space) = false, want true")
	}
	if !opts.Bool("lazy_quotes", true) {
		t.Fatalf("Bool(lazy_quotes) wrong type must return the default")
	}
	if opts.Bool("missing", false) {
		t.Fatalf("Bool(missing) = true, want default false")
	}
}

// TestOptions_UnmarshalNull verifies that "options": null decodes to a
// non-nil empty map.
func TestOptions_UnmarshalNull(t *testing.T) {
	t.Parallel()

	var p Parser
	if err := json.Unmarshal([]byte(`{"kind":"csv","options":null}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Options == nil || len(p.Options) != 0 {
		t.Fatalf("options = %#v, want empty non-nil map", p.Options)
	}
}

func TestDuration_Invalid(t *testing.T) {
	t.Parallel()

	var d Duration
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
	if err := json.Unmarshal([]byte(`null`), &d); err != nil || d != 0 {
		t.Fatalf("null duration = %v, %v; want 0, nil", d, err)
	}
}
