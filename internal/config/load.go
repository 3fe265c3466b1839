package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Resolve when neither the pipeline nor the environment
// provides a value.
const (
	DefaultBinRule              = "squareRoot"
	DefaultQuantile             = "nearest"
	DefaultDownsampleTarget     = 5000
	DefaultProgressiveThreshold = 300000
	DefaultProgressiveBatch     = 50000
	DefaultStreamCapacity       = 100
	DefaultMinInterval          = 10 * time.Millisecond
	DefaultMaxInterval          = 4 * time.Second
	DefaultPushgatewayURL       = "http://localhost:9091"
	DefaultJob                  = "waferstats"
)

// EnvPrefix is the envconfig prefix for environment overrides.
const EnvPrefix = "WAFER"

// Env holds the environment fallbacks read with envconfig, e.g.
// WAFER_WORKERS=8 or WAFER_METRICS_BACKEND=none.
type Env struct {
	Workers        int    `envconfig:"WORKERS"`
	MetricsBackend string `envconfig:"METRICS_BACKEND"`
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
	DatadogAddr    string `envconfig:"DATADOG_ADDR"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	LogFormat      string `envconfig:"LOG_FORMAT"`
	TraceExporter  string `envconfig:"TRACE_EXPORTER"`
}

// Load reads and decodes a pipeline file. The format is chosen by extension:
// .yaml/.yml decode as YAML, everything else as JSON.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	return Decode(b, filepath.Ext(path))
}

// Decode decodes b as JSON or YAML depending on ext (".json", ".yaml", ".yml").
func Decode(b []byte, ext string) (Pipeline, error) {
	var p Pipeline
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &p); err != nil {
			return Pipeline{}, fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("decode json config: %w", err)
		}
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	return p, nil
}

// LoadEnv reads the WAFER_* environment overrides.
func LoadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return Env{}, fmt.Errorf("read environment: %w", err)
	}
	return e, nil
}

// Resolve returns a copy of p with every unset knob filled from env and then
// from the package defaults. Pipeline values win over the environment.
func (p Pipeline) Resolve(env Env) Pipeline {
	out := p
	if out.Job == "" {
		out.Job = DefaultJob
	}
	if out.Parser.Kind == "" {
		out.Parser.Kind = "csv"
	}
	if out.Parser.Options == nil {
		out.Parser.Options = Options{}
	}

	out.Runtime.Workers = pickInt(p.Runtime.Workers, pickInt(env.Workers, runtime.NumCPU()))

	a := &out.Aggregate
	a.BinRule = pickString(a.BinRule, DefaultBinRule)
	a.Quantile = pickString(a.Quantile, DefaultQuantile)
	if a.DownsampleTarget == 0 {
		a.DownsampleTarget = DefaultDownsampleTarget
	}
	a.ProgressiveThreshold = pickInt(a.ProgressiveThreshold, DefaultProgressiveThreshold)
	a.ProgressiveBatch = pickInt(a.ProgressiveBatch, DefaultProgressiveBatch)

	s := &out.Stream
	s.Capacity = pickInt(s.Capacity, DefaultStreamCapacity)
	if s.MinInterval <= 0 {
		s.MinInterval = Duration(DefaultMinInterval)
	}
	if s.MaxInterval <= 0 {
		s.MaxInterval = Duration(DefaultMaxInterval)
	}
	if len(s.Series) == 0 {
		s.Series = DefaultSeries()
	}

	m := &out.Metrics
	m.Backend = pickString(m.Backend, pickString(env.MetricsBackend, "none"))
	m.PushgatewayURL = pickString(m.PushgatewayURL, pickString(env.PushgatewayURL, DefaultPushgatewayURL))
	m.DatadogAddr = pickString(m.DatadogAddr, env.DatadogAddr)

	out.Logging.Level = pickString(out.Logging.Level, pickString(env.LogLevel, "info"))
	out.Logging.Format = pickString(out.Logging.Format, pickString(env.LogFormat, "json"))
	out.Tracing.Exporter = pickString(out.Tracing.Exporter, pickString(env.TraceExporter, "none"))

	return out
}

// DefaultSeries returns the three demo series: a uniform line in [0,100), a
// signed uniform bar series in [-100,100) and a sine wave of amplitude 50.
func DefaultSeries() []StreamSeries {
	return []StreamSeries{
		{Name: "random", Kind: "uniform", Min: 0, Max: 100},
		{Name: "signed", Kind: "uniform", Min: -100, Max: 100},
		{Name: "sine", Kind: "sine", Amplitude: 50, Period: Duration(time.Second)},
	}
}

// pickInt chooses the first positive value a, otherwise returns b.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func pickString(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
