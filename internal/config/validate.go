// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users but
	// does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "source.kind",
// "stream.series[1].kind"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Struct tag rules (required fields, URL
// shape, non-negative limits) are checked first, followed by cross-field
// domain rules. Callers may decide whether to treat warnings as fatal.
//
// Example:
//
//	p, err := config.Load("pipeline.json")
//	if err != nil { ... }
//	for _, iss := range config.ValidatePipeline(p) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	issues = append(issues, validateTags(p)...)
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateViews(p.Views)...)
	issues = append(issues, validateAggregate(p.Aggregate)...)
	issues = append(issues, validateStream(p.Stream)...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	return issues
}

func validateTags(p Pipeline) []Issue {
	err := structValidator.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Severity: SeverityError, Path: "", Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path,
			Message:  tagMessage(fe),
		})
	}
	return issues
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s must not be empty", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be an absolute URL, got %q", fe.Field(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q check", fe.Field(), fe.Tag())
	}
}

// validateSource validates Source configuration. An empty kind is reported by
// the struct tag pass.
func validateSource(s Source) []Issue {
	var issues []Issue

	switch s.Kind {
	case "":
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	case "http":
		if strings.TrimSpace(s.HTTP.URL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.url",
				Message:  "http source requires a non-empty url",
			})
		}
		if s.HTTP.Timeout < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.timeout",
				Message:  "timeout must not be negative",
			})
		}
		if s.HTTP.InsecureSkipVerify {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.http.insecure_skip_verify",
				Message:  "TLS verification is disabled",
			})
		}
	case "inline":
		if s.Inline.Text == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.inline.text",
				Message:  "inline source is empty; ingestion will fail with no header",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q (want file, http or inline)", s.Kind),
		})
	}

	return issues
}

// validateParser validates parser configuration.
func validateParser(p Parser) []Issue {
	var issues []Issue

	if p.Kind != "" && p.Kind != "csv" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unsupported parser kind %q; only csv is available", p.Kind),
		})
	}
	for k := range p.Options {
		switch k {
		case "trim_space", "lazy_quotes":
			if _, ok := p.Options[k].(bool); !ok {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "parser.options." + k,
					Message:  "must be a boolean",
				})
			}
		case "comma", "delimiter":
			if v, _ := p.Options[k].(string); v != "," {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "parser.options." + k,
					Message:  fmt.Sprintf("only ',' is supported as delimiter, got %v", p.Options[k]),
				})
			}
		default:
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "parser.options." + k,
				Message:  "unknown parser option; it will be ignored",
			})
		}
	}

	return issues
}

// validateViews checks that each enabled view names every column it needs.
// A view with no columns at all is simply disabled.
func validateViews(v Views) []Issue {
	var issues []Issue

	need := func(view string, cols map[string]string) {
		set := 0
		for _, c := range cols {
			if strings.TrimSpace(c) != "" {
				set++
			}
		}
		if set == 0 || set == len(cols) {
			return
		}
		for field, c := range cols {
			if strings.TrimSpace(c) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "views." + view + "." + field,
					Message:  "column must be set when the view is enabled",
				})
			}
		}
	}

	need("scatter", map[string]string{"x": v.Scatter.X, "y": v.Scatter.Y})
	need("wafer_map", map[string]string{"x": v.WaferMap.X, "y": v.WaferMap.Y, "value": v.WaferMap.Value})
	need("trend", map[string]string{"group": v.Trend.Group, "value": v.Trend.Value})
	need("box_plot", map[string]string{"category": v.BoxPlot.Category, "value": v.BoxPlot.Value})

	if v.Scatter.Group != "" && v.Scatter.X == "" && v.Scatter.Y == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "views.scatter.group",
			Message:  "group is set but the scatter view is disabled",
		})
	}
	if v.BoxPlot.Label != "" && v.BoxPlot.Category == "" && v.BoxPlot.Value == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "views.box_plot.label",
			Message:  "label is set but the box plot view is disabled",
		})
	}
	if !v.Histogram.Enabled() && !v.Scatter.Enabled() && !v.WaferMap.Enabled() &&
		!v.Trend.Enabled() && !v.BoxPlot.Enabled() {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "views",
			Message:  "no view is enabled; ingestion will only report row counts",
		})
	}

	return issues
}

func validateAggregate(a AggregateConfig) []Issue {
	var issues []Issue

	switch a.BinRule {
	case "", "squareRoot", "sturges":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "aggregate.bin_rule",
			Message:  fmt.Sprintf("unknown bin rule %q (want squareRoot or sturges)", a.BinRule),
		})
	}
	switch a.Quantile {
	case "", "nearest", "linear":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "aggregate.quantile",
			Message:  fmt.Sprintf("unknown quantile method %q (want nearest or linear)", a.Quantile),
		})
	}
	if a.DownsampleTarget > 0 && a.DownsampleTarget < 3 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "aggregate.downsample_target",
			Message:  "targets below 3 disable decimation",
		})
	}
	if a.ProgressiveThreshold > 0 && a.ProgressiveBatch > a.ProgressiveThreshold {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "aggregate.progressive_batch",
			Message:  "batch size exceeds the threshold; progressive series will arrive in a single batch",
		})
	}

	return issues
}

func validateStream(s StreamConfig) []Issue {
	var issues []Issue

	if s.MinInterval < 0 || s.MaxInterval < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "stream",
			Message:  "intervals must not be negative",
		})
	}
	if s.MinInterval > 0 && s.MaxInterval > 0 && s.MinInterval > s.MaxInterval {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "stream.min_interval",
			Message:  fmt.Sprintf("min_interval %s exceeds max_interval %s", s.MinInterval, s.MaxInterval),
		})
	}
	seen := map[string]int{}
	for i, sr := range s.Series {
		path := fmt.Sprintf("stream.series[%d]", i)
		if j, dup := seen[sr.Name]; dup && sr.Name != "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".name",
				Message:  fmt.Sprintf("duplicate series name %q (also series[%d])", sr.Name, j),
			})
		}
		seen[sr.Name] = i
		if sr.Kind == "uniform" && sr.Max < sr.Min {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".max",
				Message:  "max must be >= min",
			})
		}
		if sr.Kind == "sine" && sr.Period < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".period",
				Message:  "period must not be negative",
			})
		}
	}

	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none", "pushgateway":
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.datadog_addr",
				Message:  "empty address; the statsd client will send to 127.0.0.1:8125",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want pushgateway, datadog or none)", m.Backend),
		})
	}

	return issues
}
