package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"waferstats/internal/config"
	"waferstats/internal/logging"
	"waferstats/internal/metrics"
	"waferstats/internal/telemetry"
)

// globalFlags override the pipeline file. Empty or zero values leave the
// file, then the environment, then the defaults in charge.
type globalFlags struct {
	config         string
	file           string
	url            string
	workers        int
	metricsBackend string
	pushgatewayURL string
	datadogAddr    string
	logLevel       string
	logFormat      string
	trace          string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:          "waferstats",
		Short:        "Parallel ingestion and statistical views for wafer test records",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.config, "config", "c", "", "pipeline file (.json, .yaml or .yml)")
	pf.StringVar(&g.file, "file", "", "read the records from this local file (overrides source)")
	pf.StringVar(&g.url, "url", "", "fetch the records from this URL (overrides source)")
	pf.IntVar(&g.workers, "workers", 0, "parse tasks per ingestion (0 = config, WAFER_WORKERS or CPU count)")
	pf.StringVar(&g.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none")
	pf.StringVar(&g.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL")
	pf.StringVar(&g.datadogAddr, "datadog-addr", "", "DogStatsD address")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&g.logFormat, "log-format", "", "json or text")
	pf.StringVar(&g.trace, "trace", "", "trace exporter: stdout or none")

	root.AddCommand(
		newValidateCmd(g),
		newIngestCmd(g),
		newReportCmd(g),
		newStreamCmd(g),
	)
	return root
}

// loadPipeline reads the pipeline file (if any), applies flag overrides and
// resolves defaults from the environment.
func loadPipeline(g *globalFlags) (config.Pipeline, error) {
	var p config.Pipeline
	if g.config != "" {
		var err error
		if p, err = config.Load(g.config); err != nil {
			return p, err
		}
	}

	switch {
	case g.file != "":
		p.Source = config.Source{Kind: "file", File: config.SourceFile{Path: g.file}}
	case g.url != "":
		p.Source = config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: g.url, Timeout: p.Source.HTTP.Timeout}}
	}
	if g.workers > 0 {
		p.Runtime.Workers = g.workers
	}
	override(&p.Metrics.Backend, g.metricsBackend)
	override(&p.Metrics.PushgatewayURL, g.pushgatewayURL)
	override(&p.Metrics.DatadogAddr, g.datadogAddr)
	override(&p.Logging.Level, g.logLevel)
	override(&p.Logging.Format, g.logFormat)
	override(&p.Tracing.Exporter, g.trace)

	env, err := config.LoadEnv()
	if err != nil {
		return p, err
	}
	return p.Resolve(env), nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// app is the process wiring shared by the run commands.
type app struct {
	p      config.Pipeline
	log    *slog.Logger
	tracer *telemetry.Providers
	closer []func() error
}

// newApp loads and validates the pipeline, then installs logging, tracing
// and the metrics backend. Issues under source are ignored when the command
// does not read a source.
func newApp(cmd *cobra.Command, g *globalFlags, needSource bool) (*app, error) {
	p, err := loadPipeline(g)
	if err != nil {
		return nil, err
	}

	issues := config.ValidatePipeline(p)
	if !needSource {
		issues = dropPath(issues, "source")
	}
	printIssues(cmd.ErrOrStderr(), issues)
	if config.HasErrors(issues) {
		return nil, fmt.Errorf("configuration is invalid")
	}

	log := logging.New(p.Logging, cmd.ErrOrStderr())
	slog.SetDefault(log)

	tp, err := telemetry.Setup(p.Tracing.Exporter, p.Job, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	a := &app{p: p, log: log, tracer: tp}
	a.closer = append(a.closer, func() error { return tp.Shutdown(context.Background()) })
	if closeMetrics := installMetrics(p, log); closeMetrics != nil {
		a.closer = append(a.closer, closeMetrics)
	}
	return a, nil
}

// Close flushes metrics and spans.
func (a *app) Close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		if err := a.closer[i](); err != nil {
			a.log.Warn("shutdown", "error", err)
		}
	}
}

func printIssues(w io.Writer, issues []config.Issue) {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
}

func dropPath(issues []config.Issue, prefix string) []config.Issue {
	out := issues[:0:0]
	for _, iss := range issues {
		if iss.Path == prefix || strings.HasPrefix(iss.Path, prefix+".") {
			continue
		}
		out = append(out, iss)
	}
	return out
}

// flushMetrics pushes whatever the backend buffered.
func flushMetrics() error {
	if err := metrics.Flush(); err != nil {
		return fmt.Errorf("metrics: flush: %w", err)
	}
	return nil
}
