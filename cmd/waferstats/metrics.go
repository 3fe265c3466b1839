package main

import (
	"log/slog"

	"waferstats/internal/config"
	"waferstats/internal/metrics"
	"waferstats/internal/metrics/datadog"
	"waferstats/internal/metrics/prompush"
)

// installMetrics selects the metrics backend named by the resolved pipeline
// and returns the hook that flushes (and closes) it. A backend that fails to
// initialize leaves the nop backend in place.
func installMetrics(p config.Pipeline, log *slog.Logger) func() error {
	m := p.Metrics
	switch m.Backend {
	case "pushgateway":
		b, err := prompush.NewBackend(p.Job, m.PushgatewayURL)
		if err != nil {
			log.Warn("metrics: failed to init prom push backend; using nop", "error", err)
			return nil
		}
		log.Debug("metrics", "backend", m.Backend, "url", m.PushgatewayURL, "job", p.Job)
		metrics.SetBackend(b)
		return flushMetrics

	case "datadog":
		cfg := datadog.Config{Addr: m.DatadogAddr, Namespace: m.Namespace}
		if p.Job != "" {
			cfg.GlobalTags = []string{"job:" + p.Job}
		}
		b, err := datadog.NewBackend(cfg)
		if err != nil {
			log.Warn("metrics: failed to init datadog backend; using nop", "error", err)
			return nil
		}
		log.Debug("metrics", "backend", m.Backend, "addr", m.DatadogAddr)
		metrics.SetBackend(b)
		return func() error {
			err := flushMetrics()
			if cerr := b.Close(); err == nil {
				err = cerr
			}
			return err
		}

	case "", "none":
		log.Debug("metrics: disabled", "backend", m.Backend)
		return nil

	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", m.Backend)
		return nil
	}
}
