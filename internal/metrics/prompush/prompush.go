// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// It maps the generic metric names onto client_golang collectors and pushes
// the registry to a Pushgateway on Flush instead of exposing a scrape
// endpoint, which suits short-lived CLI runs. The Pushgateway "job" grouping
// key carries the pipeline job, so it is not repeated as a label.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"waferstats/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec
	stepDuration  *prometheus.SummaryVec
	rowCounter    *prometheus.CounterVec
	chunkCounter  prometheus.Counter
	sampleCounter *prometheus.CounterVec
}

// NewBackend constructs a Pushgateway backend. jobName is the grouping key
// ("waferstats" when empty); gatewayURL is the Pushgateway base URL.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "waferstats"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.StepTotal,
				Help: "Pipeline stage executions, partitioned by step and status.",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       metrics.StepDurationSeconds,
				Help:       "Pipeline stage duration in seconds, partitioned by step and status.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"step", "status"},
		),
		rowCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RowsTotal,
				Help: "Row counts per kind (merged, extracted, skipped).",
			},
			[]string{"kind"},
		),
		chunkCounter: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metrics.ChunksTotal,
				Help: "Chunks parsed by the parser pool.",
			},
		),
		sampleCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.SamplesTotal,
				Help: "Samples generated by real-time feed series.",
			},
			[]string{"series"},
		),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":   b.stepCounter,
		"step summary":   b.stepDuration,
		"row counter":    b.rowCounter,
		"chunk counter":  b.chunkCounter,
		"sample counter": b.sampleCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return b, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	case metrics.ChunksTotal:
		b.chunkCounter.Add(delta)
	case metrics.SamplesTotal:
		b.sampleCounter.WithLabelValues(labels["series"]).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend. Only step durations are kept.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
