// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from ingestion runs and real-time feeds.
//
// A global, pluggable Backend defaults to a no-op implementation, so the
// helpers are always safe to call even when no metrics system is configured.
// Concrete systems live in subpackages (prompush, datadog) so the rest of the
// code depends only on this interface.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the helpers below.
const (
	StepTotal           = "wafer_step_total"
	StepDurationSeconds = "wafer_step_duration_seconds"
	RowsTotal           = "wafer_rows_total"
	ChunksTotal         = "wafer_chunks_total"
	SamplesTotal        = "wafer_samples_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend and returns the previous one.
// Passing nil keeps the existing backend.
func SetBackend(b Backend) Backend {
	mu.Lock()
	defer mu.Unlock()
	prev := backend
	if b != nil {
		backend = b
	}
	return prev
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep measures latency and success/failure of one pipeline stage
// (read, split, parse, merge, schema, analyze, ...).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments a row counter for the given job and kind.
//
// Kinds in use:
//   - "merged": data rows in a committed dataset
//   - "extracted": rows that produced a view tuple
//   - "skipped": rows filtered out by a view (missing or non-numeric cells)
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordChunks increments the parsed-chunk counter for job.
func RecordChunks(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(ChunksTotal, float64(delta), Labels{
		"job": job,
	})
}

// RecordSamples increments the generated-sample counter for a feed series.
func RecordSamples(series string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(SamplesTotal, float64(delta), Labels{
		"series": series,
	})
}
