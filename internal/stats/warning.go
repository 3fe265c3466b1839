// Package stats holds the aggregators behind the derived views: histogram
// binning and its frequency polygon, five-number summaries for box-plot and
// candlestick views, LTTB decimation and progressive batching.
//
// Aggregators run single-threaded over an already merged dataset. Empty or
// all-invalid input is not an error: they return an empty result, and the
// caller reports an AggregationWarning so the consumer can show "no data".
package stats

import "fmt"

// AggregationWarning reports that an aggregator had nothing to work with.
type AggregationWarning struct {
	View   string
	Reason string
}

func (w *AggregationWarning) Error() string {
	return fmt.Sprintf("%s: %s", w.View, w.Reason)
}

// Warn builds an AggregationWarning.
func Warn(view, reason string) *AggregationWarning {
	return &AggregationWarning{View: view, Reason: reason}
}
