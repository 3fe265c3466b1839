package stats

import (
	"fmt"
	"math"
	"slices"
)

// QuantileMode selects how quartiles are picked from sorted values.
type QuantileMode string

const (
	// Nearest takes the value at index floor((m-1)*p). It is the default.
	Nearest QuantileMode = "nearest"
	// Linear interpolates between the two values around (m-1)*p.
	Linear QuantileMode = "linear"
)

// ParseQuantileMode maps a configured mode name to a QuantileMode. Empty
// means Nearest.
func ParseQuantileMode(s string) (QuantileMode, error) {
	switch QuantileMode(s) {
	case "", Nearest:
		return Nearest, nil
	case Linear:
		return Linear, nil
	}
	return "", fmt.Errorf("stats: unknown quantile mode %q", s)
}

// Summary is a five-number summary. Min <= Q1 <= Median <= Q3 <= Max always
// holds.
type Summary struct {
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Values returns the summary as [min, q1, median, q3, max].
func (s Summary) Values() [5]float64 {
	return [5]float64{s.Min, s.Q1, s.Median, s.Q3, s.Max}
}

// Summarize computes the five-number summary of values sorted ascending.
// It reports false for an empty slice.
func Summarize(sorted []float64, mode QuantileMode) (Summary, bool) {
	m := len(sorted)
	if m == 0 {
		return Summary{}, false
	}
	return Summary{
		Min:    sorted[0],
		Q1:     quantile(sorted, 0.25, mode),
		Median: quantile(sorted, 0.5, mode),
		Q3:     quantile(sorted, 0.75, mode),
		Max:    sorted[m-1],
	}, true
}

// FiveNumber sorts a copy of values and summarizes it. Non-finite values are
// dropped.
func FiveNumber(values []float64, mode QuantileMode) (Summary, bool) {
	s := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			s = append(s, v)
		}
	}
	slices.Sort(s)
	return Summarize(s, mode)
}

func quantile(sorted []float64, p float64, mode QuantileMode) float64 {
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if mode != Linear || lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
