package stats

import (
	"math"
	"slices"
)

// MinCandleSamples is the smallest group a candlestick entry is drawn for.
const MinCandleSamples = 5

// Sample is one (category, value) observation. Label is carried for display
// only and takes no part in grouping.
type Sample struct {
	Category string
	Value    float64
	Label    string
}

// Group is the summary of one category.
type Group struct {
	Category string
	Count    int
	Summary  Summary
}

// BoxPlot groups samples by category over the full input and summarizes each
// group. Samples with a non-finite value are dropped. Groups come back in
// lexicographic category order.
func BoxPlot(samples []Sample, mode QuantileMode) []Group {
	return summarizeGroups(samples, mode, 1)
}

// Candlestick is BoxPlot restricted to groups of at least MinCandleSamples
// values.
func Candlestick(samples []Sample, mode QuantileMode) []Group {
	return summarizeGroups(samples, mode, MinCandleSamples)
}

// CandleRange returns the smallest and largest of every summary value across
// groups. ok is false when groups is empty.
func CandleRange(groups []Group) (lo, hi float64, ok bool) {
	if len(groups) == 0 {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, g := range groups {
		for _, v := range g.Summary.Values() {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi, true
}

func summarizeGroups(samples []Sample, mode QuantileMode, minSize int) []Group {
	byCategory := make(map[string][]float64)
	for _, s := range samples {
		if !finite(s.Value) {
			continue
		}
		byCategory[s.Category] = append(byCategory[s.Category], s.Value)
	}
	if len(byCategory) == 0 {
		return nil
	}

	keys := make([]string, 0, len(byCategory))
	for k := range byCategory {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]Group, 0, len(keys))
	for _, k := range keys {
		values := byCategory[k]
		if len(values) < minSize {
			continue
		}
		slices.Sort(values)
		sum, _ := Summarize(values, mode)
		out = append(out, Group{Category: k, Count: len(values), Summary: sum})
	}
	return out
}
