package stats

import (
	"fmt"
	"math"
)

// BinRule selects how many histogram bins a sample count gets.
type BinRule string

const (
	SquareRoot BinRule = "squareRoot"
	Sturges    BinRule = "sturges"
)

// ParseBinRule maps a configured rule name to a BinRule. Empty means
// SquareRoot.
func ParseBinRule(s string) (BinRule, error) {
	switch BinRule(s) {
	case "", SquareRoot:
		return SquareRoot, nil
	case Sturges:
		return Sturges, nil
	}
	return "", fmt.Errorf("stats: unknown bin rule %q", s)
}

// BinCount returns the bin count for n samples:
//
//	squareRoot  ceil(sqrt(n))
//	sturges     ceil(1 + log2(n))
//
// It returns 0 for n < 1 and falls back to squareRoot for unknown rules.
func BinCount(rule BinRule, n int) int {
	if n < 1 {
		return 0
	}
	switch rule {
	case Sturges:
		return int(math.Ceil(1 + math.Log2(float64(n))))
	default:
		return int(math.Ceil(math.Sqrt(float64(n))))
	}
}

// Bin is one equal-width histogram bucket. Start is inclusive; End is
// exclusive except for the last bin, which includes the sample maximum.
type Bin struct {
	Start float64
	End   float64
	Count int
}

// Histogram divides [min, max] of values into bins equal-width buckets and
// counts membership. Non-finite values are ignored. When every value is equal
// the result is a single bin holding all of them. bins below 1 is treated as
// 1. It returns nil when no finite value remains.
func Histogram(values []float64, bins int) []Bin {
	lo, hi, n := bounds(values)
	if n == 0 {
		return nil
	}
	if lo == hi {
		return []Bin{{Start: lo, End: hi, Count: n}}
	}
	if bins < 1 {
		bins = 1
	}

	out := make([]Bin, bins)
	for i := range out {
		out[i].Start = edge(lo, hi, float64(i)/float64(bins))
		out[i].End = edge(lo, hi, float64(i+1)/float64(bins))
	}
	out[bins-1].End = hi

	for _, v := range values {
		if !finite(v) {
			continue
		}
		out[binIndex(v, lo, hi, bins)].Count++
	}
	return out
}

// edge returns lo + frac*(hi-lo). A range wider than MaxFloat64 is stepped
// in halves so the result stays finite.
func edge(lo, hi, frac float64) float64 {
	var e float64
	if d := hi - lo; !math.IsInf(d, 0) {
		e = lo + frac*d
	} else {
		h := hi/2 - lo/2
		e = lo + frac*h + frac*h
	}
	return math.Min(e, hi)
}

// binIndex places v in [0, bins-1]. lo < hi, both finite.
func binIndex(v, lo, hi float64, bins int) int {
	var rel float64
	if d := hi - lo; !math.IsInf(d, 0) {
		rel = (v - lo) / d
	} else {
		rel = (v/2 - lo/2) / (hi/2 - lo/2)
	}
	f := rel * float64(bins)
	switch {
	case !(f >= 0):
		return 0
	case f >= float64(bins):
		return bins - 1
	}
	return int(f)
}

// Point is one (x, y) sample of a plotted series. Group carries the optional
// category the point belongs to.
type Point struct {
	X     float64
	Y     float64
	Group string
}

// Polygon returns the frequency polygon of bins: one point per bin at its
// midpoint, with the bin count as Y.
func Polygon(bins []Bin) []Point {
	if len(bins) == 0 {
		return nil
	}
	out := make([]Point, len(bins))
	for i, b := range bins {
		out[i] = Point{X: edge(b.Start, b.End, 0.5), Y: float64(b.Count)}
	}
	return out
}

func bounds(values []float64) (lo, hi float64, n int) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !finite(v) {
			continue
		}
		n++
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, n
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
