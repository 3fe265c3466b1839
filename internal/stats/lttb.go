package stats

import "math"

// LTTB decimates points to at most threshold points with the
// Largest-Triangle-Three-Buckets algorithm. The first and last points are
// always kept; every bucket in between contributes the point forming the
// largest triangle with the previously kept point and the average of the
// next bucket. Output keeps input order.
//
// A threshold of 0, below 3, or not smaller than len(points) returns a copy
// of points unchanged.
func LTTB(points []Point, threshold int) []Point {
	n := len(points)
	if threshold < 3 || threshold >= n {
		out := make([]Point, n)
		copy(out, points)
		return out
	}

	out := make([]Point, 0, threshold)
	out = append(out, points[0])

	every := float64(n-2) / float64(threshold-2)
	a := 0
	for i := 0; i < threshold-2; i++ {
		// average of the next bucket
		nextStart := int(math.Floor(float64(i+1)*every)) + 1
		nextEnd := min(int(math.Floor(float64(i+2)*every))+1, n)
		var avgX, avgY float64
		for j := nextStart; j < nextEnd; j++ {
			avgX += points[j].X
			avgY += points[j].Y
		}
		if cnt := nextEnd - nextStart; cnt > 0 {
			avgX /= float64(cnt)
			avgY /= float64(cnt)
		}

		start := int(math.Floor(float64(i)*every)) + 1
		end := int(math.Floor(float64(i+1)*every)) + 1
		pa := points[a]
		best, bestArea := start, -1.0
		for j := start; j < end; j++ {
			area := math.Abs((pa.X-avgX)*(points[j].Y-pa.Y) - (pa.X-points[j].X)*(avgY-pa.Y))
			if area > bestArea {
				best, bestArea = j, area
			}
		}
		out = append(out, points[best])
		a = best
	}

	return append(out, points[n-1])
}
