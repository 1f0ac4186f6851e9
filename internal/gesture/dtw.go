package gesture

import (
	"math"
)

// DTWDistance is the dynamic time warping distance between two paths divided
// by the longer path length. Either path empty gives +Inf.
func DTWDistance(a, b []PathPoint) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	// Two rolling rows of the (n+1)x(m+1) cost matrix.
	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := 1; j <= m; j++ {
		prev[j] = math.Inf(1)
	}

	for i := 1; i <= n; i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			cost := pathDistance(a[i-1], b[j-1])
			curr[j] = cost + min(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}

	return prev[m] / float64(max(n, m))
}

func pathDistance(a, b PathPoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// normalizePath moves the first point to the origin and divides by the larger
// of the x and y extents. Scaling both axes by the same factor keeps the
// direction of travel, so a horizontal swipe stays horizontal.
func normalizePath(path []PathPoint) []PathPoint {
	if len(path) == 0 {
		return nil
	}

	minX, maxX := path[0].X, path[0].X
	minY, maxY := path[0].Y, path[0].Y
	for _, p := range path[1:] {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	extent := max(maxX-minX, maxY-minY)
	origin := path[0]

	out := make([]PathPoint, len(path))
	for i, p := range path {
		out[i] = PathPoint{Timestamp: p.Timestamp}
		if extent > 0 {
			out[i].X = (p.X - origin.X) / extent
			out[i].Y = (p.Y - origin.Y) / extent
		}
	}
	return out
}
