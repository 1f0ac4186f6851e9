package gesture

import (
	"math"
	"time"
)

// PathBufferSize caps the fingertip history kept for motion matching.
const PathBufferSize = 60

// minPathPoints is the shortest history worth comparing against a template.
const minPathPoints = 10

// PathBuffer is a bounded fingertip trail.
type PathBuffer struct {
	points []PathPoint
}

// NewPathBuffer creates an empty trail.
func NewPathBuffer() *PathBuffer {
	return &PathBuffer{points: make([]PathPoint, 0, PathBufferSize)}
}

// Add appends a point, dropping the oldest once the buffer is full.
func (b *PathBuffer) Add(x, y float64, ts time.Time) {
	if len(b.points) == PathBufferSize {
		copy(b.points, b.points[1:])
		b.points = b.points[:PathBufferSize-1]
	}
	b.points = append(b.points, PathPoint{X: x, Y: y, Timestamp: ts.UnixMilli()})
}

// Points returns a copy of the trail, oldest first.
func (b *PathBuffer) Points() []PathPoint {
	out := make([]PathPoint, len(b.points))
	copy(out, b.points)
	return out
}

// Len returns the number of points held.
func (b *PathBuffer) Len() int {
	return len(b.points)
}

// Clear empties the trail.
func (b *PathBuffer) Clear() {
	b.points = b.points[:0]
}

// Since returns the points no older than window before the newest point.
func (b *PathBuffer) Since(window time.Duration) []PathPoint {
	if len(b.points) == 0 {
		return nil
	}
	cutoff := b.points[len(b.points)-1].Timestamp - window.Milliseconds()
	start := len(b.points) - 1
	for start > 0 && b.points[start-1].Timestamp >= cutoff {
		start--
	}
	return b.points[start:]
}

// DetectSwipe looks for a straight, fast stroke in the recent trail. The stroke
// must cover at least distance (screen fraction) and its dominant axis must be
// at least twice the other.
func DetectSwipe(recent []PathPoint, distance float64) (string, float64, bool) {
	if len(recent) < 2 {
		return "", 0, false
	}
	first, last := recent[0], recent[len(recent)-1]
	dx := last.X - first.X
	dy := last.Y - first.Y
	ax, ay := math.Abs(dx), math.Abs(dy)

	var label string
	var travel float64
	switch {
	case ax >= distance && ax >= 2*ay:
		travel = ax
		label = LabelSwipeRight
		if dx < 0 {
			label = LabelSwipeLeft
		}
	case ay >= distance && ay >= 2*ax:
		travel = ay
		label = LabelSwipeDown // y grows downward
		if dy < 0 {
			label = LabelSwipeUp
		}
	default:
		return "", 0, false
	}

	// Confidence rises from 0.5 at the threshold toward 1 at twice the distance.
	conf := math.Min(1, 0.5+0.5*(travel-distance)/distance)
	return label, conf, true
}
