package gesture

import (
	"github.com/ayusman/mudra/internal/detector"
)

// PoseConfig holds the geometric thresholds of the heuristic classifier.
type PoseConfig struct {
	// ExtensionRatio: a finger counts as extended when the wrist to tip distance
	// exceeds the wrist to PIP distance by this factor.
	ExtensionRatio float64
	// PinchThreshold is the thumb tip to index tip distance, in hand-size units,
	// below which the hand is pinching.
	PinchThreshold float64
}

// Fingers records which fingers are extended, thumb first.
type Fingers [5]bool

const (
	thumb = iota
	index
	middle
	ring
	pinky
)

// Count returns the number of extended fingers, excluding the thumb.
func (f Fingers) Count() int {
	n := 0
	for _, up := range f[index:] {
		if up {
			n++
		}
	}
	return n
}

var fingerJoints = [...]struct{ mcp, pip, tip int }{
	index:  {detector.IndexMCP, detector.IndexPIP, detector.IndexTip},
	middle: {detector.MiddleMCP, detector.MiddlePIP, detector.MiddleTip},
	ring:   {detector.RingMCP, detector.RingPIP, detector.RingTip},
	pinky:  {detector.PinkyMCP, detector.PinkyPIP, detector.PinkyTip},
}

// ExtendedFingers measures which fingers are straight.
//
// The thumb folds sideways rather than toward the wrist, so it is judged by how
// far its tip sits from the index knuckle compared to its own MCP joint.
func ExtendedFingers(h *detector.HandLandmarks, ratio float64) Fingers {
	var f Fingers
	wrist := h.Points[detector.Wrist]
	for i := index; i <= pinky; i++ {
		j := fingerJoints[i]
		tip := detector.Distance2D(wrist, h.Points[j.tip])
		pip := detector.Distance2D(wrist, h.Points[j.pip])
		f[i] = tip > pip*ratio
	}

	knuckle := h.Points[detector.IndexMCP]
	tip := detector.Distance2D(knuckle, h.Points[detector.ThumbTip])
	base := detector.Distance2D(knuckle, h.Points[detector.ThumbMCP])
	f[thumb] = tip > base*ratio
	return f
}

// PinchDistance is the thumb to index tip gap in hand-size units.
func PinchDistance(h *detector.HandLandmarks) float64 {
	scale := h.Scale()
	if scale < 1e-9 {
		return 0
	}
	return detector.Distance2D(h.Points[detector.ThumbTip], h.Points[detector.IndexTip]) / scale
}

// ClassifyPose applies the heuristics in priority order: pinch, thumbs up,
// fist, then finger count. Returns "" when the pose is none of these.
func ClassifyPose(h *detector.HandLandmarks, cfg PoseConfig) string {
	if h == nil {
		return ""
	}
	if PinchDistance(h) < cfg.PinchThreshold {
		return LabelPinch
	}

	f := ExtendedFingers(h, cfg.ExtensionRatio)
	switch f.Count() {
	case 0:
		if !f[thumb] {
			return LabelFist
		}
		if h.Points[detector.ThumbTip].Y < h.Points[detector.IndexMCP].Y {
			return LabelThumbsUp
		}
		return ""
	case 1:
		if f[index] {
			return LabelPoint
		}
		return ""
	case 2:
		if f[index] && f[middle] {
			return LabelTwoFingers
		}
		return ""
	case 3:
		if f[index] && f[middle] && f[ring] {
			return LabelThreeFingers
		}
		return ""
	default:
		if f[thumb] {
			return LabelOpenPalm
		}
		return LabelFourFingers
	}
}
