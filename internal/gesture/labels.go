// Package gesture turns hand landmarks into discrete gesture labels and a
// smoothed pointer position.
package gesture

// Built-in labels. Trained templates add their own names to this set.
const (
	LabelPoint        = "point"
	LabelTwoFingers   = "two_fingers"
	LabelThreeFingers = "three_fingers"
	LabelFourFingers  = "four_fingers"
	LabelOpenPalm     = "open_palm"
	LabelFist         = "fist"
	LabelThumbsUp     = "thumbs_up"
	LabelPinch        = "pinch"
	LabelSwipeLeft    = "swipe_left"
	LabelSwipeRight   = "swipe_right"
	LabelSwipeUp      = "swipe_up"
	LabelSwipeDown    = "swipe_down"
)

// BuiltinLabels lists every label the heuristics can produce.
func BuiltinLabels() []string {
	return []string{
		LabelPoint, LabelTwoFingers, LabelThreeFingers, LabelFourFingers,
		LabelOpenPalm, LabelFist, LabelThumbsUp, LabelPinch,
		LabelSwipeLeft, LabelSwipeRight, LabelSwipeUp, LabelSwipeDown,
	}
}

// IsMotion reports whether a label describes movement rather than a pose.
func IsMotion(label string) bool {
	switch label {
	case LabelSwipeLeft, LabelSwipeRight, LabelSwipeUp, LabelSwipeDown:
		return true
	}
	return false
}
