package gesture

import (
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/detector"
)

// Config tunes the interpreter.
type Config struct {
	SmoothingFactor   float64 // EMA weight of the newest cursor sample
	SmoothingWindow   int     // majority vote window, in frames
	MinConfidence     float64 // minimum template score that beats the heuristics
	Pose              PoseConfig
	CursorSensitivity float64 // gain around the frame centre
	SwipeDistance     float64
	SwipeWindow       time.Duration
	Mirror            bool
}

// DefaultConfig mirrors the config package defaults.
func DefaultConfig() Config {
	return Config{
		SmoothingFactor:   0.35,
		SmoothingWindow:   5,
		MinConfidence:     0.8,
		Pose:              PoseConfig{ExtensionRatio: 1.3, PinchThreshold: 0.25},
		CursorSensitivity: 1.5,
		SwipeDistance:     0.25,
		SwipeWindow:       600 * time.Millisecond,
		Mirror:            true,
	}
}

// Event is a recognized gesture.
type Event struct {
	Label      string
	Confidence float64
	Position   action.Position // smoothed pointer in screen space
	Timestamp  time.Time
	// Released marks the end of a held gesture: the hand was lost or changed pose.
	Released bool
}

// Interpreter turns a stream of landmark frames into gesture events. It keeps
// per-stream smoothing state and must be driven from a single goroutine.
type Interpreter struct {
	cfg       Config
	templates *TemplateSet
	cursor    *EMA
	votes     *LabelVote
	path      *PathBuffer

	stable  string
	lastPos action.Position
}

// NewInterpreter creates an interpreter. templates may be nil.
func NewInterpreter(cfg Config, templates *TemplateSet) *Interpreter {
	if templates == nil {
		templates = NewTemplateSet()
	}
	return &Interpreter{
		cfg:       cfg,
		templates: templates,
		cursor:    NewEMA(cfg.SmoothingFactor),
		votes:     NewLabelVote(cfg.SmoothingWindow),
		path:      NewPathBuffer(),
	}
}

// Label returns the current stable label, or "" when none.
func (in *Interpreter) Label() string {
	return in.stable
}

// Interpret consumes one frame. A nil frame means no hand was seen.
//
// Pose labels go through the majority vote and are reported on every frame
// while they hold; a change of stable label first emits a release for the old
// one. Motion labels are reported once and clear the trail.
func (in *Interpreter) Interpret(frame *detector.LandmarkFrame) []Event {
	if frame == nil {
		return in.lost()
	}

	hand := &frame.Hand
	ts := frame.Timestamp

	sx, sy := in.screen(in.pointer(hand))
	in.path.Add(sx, sy, ts)
	cx, cy := in.cursor.Update(sx, sy)
	pos := action.Position{X: cx, Y: cy}
	in.lastPos = pos

	raw, rawConf := in.classify(hand)

	if label, conf, ok := in.motion(raw); ok {
		in.path.Clear()
		return []Event{{Label: label, Confidence: conf, Position: pos, Timestamp: ts}}
	}

	winner, share, ok := in.votes.Push(raw)
	if !ok {
		return nil
	}

	var events []Event
	if in.stable != "" && winner != in.stable {
		events = append(events, Event{Label: in.stable, Position: pos, Timestamp: ts, Released: true})
	}
	in.stable = winner
	if winner == "" {
		return events
	}

	conf := share
	if raw == winner {
		conf = share * rawConf
	}
	return append(events, Event{Label: winner, Confidence: conf, Position: pos, Timestamp: ts})
}

// Reset drops all smoothing state without emitting anything.
func (in *Interpreter) Reset() {
	in.cursor.Reset()
	in.votes.Reset()
	in.path.Clear()
	in.stable = ""
}

func (in *Interpreter) lost() []Event {
	var events []Event
	if in.stable != "" {
		events = append(events, Event{
			Label:     in.stable,
			Position:  in.lastPos,
			Timestamp: time.Now(),
			Released:  true,
		})
	}
	in.Reset()
	return events
}

// classify prefers a confident static template over the heuristics.
func (in *Interpreter) classify(hand *detector.HandLandmarks) (string, float64) {
	if matches := in.templates.MatchStatic(hand); len(matches) > 0 && matches[0].Score >= in.cfg.MinConfidence {
		return matches[0].Template.Name, matches[0].Score
	}
	label := ClassifyPose(hand, in.cfg.Pose)
	if label == "" {
		return "", 0
	}
	conf := hand.Score
	if conf <= 0 {
		conf = 1
	}
	return label, conf
}

// motion checks the trail for a trained motion first, then for a swipe. Swipes
// are only taken from an open hand so that pointing around the screen does not
// trigger them.
func (in *Interpreter) motion(raw string) (string, float64, bool) {
	if in.path.Len() >= minPathPoints && in.templates.HasDynamic() {
		if matches := in.templates.MatchPath(in.path.Points()); len(matches) > 0 && matches[0].Score >= in.cfg.MinConfidence {
			return matches[0].Template.Name, matches[0].Score, true
		}
	}
	if raw != LabelOpenPalm && raw != LabelFourFingers {
		return "", 0, false
	}
	return DetectSwipe(in.path.Since(in.cfg.SwipeWindow), in.cfg.SwipeDistance)
}

// screen maps an image point into screen space: optional mirror, gain around
// the centre, clamp to [0, 1].
func (in *Interpreter) screen(x, y float64) (float64, float64) {
	if in.cfg.Mirror {
		x = 1 - x
	}
	gain := in.cfg.CursorSensitivity
	if gain <= 0 {
		gain = 1
	}
	x = clamp01(0.5 + (x-0.5)*gain)
	y = clamp01(0.5 + (y-0.5)*gain)
	return x, y
}

// pointer is the index fingertip, or the midpoint between thumb and index tips
// while pinching so the drag target does not jump when the fingers close.
func (in *Interpreter) pointer(h *detector.HandLandmarks) (float64, float64) {
	tip := h.Points[detector.IndexTip]
	if PinchDistance(h) < 2*in.cfg.Pose.PinchThreshold {
		th := h.Points[detector.ThumbTip]
		return (tip.X + th.X) / 2, (tip.Y + th.Y) / 2
	}
	return tip.X, tip.Y
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
