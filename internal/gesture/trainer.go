package gesture

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
)

// Default tolerances for freshly trained templates.
const (
	DefaultStaticTolerance  = 0.35
	DefaultDynamicTolerance = 0.25
	trainedPathLength       = 32
)

// ErrNoSamples is returned when training is asked to work on nothing.
var ErrNoSamples = errors.New("no samples provided")

// StaticSample is a recorded pose: raw landmarks as produced by the detector.
type StaticSample struct {
	Landmarks []detector.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp,omitempty"`
}

// DynamicSample is a recorded fingertip path.
type DynamicSample struct {
	Path      []PathPoint `json:"path"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// Trainer turns recorded samples into templates.
type Trainer struct{}

// NewTrainer creates a new Trainer instance.
func NewTrainer() *Trainer {
	return &Trainer{}
}

// Train builds a template of the given type from JSON samples.
func (t *Trainer) Train(id, name string, typ Type, samples []json.RawMessage) (*Template, error) {
	tmpl := &Template{ID: id, Name: name, Type: typ}
	switch typ {
	case TypeStatic:
		landmarks, err := t.TrainStatic(samples)
		if err != nil {
			return nil, err
		}
		tmpl.Landmarks = landmarks
		tmpl.Tolerance = DefaultStaticTolerance
	case TypeDynamic:
		path, err := t.TrainDynamic(samples)
		if err != nil {
			return nil, err
		}
		tmpl.Path = path
		tmpl.Tolerance = DefaultDynamicTolerance
	default:
		return nil, fmt.Errorf("unknown gesture type %q", typ)
	}
	return tmpl, nil
}

// TrainStatic normalizes every sample and averages them point by point.
// Samples must carry all 21 landmarks.
func (t *Trainer) TrainStatic(samples []json.RawMessage) ([]detector.Point3D, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	var sum [detector.NumLandmarks]detector.Point3D
	for i, raw := range samples {
		var s StaticSample
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse sample %d: %w", i, err)
		}
		if len(s.Landmarks) != detector.NumLandmarks {
			return nil, fmt.Errorf("sample %d has %d landmarks, expected %d", i, len(s.Landmarks), detector.NumLandmarks)
		}

		var hand detector.HandLandmarks
		copy(hand.Points[:], s.Landmarks)
		norm := hand.Normalize()
		for j, p := range norm.Points {
			sum[j].X += p.X
			sum[j].Y += p.Y
			sum[j].Z += p.Z
		}
	}

	n := float64(len(samples))
	out := make([]detector.Point3D, detector.NumLandmarks)
	for j := range sum {
		out[j] = detector.Point3D{X: sum[j].X / n, Y: sum[j].Y / n, Z: sum[j].Z / n}
	}
	return out, nil
}

// TrainDynamic resamples every path to a fixed length, normalizes it and
// averages the result.
func (t *Trainer) TrainDynamic(samples []json.RawMessage) ([]PathPoint, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	sum := make([]PathPoint, trainedPathLength)
	for i, raw := range samples {
		var s DynamicSample
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse sample %d: %w", i, err)
		}
		if len(s.Path) < 2 {
			return nil, fmt.Errorf("sample %d has %d path points, need at least 2", i, len(s.Path))
		}

		path := normalizePath(resamplePath(s.Path, trainedPathLength))
		for j, p := range path {
			sum[j].X += p.X
			sum[j].Y += p.Y
			sum[j].Timestamp += p.Timestamp - path[0].Timestamp
		}
	}

	n := float64(len(samples))
	for j := range sum {
		sum[j].X /= n
		sum[j].Y /= n
		sum[j].Timestamp /= int64(len(samples))
	}
	return sum, nil
}

// resamplePath linearly interpolates path to exactly n points.
func resamplePath(path []PathPoint, n int) []PathPoint {
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 || n <= 1 {
		return []PathPoint{path[0]}
	}

	out := make([]PathPoint, n)
	last := len(path) - 1
	for i := 0; i < n; i++ {
		pos := float64(i) * float64(last) / float64(n-1)
		idx := min(int(pos), last-1)
		frac := pos - float64(idx)

		a, b := path[idx], path[idx+1]
		out[i] = PathPoint{
			X:         a.X + frac*(b.X-a.X),
			Y:         a.Y + frac*(b.Y-a.Y),
			Timestamp: a.Timestamp + int64(frac*float64(b.Timestamp-a.Timestamp)),
		}
	}
	return out
}
