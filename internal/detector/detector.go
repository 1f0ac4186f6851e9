package detector

import "gocv.io/x/gocv"

// Detector finds hands in a camera frame.
type Detector interface {
	// Detect returns the hands found in frame, or an empty slice.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds the options passed to the landmark service.
type Config struct {
	MaxHands               int
	MinDetectionConfidence float64
	MinTrackingConfidence  float64

	// ScriptPath overrides the service script lookup.
	ScriptPath string
	// PythonPath overrides the interpreter lookup.
	PythonPath string
}

// DefaultConfig returns a Config for single-hand control.
func DefaultConfig() Config {
	return Config{
		MaxHands:               1,
		MinDetectionConfidence: 0.7,
		MinTrackingConfidence:  0.5,
	}
}
