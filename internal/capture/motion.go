package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	motionWidth  = 160
	motionHeight = 120
	blurKernel   = 7
	pixelDelta   = 25
)

// MotionDetector reports whether consecutive frames differ by more than a
// fraction of their pixels. Frames are downscaled to a fixed small size
// first, so the cost does not depend on the camera resolution.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector creates a detector firing when more than threshold
// (0..1) of the pixels changed.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect compares frame with the previous one and returns whether it moved
// and the changed fraction. The first frame only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	if frame == nil || frame.Empty() {
		return false, 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(*frame, &small, image.Pt(motionWidth, motionHeight), 0, 0, gocv.InterpolationArea)

	gray := gocv.NewMat()
	defer gray.Close()
	if small.Channels() > 1 {
		gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)
	} else {
		small.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.primed {
		gray.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prev, &diff)
	gocv.Threshold(diff, &diff, pixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols())
	gray.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset drops the baseline; the next frame starts a new comparison.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
}

// Threshold returns the changed fraction that counts as motion.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
	return m.prev.Close()
}
