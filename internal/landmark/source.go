// Package landmark produces per-frame hand landmarks for the gesture loop.
package landmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

// Source yields the primary hand of each frame. A nil frame with a nil error
// means no hand this tick.
type Source interface {
	NextFrame(ctx context.Context) (*detector.LandmarkFrame, error)
	// Interval is how often the caller should ask for a frame.
	Interval() time.Duration
	Close() error
}

// Config controls the idle/active frame rates.
type Config struct {
	FPSIdle     int
	FPSActive   int
	IdleTimeout time.Duration
}

// CameraSource reads the camera at a low rate until motion appears, then
// switches to the active rate and runs hand detection on every frame. It
// returns to idle after IdleTimeout without motion or hands.
type CameraSource struct {
	camera   capture.Camera
	motion   *capture.MotionDetector
	detector detector.Detector
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	active     bool
	lastMotion time.Time
}

// Option configures a CameraSource.
type Option func(*CameraSource)

// WithLogger sets the source's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *CameraSource) { s.logger = logger }
}

// WithClock sets the time source for idle timing.
func WithClock(now func() time.Time) Option {
	return func(s *CameraSource) { s.now = now }
}

// NewCameraSource wires a camera, a motion detector and a hand detector.
func NewCameraSource(camera capture.Camera, motion *capture.MotionDetector, det detector.Detector, cfg Config, opts ...Option) *CameraSource {
	if cfg.FPSIdle <= 0 {
		cfg.FPSIdle = 5
	}
	if cfg.FPSActive < cfg.FPSIdle {
		cfg.FPSActive = cfg.FPSIdle
	}
	s := &CameraSource{
		camera:   camera,
		motion:   motion,
		detector: det,
		cfg:      cfg,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the camera at the idle rate.
func (s *CameraSource) Open() error {
	if err := s.camera.Open(); err != nil {
		return err
	}
	s.camera.SetFPS(s.cfg.FPSIdle)
	return nil
}

func (s *CameraSource) NextFrame(ctx context.Context) (*detector.LandmarkFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := s.camera.ReadFrame()
	if errors.Is(err, capture.ErrEmptyFrame) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	stamp := s.now()
	moved, _ := s.motion.Detect(mat)
	if moved {
		s.markActive(stamp)
	}
	if !s.checkActive(stamp) {
		return nil, nil
	}

	hands, err := s.detector.Detect(mat)
	if err != nil {
		return nil, fmt.Errorf("detect hands: %w", err)
	}
	hand := detector.Primary(hands)
	if hand == nil {
		return nil, nil
	}

	// A held pose barely moves; a visible hand keeps the camera active.
	s.markActive(stamp)
	return &detector.LandmarkFrame{Hand: *hand, Timestamp: stamp}, nil
}

func (s *CameraSource) markActive(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastMotion = now
	if !s.active {
		s.active = true
		s.camera.SetFPS(s.cfg.FPSActive)
		s.logger.Debug("camera active", "fps", s.cfg.FPSActive)
	}
}

func (s *CameraSource) checkActive(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active && now.Sub(s.lastMotion) > s.cfg.IdleTimeout {
		s.active = false
		s.camera.SetFPS(s.cfg.FPSIdle)
		s.logger.Debug("camera idle", "fps", s.cfg.FPSIdle)
	}
	return s.active
}

// Active reports whether the source is at the active frame rate.
func (s *CameraSource) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *CameraSource) Interval() time.Duration {
	fps := s.cfg.FPSIdle
	if s.Active() {
		fps = s.cfg.FPSActive
	}
	return time.Second / time.Duration(fps)
}

// Close releases the camera, the motion baseline and the detector.
func (s *CameraSource) Close() error {
	return errors.Join(s.camera.Close(), s.motion.Close(), s.detector.Close())
}
