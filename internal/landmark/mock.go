package landmark

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// MockSource replays queued frames. A nil entry, or an empty queue, means no
// hand for that tick.
type MockSource struct {
	mu       sync.Mutex
	frames   []*detector.LandmarkFrame
	interval time.Duration
	calls    int
	closed   bool
}

// NewMockSource creates a MockSource ticking at interval.
func NewMockSource(interval time.Duration) *MockSource {
	return &MockSource{interval: interval}
}

// Push queues frames.
func (m *MockSource) Push(frames ...*detector.LandmarkFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frames...)
}

// PushHand queues hand with the given timestamp.
func (m *MockSource) PushHand(hand detector.HandLandmarks, ts time.Time) {
	m.Push(&detector.LandmarkFrame{Hand: hand, Timestamp: ts})
}

// Pending returns how many frames are still queued.
func (m *MockSource) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// Calls returns how many times NextFrame was called.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSource) NextFrame(ctx context.Context) (*detector.LandmarkFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.frames) == 0 {
		return nil, nil
	}
	f := m.frames[0]
	m.frames = m.frames[1:]
	return f, nil
}

func (m *MockSource) Interval() time.Duration {
	return m.interval
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
