package speech

import (
	"context"
	"sync"
	"time"
)

// ScriptedSource is a Source fed by the test: queued wake events and phrases
// are handed out in order.
type ScriptedSource struct {
	mu      sync.Mutex
	wakes   []WakeEvent
	phrases []*Phrase
	listens []time.Duration
	closed  bool
	ready   chan struct{}
}

// NewScriptedSource creates an empty ScriptedSource.
func NewScriptedSource() *ScriptedSource {
	return &ScriptedSource{ready: make(chan struct{}, 1)}
}

// PushWake queues a wake event.
func (s *ScriptedSource) PushWake(ev WakeEvent) {
	s.mu.Lock()
	s.wakes = append(s.wakes, ev)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// PushPhrase queues a phrase. An empty text queues a listen that hears nothing.
func (s *ScriptedSource) PushPhrase(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == "" {
		s.phrases = append(s.phrases, nil)
		return
	}
	s.phrases = append(s.phrases, &Phrase{Text: text, Timestamp: time.Now()})
}

// Listens returns the timeouts ListenForPhrase was called with.
func (s *ScriptedSource) Listens() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.listens...)
}

// Closed reports whether Close was called.
func (s *ScriptedSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *ScriptedSource) WaitForWakeWord(ctx context.Context) (WakeEvent, error) {
	for {
		s.mu.Lock()
		if len(s.wakes) > 0 {
			ev := s.wakes[0]
			s.wakes = s.wakes[1:]
			s.mu.Unlock()
			if ev.Timestamp.IsZero() {
				ev.Timestamp = time.Now()
			}
			return ev, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return WakeEvent{}, ctx.Err()
		case <-s.ready:
		}
	}
}

func (s *ScriptedSource) ListenForPhrase(ctx context.Context, timeout time.Duration) (*Phrase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.listens = append(s.listens, timeout)
	if len(s.phrases) > 0 {
		p := s.phrases[0]
		s.phrases = s.phrases[1:]
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()

	// Nothing queued: behave like a quiet room.
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}

func (s *ScriptedSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
