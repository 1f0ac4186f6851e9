package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
)

type recordingExecutor struct {
	mu      sync.Mutex
	reqs    []action.Request
	ctxErrs []error
	err     error
	started chan struct{}
	block   chan struct{}
}

func (r *recordingExecutor) Execute(ctx context.Context, req action.Request) error {
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return r.err
}

func (r *recordingExecutor) requests() []action.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]action.Request, len(r.reqs))
	copy(out, r.reqs)
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	d       *Dispatcher
	exec    *recordingExecutor
	clock   *fakeClock
	records []Record
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mapping, err := action.NewMapping(
		map[string]string{
			"two_fingers": "left_click",
			"point":       "move_cursor",
			"pinch":       "drag",
			"open_palm":   "noop",
			"fist":        "close_window",
		},
		map[string]string{
			"click":        "left_click",
			"double click": "double_click",
			"volume up":    "volume_up",
			"never mind":   "noop",
		},
	)
	if err != nil {
		t.Fatalf("NewMapping() failed: %v", err)
	}

	h := &harness{
		exec:  &recordingExecutor{},
		clock: &fakeClock{now: time.Unix(1700000000, 0)},
	}
	cooldown := NewCooldown(time.Second, map[action.Kind]time.Duration{action.MoveCursor: 0, action.Drag: 0})
	h.d = New(mapping, h.exec, cooldown,
		WithClock(h.clock.Now),
		WithLogger(logging.Discard()),
		WithObserver(func(r Record) { h.records = append(h.records, r) }),
	)
	return h
}

func event(label string) gesture.Event {
	return gesture.Event{Label: label, Confidence: 0.9, Position: action.Position{X: 0.4, Y: 0.6}}
}

func TestDispatcher_GestureCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.d.DispatchGesture(ctx, event("two_fingers"))
	if !res.Fired() || res.Kind != action.LeftClick {
		t.Fatalf("expected left_click to fire, got %+v", res)
	}

	h.clock.Advance(500 * time.Millisecond)
	if res := h.d.DispatchGesture(ctx, event("two_fingers")); res.Outcome != OutcomeCooldown || res.Remaining != 500*time.Millisecond {
		t.Fatalf("expected cooldown with 500ms remaining, got %+v", res)
	}

	h.clock.Advance(500 * time.Millisecond)
	if res := h.d.DispatchGesture(ctx, event("two_fingers")); !res.Fired() {
		t.Fatalf("expected fire after the interval, got %+v", res)
	}

	reqs := h.exec.requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(reqs))
	}
	if reqs[0].Source != action.SourceGesture || reqs[0].Trigger != "two_fingers" {
		t.Errorf("unexpected request %+v", reqs[0])
	}
	if reqs[0].Position == nil || reqs[0].Position.X != 0.4 {
		t.Errorf("expected the gesture position to be forwarded, got %+v", reqs[0].Position)
	}

	stats := h.d.Stats()
	if stats.Fired != 2 || stats.Cooldown != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if len(h.records) != 2 || h.records[0].ID == "" || h.records[0].ID == h.records[1].ID {
		t.Errorf("expected two records with distinct ids, got %+v", h.records)
	}
}

func TestDispatcher_CooldownSharedAcrossModalities(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if res := h.d.DispatchGesture(ctx, event("two_fingers")); !res.Fired() {
		t.Fatalf("expected gesture click to fire, got %+v", res)
	}
	if res := h.d.DispatchPhrase(ctx, "click"); res.Outcome != OutcomeCooldown {
		t.Fatalf("expected voice click to hit the shared cooldown, got %+v", res)
	}
}

func TestDispatcher_Phrase(t *testing.T) {
	tests := []struct {
		text        string
		wantOutcome Outcome
		wantKind    action.Kind
		wantTrigger string
	}{
		{"double click", OutcomeFired, action.DoubleClick, "double click"},
		{"please volume up a bit", OutcomeFired, action.VolumeUp, "volume up"},
		{"Click!", OutcomeFired, action.LeftClick, "click"},
		{"never mind", OutcomeIgnored, action.Noop, "never mind"},
		{"what time is it", OutcomeUnmapped, "", "what time is it"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			h := newHarness(t)
			res := h.d.DispatchPhrase(context.Background(), tt.text)
			if res.Outcome != tt.wantOutcome || res.Kind != tt.wantKind || res.Trigger != tt.wantTrigger {
				t.Fatalf("got %+v, want (%s, %s, %q)", res, tt.wantOutcome, tt.wantKind, tt.wantTrigger)
			}
			if tt.wantOutcome == OutcomeFired {
				reqs := h.exec.requests()
				if len(reqs) != 1 || reqs[0].Source != action.SourceVoice || reqs[0].Position != nil {
					t.Errorf("unexpected voice request %+v", reqs)
				}
			}
		})
	}
}

func TestDispatcher_UnmappedAndNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if res := h.d.DispatchGesture(ctx, event("thumbs_up")); res.Outcome != OutcomeUnmapped {
		t.Errorf("expected unmapped, got %+v", res)
	}
	if res := h.d.DispatchGesture(ctx, event("open_palm")); res.Outcome != OutcomeIgnored {
		t.Errorf("expected noop to be ignored, got %+v", res)
	}
	if len(h.exec.requests()) != 0 {
		t.Error("expected nothing executed")
	}
	if h.d.Stats().Unmapped != 1 {
		t.Errorf("expected one unmapped, got %+v", h.d.Stats())
	}
}

func TestDispatcher_Failure(t *testing.T) {
	h := newHarness(t)
	h.exec.err = errors.New("window manager unavailable")

	res := h.d.DispatchGesture(context.Background(), event("fist"))
	if res.Outcome != OutcomeFailed || res.Err == nil {
		t.Fatalf("expected failure, got %+v", res)
	}
	if len(h.records) != 1 || h.records[0].Outcome != OutcomeFailed || h.records[0].Error != "window manager unavailable" {
		t.Errorf("expected a failed record, got %+v", h.records)
	}

	// Failures are not retried and still consume the cooldown.
	h.exec.err = nil
	if res := h.d.DispatchGesture(context.Background(), event("fist")); res.Outcome != OutcomeCooldown {
		t.Errorf("expected cooldown after a failed attempt, got %+v", res)
	}
	if h.d.Stats().Failed != 1 {
		t.Errorf("unexpected stats %+v", h.d.Stats())
	}
}

func TestDispatcher_ContinuousCursor(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		if res := h.d.DispatchGesture(context.Background(), event("point")); !res.Fired() {
			t.Fatalf("frame %d: expected move to fire, got %+v", i, res)
		}
	}
	if len(h.exec.requests()) != 5 {
		t.Errorf("expected 5 moves, got %d", len(h.exec.requests()))
	}
	if len(h.records) != 0 {
		t.Errorf("expected cursor moves to stay out of the record feed, got %d", len(h.records))
	}
}

func TestDispatcher_DragRelease(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h.d.DispatchGesture(ctx, event("pinch"))
	}
	if !h.d.Dragging() {
		t.Fatal("expected drag to be active")
	}

	release := event("pinch")
	release.Released = true
	if res := h.d.DispatchGesture(ctx, release); !res.Fired() {
		t.Fatalf("expected the release to fire, got %+v", res)
	}
	if res := h.d.DispatchGesture(ctx, release); res.Outcome != OutcomeIgnored {
		t.Errorf("expected a second release to be ignored, got %+v", res)
	}
	if h.d.Dragging() {
		t.Error("expected drag to be released")
	}

	reqs := h.exec.requests()
	if len(reqs) != 4 || !reqs[3].Release || reqs[3].Kind != action.Drag {
		t.Fatalf("expected 3 drag frames then one release, got %+v", reqs)
	}
	if len(h.records) != 2 {
		t.Errorf("expected records for drag start and release, got %d", len(h.records))
	}

	// Releases of non-drag gestures do nothing.
	fist := event("fist")
	fist.Released = true
	if res := h.d.DispatchGesture(ctx, fist); res.Outcome != OutcomeIgnored {
		t.Errorf("expected fist release to be ignored, got %+v", res)
	}
}

func TestDispatcher_ExecutesDespiteCancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if res := h.d.DispatchPhrase(ctx, "volume up"); !res.Fired() {
		t.Fatalf("expected fire, got %+v", res)
	}
	if err := h.exec.ctxErrs[0]; err != nil {
		t.Errorf("expected executor context to survive cancellation, got %v", err)
	}
}

func TestDispatcher_Close(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.DispatchGesture(ctx, event("pinch"))

	h.exec.started = make(chan struct{}, 1)
	h.exec.block = make(chan struct{})

	done := make(chan Result)
	go func() { done <- h.d.DispatchPhrase(ctx, "volume up") }()
	<-h.exec.started

	closed := make(chan error)
	go func() { closed <- h.d.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while an action was running")
	case <-time.After(50 * time.Millisecond):
	}

	h.exec.started = nil
	close(h.exec.block)
	if res := <-done; !res.Fired() {
		t.Errorf("expected the in-flight action to finish, got %+v", res)
	}
	if err := <-closed; err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reqs := h.exec.requests()
	last := reqs[len(reqs)-1]
	if last.Kind != action.Drag || !last.Release {
		t.Errorf("expected Close to release the held drag, got %+v", last)
	}

	res := h.d.DispatchGesture(ctx, event("two_fingers"))
	if res.Outcome != OutcomeClosed || !errors.Is(res.Err, ErrDispatcherClosed) {
		t.Errorf("expected closed, got %+v", res)
	}
	if err := h.d.Close(); err != nil {
		t.Errorf("expected second Close to be a no-op, got %v", err)
	}
}
