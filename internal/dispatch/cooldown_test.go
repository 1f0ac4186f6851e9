package dispatch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/action"
)

func TestCooldown_TryAcquire(t *testing.T) {
	c := NewCooldown(time.Second, map[action.Kind]time.Duration{action.MoveCursor: 0, action.Screenshot: 3 * time.Second})
	t0 := time.Unix(1000, 0)

	if !c.TryAcquire(action.LeftClick, t0) {
		t.Fatal("expected the first fire to pass")
	}
	if c.TryAcquire(action.LeftClick, t0.Add(999*time.Millisecond)) {
		t.Error("expected a fire inside the interval to be blocked")
	}
	if !c.TryAcquire(action.LeftClick, t0.Add(time.Second)) {
		t.Error("expected a fire at the interval boundary to pass")
	}

	// Kinds are independent.
	if !c.TryAcquire(action.RightClick, t0) {
		t.Error("expected a different kind to pass")
	}

	for i := 0; i < 3; i++ {
		if !c.TryAcquire(action.MoveCursor, t0) {
			t.Error("expected a zero interval to never block")
		}
	}

	c.TryAcquire(action.Screenshot, t0)
	if c.TryAcquire(action.Screenshot, t0.Add(2*time.Second)) {
		t.Error("expected the override interval to apply")
	}
}

func TestCooldown_Remaining(t *testing.T) {
	c := NewCooldown(time.Second, nil)
	t0 := time.Unix(1000, 0)

	if r := c.Remaining(action.Mute, t0); r != 0 {
		t.Errorf("expected nothing remaining before the first fire, got %s", r)
	}

	c.TryAcquire(action.Mute, t0)
	if r := c.Remaining(action.Mute, t0.Add(300*time.Millisecond)); r != 700*time.Millisecond {
		t.Errorf("expected 700ms remaining, got %s", r)
	}
	if r := c.Remaining(action.Mute, t0.Add(5*time.Second)); r != 0 {
		t.Errorf("expected 0 after expiry, got %s", r)
	}
}

func TestCooldown_ConcurrentAcquire(t *testing.T) {
	c := NewCooldown(time.Minute, nil)
	now := time.Unix(1000, 0)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TryAcquire(action.VolumeUp, now) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one winner, got %d", wins.Load())
	}
}
