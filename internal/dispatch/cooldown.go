package dispatch

import (
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/action"
)

// Cooldown tracks when each action kind last fired. The check and the stamp
// happen under one lock so two loops cannot both pass for the same kind.
type Cooldown struct {
	def       time.Duration
	overrides map[action.Kind]time.Duration

	mu   sync.Mutex
	last map[action.Kind]time.Time
}

// NewCooldown creates a Cooldown with a default interval and per-kind overrides.
func NewCooldown(def time.Duration, overrides map[action.Kind]time.Duration) *Cooldown {
	o := make(map[action.Kind]time.Duration, len(overrides))
	for k, v := range overrides {
		o[k] = v
	}
	return &Cooldown{def: def, overrides: o, last: make(map[action.Kind]time.Time)}
}

// Interval returns the cooldown for kind.
func (c *Cooldown) Interval(kind action.Kind) time.Duration {
	if d, ok := c.overrides[kind]; ok {
		return d
	}
	return c.def
}

// TryAcquire stamps kind as fired at now and returns true, unless kind fired
// less than its interval ago.
func (c *Cooldown) TryAcquire(kind action.Kind, now time.Time) bool {
	interval := c.Interval(kind)

	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.last[kind]; ok && interval > 0 && now.Sub(last) < interval {
		return false
	}
	c.last[kind] = now
	return true
}

// Remaining returns how long kind stays blocked after now.
func (c *Cooldown) Remaining(kind action.Kind, now time.Time) time.Duration {
	interval := c.Interval(kind)

	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.last[kind]
	if !ok {
		return 0
	}
	return max(0, interval-now.Sub(last))
}
