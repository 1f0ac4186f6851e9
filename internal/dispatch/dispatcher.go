// Package dispatch resolves gesture events and voice phrases into actions and
// runs them, at most once per cooldown interval for each action kind.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/executor"
	"github.com/ayusman/mudra/internal/gesture"
)

// ErrDispatcherClosed is returned for dispatches attempted after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Outcome is the result of one dispatch attempt.
type Outcome string

const (
	OutcomeFired    Outcome = "fired"
	OutcomeFailed   Outcome = "failed"
	OutcomeCooldown Outcome = "cooldown"
	OutcomeUnmapped Outcome = "unmapped"
	OutcomeIgnored  Outcome = "ignored"
	OutcomeClosed   Outcome = "closed"
)

// Result describes what a dispatch call did.
type Result struct {
	Outcome Outcome
	Kind    action.Kind
	Trigger string
	Err     error
	// Remaining is how long the kind stays blocked, set for OutcomeCooldown.
	Remaining time.Duration
}

// Fired reports whether the action ran successfully.
func (r Result) Fired() bool {
	return r.Outcome == OutcomeFired
}

// Record is published to observers for every executed action.
type Record struct {
	ID      string        `json:"id"`
	Source  action.Source `json:"source"`
	Trigger string        `json:"trigger"`
	Kind    action.Kind   `json:"kind"`
	Outcome Outcome       `json:"outcome"`
	Error   string        `json:"error,omitempty"`
	Time    time.Time     `json:"time"`
}

// Observer receives dispatch records. It is called synchronously and must not block.
type Observer func(Record)

// Stats counts dispatch outcomes since start.
type Stats struct {
	Fired    uint64 `json:"fired"`
	Failed   uint64 `json:"failed"`
	Cooldown uint64 `json:"cooldown"`
	Unmapped uint64 `json:"unmapped"`
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock sets the time source used for cooldowns and records.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithObserver registers an observer at construction.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observers = append(d.observers, o) }
}

// Dispatcher is shared by the gesture and voice loops. The mapping is
// read-only; the cooldown is the only mutable state between them.
type Dispatcher struct {
	mapping  *action.Mapping
	exec     executor.Executor
	cooldown *Cooldown
	now      func() time.Time
	logger   *slog.Logger

	mu        sync.RWMutex
	closed    bool
	observers []Observer
	inflight  sync.WaitGroup

	dragging atomic.Bool

	fired, failed, cooling, unmapped atomic.Uint64
}

// New creates a Dispatcher.
func New(mapping *action.Mapping, exec executor.Executor, cooldown *Cooldown, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mapping:  mapping,
		exec:     exec,
		cooldown: cooldown,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe registers an observer.
func (d *Dispatcher) Observe(o Observer) {
	d.mu.Lock()
	d.observers = append(d.observers, o)
	d.mu.Unlock()
}

// Mapping returns the trigger table.
func (d *Dispatcher) Mapping() *action.Mapping {
	return d.mapping
}

// Dragging reports whether a drag is held.
func (d *Dispatcher) Dragging() bool {
	return d.dragging.Load()
}

// Stats returns outcome counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Fired:    d.fired.Load(),
		Failed:   d.failed.Load(),
		Cooldown: d.cooling.Load(),
		Unmapped: d.unmapped.Load(),
	}
}

// DispatchGesture resolves a gesture event and runs its action.
// A released event only matters for drag: it lets go of the held button,
// bypassing the cooldown.
func (d *Dispatcher) DispatchGesture(ctx context.Context, ev gesture.Event) Result {
	if !d.begin() {
		return Result{Outcome: OutcomeClosed, Trigger: ev.Label, Err: ErrDispatcherClosed}
	}
	defer d.inflight.Done()

	kind, ok := d.mapping.Gesture(ev.Label)
	if !ok {
		d.unmapped.Add(1)
		return Result{Outcome: OutcomeUnmapped, Trigger: ev.Label}
	}
	if kind == action.Noop {
		return Result{Outcome: OutcomeIgnored, Kind: kind, Trigger: ev.Label}
	}

	if ev.Released {
		if kind != action.Drag || !d.dragging.CompareAndSwap(true, false) {
			return Result{Outcome: OutcomeIgnored, Kind: kind, Trigger: ev.Label}
		}
		req := action.Request{Kind: kind, Source: action.SourceGesture, Trigger: ev.Label, Release: true}
		res := d.execute(ctx, req)
		d.notify(ctx, req, res)
		return res
	}

	pos := ev.Position
	req := action.Request{Kind: kind, Source: action.SourceGesture, Trigger: ev.Label, Position: &pos}
	return d.dispatch(ctx, req)
}

// DispatchPhrase resolves recognized speech and runs its action.
func (d *Dispatcher) DispatchPhrase(ctx context.Context, text string) Result {
	if !d.begin() {
		return Result{Outcome: OutcomeClosed, Trigger: text, Err: ErrDispatcherClosed}
	}
	defer d.inflight.Done()

	kind, phrase, ok := d.mapping.Phrase(text)
	if !ok {
		d.unmapped.Add(1)
		return Result{Outcome: OutcomeUnmapped, Trigger: text}
	}
	if kind == action.Noop {
		return Result{Outcome: OutcomeIgnored, Kind: kind, Trigger: phrase}
	}
	return d.dispatch(ctx, action.Request{Kind: kind, Source: action.SourceVoice, Trigger: phrase})
}

// Close rejects further dispatches, waits for running ones and lets go of a
// held drag.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.inflight.Wait()

	if d.dragging.CompareAndSwap(true, false) {
		req := action.Request{Kind: action.Drag, Source: action.SourceGesture, Release: true}
		if err := d.exec.Execute(context.Background(), req); err != nil {
			d.logger.Error("release drag on close", "error", err)
			return err
		}
	}
	return nil
}

func (d *Dispatcher) begin() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	d.inflight.Add(1)
	return true
}

func (d *Dispatcher) dispatch(ctx context.Context, req action.Request) Result {
	now := d.now()
	if !d.cooldown.TryAcquire(req.Kind, now) {
		d.cooling.Add(1)
		dispatchCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action.kind", string(req.Kind)),
			attribute.String("dispatch.outcome", string(OutcomeCooldown)),
		))
		return Result{
			Outcome:   OutcomeCooldown,
			Kind:      req.Kind,
			Trigger:   req.Trigger,
			Remaining: d.cooldown.Remaining(req.Kind, now),
		}
	}

	res := d.execute(ctx, req)

	// Continuous kinds fire every frame; only the start of a drag is reported.
	if res.Fired() && req.Kind.Continuous() {
		if req.Kind == action.Drag && d.dragging.CompareAndSwap(false, true) {
			d.notify(ctx, req, res)
		}
		return res
	}
	d.notify(ctx, req, res)
	return res
}

// execute runs req to completion even if ctx is cancelled meanwhile, so
// shutdown never leaves an action half done.
func (d *Dispatcher) execute(ctx context.Context, req action.Request) Result {
	ctx, span := tracer.Start(ctx, "dispatch action", trace.WithAttributes(
		attribute.String("action.kind", string(req.Kind)),
		attribute.String("action.source", string(req.Source)),
		attribute.String("action.trigger", req.Trigger),
	))
	defer span.End()

	res := Result{Outcome: OutcomeFired, Kind: req.Kind, Trigger: req.Trigger}
	if err := d.exec.Execute(context.WithoutCancel(ctx), req); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.failed.Add(1)
		d.logger.Error("action failed", "kind", req.Kind, "source", req.Source, "trigger", req.Trigger, "error", err)
	} else {
		d.fired.Add(1)
		if req.Kind != action.MoveCursor && req.Kind != action.Drag {
			d.logger.Info("action fired", "kind", req.Kind, "source", req.Source, "trigger", req.Trigger)
		}
	}

	dispatchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action.kind", string(req.Kind)),
		attribute.String("dispatch.outcome", string(res.Outcome)),
	))
	return res
}

func (d *Dispatcher) notify(ctx context.Context, req action.Request, res Result) {
	rec := Record{
		ID:      uuid.NewString(),
		Source:  req.Source,
		Trigger: req.Trigger,
		Kind:    req.Kind,
		Outcome: res.Outcome,
		Time:    d.now(),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	auditLog.InfoContext(ctx, "dispatch", "id", rec.ID, "kind", rec.Kind, "source", rec.Source, "outcome", rec.Outcome)

	d.mu.RLock()
	observers := d.observers
	d.mu.RUnlock()
	for _, o := range observers {
		o(rec)
	}
}
