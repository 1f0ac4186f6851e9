// Package app runs the gesture and voice loops and funnels both into the
// shared dispatcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/speech"
	"github.com/ayusman/mudra/internal/store"
)

// VoiceState is the voice loop's position in its state machine.
type VoiceState string

const (
	VoiceIdle   VoiceState = "idle"
	VoiceActive VoiceState = "active"
)

// EventType names what changed in an Event.
type EventType string

const (
	EventVoiceState EventType = "voice_state"
	EventGesture    EventType = "gesture"
	EventToggle     EventType = "toggle"
)

// Event is published to observers when the coordinator's visible state changes.
type Event struct {
	Type           EventType  `json:"type"`
	VoiceState     VoiceState `json:"voice_state,omitempty"`
	Label          string     `json:"label,omitempty"`
	GestureEnabled bool       `json:"gesture_enabled"`
	VoiceEnabled   bool       `json:"voice_enabled"`
	Time           time.Time  `json:"time"`
}

// historyBuffer is how many dispatch records may wait for the store.
const historyBuffer = 256

// Observer receives coordinator events. It is called synchronously and must not block.
type Observer func(Event)

// Status is a snapshot of the coordinator.
type Status struct {
	GestureEnabled bool           `json:"gesture_enabled"`
	VoiceEnabled   bool           `json:"voice_enabled"`
	GestureRunning bool           `json:"gesture_running"`
	VoiceRunning   bool           `json:"voice_running"`
	VoiceState     VoiceState     `json:"voice_state"`
	Label          string         `json:"label"`
	Dragging       bool           `json:"dragging"`
	Templates      int            `json:"templates"`
	Stats          dispatch.Stats `json:"stats"`
	Bindings       Bindings       `json:"bindings"`
}

// Bindings lists the triggers the mapping knows about.
type Bindings struct {
	Gestures []string `json:"gestures"`
	Phrases  []string `json:"phrases"`
}

// Config holds the coordinator's timing settings.
type Config struct {
	// ActivationWindow is how long commands are accepted after the wake word.
	ActivationWindow time.Duration
	// PhraseTimeLimit bounds a single listen inside the window.
	PhraseTimeLimit time.Duration
	GestureEnabled  bool
	VoiceEnabled    bool
	// HistoryLimit caps the stored dispatch history. Zero keeps everything.
	HistoryLimit int
}

// Deps are the components the coordinator drives. Landmarks and Speech are
// optional; a nil source disables its loop.
type Deps struct {
	Landmarks   landmark.Source
	Interpreter *gesture.Interpreter
	Speech      speech.Source
	Dispatcher  *dispatch.Dispatcher
	Templates   *gesture.TemplateSet
	Store       *store.Store
	Logger      *slog.Logger
}

// App is the coordinator.
type App struct {
	cfg         Config
	landmarks   landmark.Source
	interpreter *gesture.Interpreter
	speech      speech.Source
	dispatcher  *dispatch.Dispatcher
	templates   *gesture.TemplateSet
	store       *store.Store
	logger      *slog.Logger
	now         func() time.Time

	gestureOn atomic.Bool
	voiceOn   atomic.Bool
	voiceWake chan struct{}
	recorded  atomic.Int64
	history   chan dispatch.Record
	historyWG sync.WaitGroup
	closeOnce sync.Once
	closeErr  error

	mu         sync.RWMutex
	voiceState VoiceState
	label      string
	observers  []Observer
}

// New creates the coordinator.
func New(cfg Config, deps Deps) (*App, error) {
	if deps.Dispatcher == nil {
		return nil, errors.New("app: dispatcher is required")
	}
	if deps.Landmarks != nil && deps.Interpreter == nil {
		return nil, errors.New("app: landmark source needs an interpreter")
	}
	if deps.Speech != nil && (cfg.ActivationWindow <= 0 || cfg.PhraseTimeLimit <= 0) {
		return nil, errors.New("app: voice needs a positive activation window and phrase limit")
	}
	if deps.Templates == nil {
		deps.Templates = gesture.NewTemplateSet()
	}
	deps.Logger = logging.OrDefault(deps.Logger)

	a := &App{
		cfg:         cfg,
		landmarks:   deps.Landmarks,
		interpreter: deps.Interpreter,
		speech:      deps.Speech,
		dispatcher:  deps.Dispatcher,
		templates:   deps.Templates,
		store:       deps.Store,
		logger:      deps.Logger,
		now:         time.Now,
		voiceWake:   make(chan struct{}, 1),
		voiceState:  VoiceIdle,
	}
	a.gestureOn.Store(cfg.GestureEnabled)
	a.voiceOn.Store(cfg.VoiceEnabled)

	if a.store != nil {
		a.history = make(chan dispatch.Record, historyBuffer)
		a.historyWG.Add(1)
		go a.writeHistory()
		a.dispatcher.Observe(a.recordHistory)
	}
	return a, nil
}

// Observe registers an observer for coordinator events.
func (a *App) Observe(o Observer) {
	a.mu.Lock()
	a.observers = append(a.observers, o)
	a.mu.Unlock()
}

// Dispatcher returns the shared dispatcher.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// Templates returns the trained template set the interpreter matches against.
func (a *App) Templates() *gesture.TemplateSet {
	return a.templates
}

// LoadTemplates loads every trained template from the store.
func (a *App) LoadTemplates() (int, error) {
	if a.store == nil {
		return 0, nil
	}
	n, err := a.store.Gestures().LoadInto(a.templates)
	if err != nil {
		return 0, fmt.Errorf("load templates: %w", err)
	}
	a.logger.Info("loaded gesture templates", "count", n)
	return n, nil
}

// SetGestureEnabled turns the gesture loop on or off.
func (a *App) SetGestureEnabled(on bool) {
	if a.gestureOn.Swap(on) != on {
		a.logger.Info("gesture control toggled", "enabled", on)
		a.publish(Event{Type: EventToggle})
	}
}

// SetVoiceEnabled turns the voice loop on or off.
func (a *App) SetVoiceEnabled(on bool) {
	if a.voiceOn.Swap(on) == on {
		return
	}
	if on {
		select {
		case a.voiceWake <- struct{}{}:
		default:
		}
	}
	a.logger.Info("voice control toggled", "enabled", on)
	a.publish(Event{Type: EventToggle})
}

// GestureEnabled reports whether the gesture loop is processing frames.
func (a *App) GestureEnabled() bool {
	return a.gestureOn.Load()
}

// VoiceEnabled reports whether the voice loop is listening.
func (a *App) VoiceEnabled() bool {
	return a.voiceOn.Load()
}

// VoiceState returns the current voice state.
func (a *App) VoiceState() VoiceState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.voiceState
}

// Label returns the current stable gesture label, or "" when no hand is held.
func (a *App) Label() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.label
}

// Status returns a snapshot for the status server and the tray.
func (a *App) Status() Status {
	mapping := a.dispatcher.Mapping()
	bindings := Bindings{Gestures: mapping.GestureLabels(), Phrases: mapping.Phrases()}

	a.mu.RLock()
	defer a.mu.RUnlock()
	return Status{
		GestureEnabled: a.gestureOn.Load(),
		VoiceEnabled:   a.voiceOn.Load(),
		GestureRunning: a.landmarks != nil,
		VoiceRunning:   a.speech != nil,
		VoiceState:     a.voiceState,
		Label:          a.label,
		Dragging:       a.dispatcher.Dragging(),
		Templates:      a.templates.Len(),
		Stats:          a.dispatcher.Stats(),
		Bindings:       bindings,
	}
}

// Run runs both loops until ctx is cancelled or a loop fails, then closes
// the dispatcher, which lets running actions finish, and the sources.
// Cancellation is a clean shutdown and returns nil.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.landmarks != nil {
		g.Go(func() error { return a.gestureLoop(gctx) })
	}
	if a.speech != nil {
		g.Go(func() error { return a.voiceLoop(gctx) })
	}
	a.logger.Info("coordinator started", "gesture", a.landmarks != nil, "voice", a.speech != nil)

	err := g.Wait()
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		err = nil
	}
	return errors.Join(err, a.Close())
}

// Close releases the dispatcher and both sources and flushes pending history.
// It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		errs := []error{a.dispatcher.Close()}
		if a.history != nil {
			close(a.history)
			a.historyWG.Wait()
		}
		if a.landmarks != nil {
			errs = append(errs, a.landmarks.Close())
		}
		if a.speech != nil {
			errs = append(errs, a.speech.Close())
		}
		a.closeErr = errors.Join(errs...)
		a.logger.Info("coordinator stopped")
	})
	return a.closeErr
}

func (a *App) setVoiceState(s VoiceState) {
	a.mu.Lock()
	changed := a.voiceState != s
	a.voiceState = s
	a.mu.Unlock()
	if changed {
		a.publish(Event{Type: EventVoiceState})
	}
}

func (a *App) setLabel(label string) {
	a.mu.Lock()
	changed := a.label != label
	a.label = label
	a.mu.Unlock()
	if changed {
		a.publish(Event{Type: EventGesture})
	}
}

// publish fills in the current state and hands ev to every observer.
func (a *App) publish(ev Event) {
	a.mu.RLock()
	ev.VoiceState = a.voiceState
	ev.Label = a.label
	observers := a.observers
	a.mu.RUnlock()

	ev.GestureEnabled = a.gestureOn.Load()
	ev.VoiceEnabled = a.voiceOn.Load()
	ev.Time = a.now()
	for _, o := range observers {
		o(ev)
	}
}

// recordHistory hands rec to the history writer. It runs on the loop that
// dispatched, so it never waits for the store.
func (a *App) recordHistory(rec dispatch.Record) {
	select {
	case a.history <- rec:
	default:
		a.logger.Warn("dispatch history backlog full, dropping record", "id", rec.ID, "kind", rec.Kind)
	}
}

func (a *App) writeHistory() {
	defer a.historyWG.Done()

	history := a.store.History()
	for rec := range a.history {
		if err := history.Create(rec); err != nil {
			a.logger.Warn("store dispatch record", "error", err)
			continue
		}
		if a.cfg.HistoryLimit <= 0 {
			continue
		}
		// Prune occasionally rather than on every insert.
		if a.recorded.Add(1)%100 == 0 {
			if _, err := history.Prune(a.cfg.HistoryLimit); err != nil {
				a.logger.Warn("prune dispatch history", "error", err)
			}
		}
	}
}
