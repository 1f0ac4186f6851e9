// Package feedback speaks a short confirmation after each voice command.
package feedback

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/logging"
)

const (
	queueSize      = 4
	defaultTimeout = 10 * time.Second
)

// Speaker reads text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// SpeakerFunc adapts a function to Speaker.
type SpeakerFunc func(ctx context.Context, text string) error

func (f SpeakerFunc) Speak(ctx context.Context, text string) error {
	return f(ctx, text)
}

// LogSpeaker writes what would be said to the log. It stands in for real
// speech in dry-run mode.
type LogSpeaker struct {
	logger *slog.Logger
}

// NewLogSpeaker creates a LogSpeaker.
func NewLogSpeaker(logger *slog.Logger) *LogSpeaker {
	return &LogSpeaker{logger: logging.OrDefault(logger)}
}

func (s *LogSpeaker) Speak(ctx context.Context, text string) error {
	s.logger.InfoContext(ctx, "feedback", "text", text)
	return nil
}

// Option configures an Announcer.
type Option func(*Announcer)

// WithLogger sets the announcer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Announcer) { a.logger = logger }
}

// WithTimeout bounds a single Speak call.
func WithTimeout(d time.Duration) Option {
	return func(a *Announcer) { a.timeout = d }
}

// Announcer turns voice dispatch records into spoken confirmations. Speech
// runs on its own goroutine; when it falls behind, new confirmations are
// dropped.
type Announcer struct {
	speaker Speaker
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan string
	done   chan struct{}
}

// NewAnnouncer creates an Announcer and starts its speech goroutine.
func NewAnnouncer(speaker Speaker, opts ...Option) *Announcer {
	a := &Announcer{
		speaker: speaker,
		logger:  slog.Default(),
		timeout: defaultTimeout,
		queue:   make(chan string, queueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrDefault(a.logger)
	go a.run()
	return a
}

// Observe is a dispatch.Observer.
func (a *Announcer) Observe(rec dispatch.Record) {
	if rec.Source != action.SourceVoice {
		return
	}
	text := Message(rec)
	if text == "" {
		return
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- text:
	default:
		a.logger.Debug("feedback dropped", "text", text)
	}
}

// Close stops accepting records and waits for queued speech to finish.
func (a *Announcer) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
	return nil
}

func (a *Announcer) run() {
	defer close(a.done)
	for text := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.speaker.Speak(ctx, text); err != nil {
			a.logger.Warn("speak feedback", "text", text, "error", err)
		}
		cancel()
	}
}

var confirmations = map[action.Kind]string{
	action.Screenshot:     "Screenshot saved",
	action.OpenBrowser:    "Opening browser",
	action.CloseBrowser:   "Closing browser",
	action.OpenCalculator: "Opening calculator",
	action.OpenNotepad:    "Opening notepad",
	action.Lock:           "Locking screen",
	action.Shutdown:       "Shutting down",
	action.Mute:           "Muted",
	action.Unmute:         "Unmuted",
}

// Message is the sentence spoken for rec, or "" when nothing should be said.
func Message(rec dispatch.Record) string {
	name := strings.ReplaceAll(string(rec.Kind), "_", " ")
	switch rec.Outcome {
	case dispatch.OutcomeFired:
		if msg, ok := confirmations[rec.Kind]; ok {
			return msg
		}
		if name == "" {
			return ""
		}
		return strings.ToUpper(name[:1]) + name[1:]
	case dispatch.OutcomeFailed:
		return "Sorry, " + name + " failed"
	}
	return ""
}
