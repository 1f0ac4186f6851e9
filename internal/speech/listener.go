package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-audio/audio"
)

// Transcriber converts an utterance to text.
type Transcriber interface {
	Transcribe(ctx context.Context, buf *audio.IntBuffer) (string, error)
}

const defaultWakeLength = 3 * time.Second

// Listener is a Source built from a microphone and a transcriber. Every
// utterance is transcribed; the wake word is matched on the text.
type Listener struct {
	mic         Microphone
	transcriber Transcriber
	wakeWord    string
	wakeLength  time.Duration
	phraseLimit time.Duration
	recorder    *Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithPhraseLimit caps the length of a command utterance.
func WithPhraseLimit(d time.Duration) ListenerOption {
	return func(l *Listener) { l.phraseLimit = d }
}

// WithRecorder saves every captured utterance.
func WithRecorder(r *Recorder) ListenerOption {
	return func(l *Listener) { l.recorder = r }
}

// WithLogger sets the listener's logger.
func WithLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) { l.logger = logger }
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) ListenerOption {
	return func(l *Listener) { l.now = now }
}

// NewListener creates a Listener waiting for wakeWord.
func NewListener(mic Microphone, transcriber Transcriber, wakeWord string, opts ...ListenerOption) *Listener {
	l := &Listener{
		mic:         mic,
		transcriber: transcriber,
		wakeWord:    wakeWord,
		wakeLength:  defaultWakeLength,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Listener) WaitForWakeWord(ctx context.Context) (WakeEvent, error) {
	for {
		buf, err := CaptureUtterance(ctx, l.mic, CaptureConfig{MaxLength: l.wakeLength})
		if err != nil {
			return WakeEvent{}, err
		}
		if buf == nil || len(buf.Data) == 0 {
			continue
		}
		l.save(buf, "wake")

		text, err := l.transcriber.Transcribe(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return WakeEvent{}, ctx.Err()
			}
			l.logger.Warn("transcribe failed", "error", err)
			continue
		}
		l.logger.Debug("heard", "text", text)

		if trailing, ok := MatchWakeWord(text, l.wakeWord); ok {
			return WakeEvent{Keyword: l.wakeWord, Trailing: trailing, Timestamp: l.now()}, nil
		}
	}
}

func (l *Listener) ListenForPhrase(ctx context.Context, timeout time.Duration) (*Phrase, error) {
	if timeout <= 0 {
		return nil, nil
	}
	buf, err := CaptureUtterance(ctx, l.mic, CaptureConfig{Wait: timeout, MaxLength: l.phraseLimit})
	if err != nil {
		return nil, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, nil
	}
	l.save(buf, "phrase")

	text, err := l.transcriber.Transcribe(ctx, buf)
	if err != nil {
		return nil, fmt.Errorf("transcribe phrase: %w", err)
	}
	if text == "" {
		return nil, nil
	}
	return &Phrase{Text: text, Timestamp: l.now()}, nil
}

// Close releases the microphone and the transcriber when they hold resources.
func (l *Listener) Close() error {
	var errs []error
	if c, ok := l.mic.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := l.transcriber.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (l *Listener) save(buf *audio.IntBuffer, kind string) {
	if l.recorder == nil {
		return
	}
	if _, err := l.recorder.Save(buf, kind); err != nil {
		l.logger.Warn("save recording", "error", err)
	}
}
