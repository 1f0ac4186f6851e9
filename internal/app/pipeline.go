package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
)

const (
	// maxVoiceErrors consecutive speech failures end the voice loop.
	maxVoiceErrors = 5
	voiceRetry     = time.Second
	listenRetry    = 100 * time.Millisecond
)

// gestureLoop polls the landmark source at the pace it asks for, interprets
// each frame and dispatches the resulting events.
//
// A read failure is a frame without a hand. Disabling the loop flushes the
// interpreter so a held drag is released.
func (a *App) gestureLoop(ctx context.Context) error {
	interval := a.landmarks.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	wasOn := a.gestureOn.Load()
	for {
		select {
		case <-ctx.Done():
			a.flushGesture(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-ticker.C:
		}

		on := a.gestureOn.Load()
		if !on {
			if wasOn {
				a.flushGesture(ctx)
			}
			wasOn = false
			continue
		}
		wasOn = true

		frame, err := a.landmarks.NextFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			a.logger.Debug("no landmarks this tick", "error", err)
			frame = nil
		}
		a.handleFrame(ctx, frame)

		if next := a.landmarks.Interval(); next != interval && next > 0 {
			interval = next
			ticker.Reset(interval)
		}
	}
}

func (a *App) handleFrame(ctx context.Context, frame *detector.LandmarkFrame) {
	for _, ev := range a.interpreter.Interpret(frame) {
		a.dispatchGesture(ctx, ev)
	}
	a.setLabel(a.interpreter.Label())
}

// flushGesture reports the hand as gone.
func (a *App) flushGesture(ctx context.Context) {
	a.handleFrame(ctx, nil)
}

func (a *App) dispatchGesture(ctx context.Context, ev gesture.Event) {
	res := a.dispatcher.DispatchGesture(ctx, ev)
	switch res.Outcome {
	case dispatch.OutcomeUnmapped, dispatch.OutcomeCooldown:
		a.logger.Debug("gesture not dispatched", "label", ev.Label, "outcome", res.Outcome)
	}
}

// voiceLoop runs the voice state machine: Idle until the wake word, then
// Active for the activation window. The window closes early on a successful
// dispatch; a failed one keeps it open.
func (a *App) voiceLoop(ctx context.Context) error {
	failures := 0
	for {
		if !a.voiceOn.Load() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-a.voiceWake:
				continue
			}
		}

		wake, err := a.speech.WaitForWakeWord(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			if failures >= maxVoiceErrors {
				return fmt.Errorf("voice input: %w", err)
			}
			a.logger.Warn("wake word detection failed", "error", err, "attempt", failures)
			if !sleepCtx(ctx, voiceRetry) {
				return ctx.Err()
			}
			continue
		}
		failures = 0

		if !a.voiceOn.Load() {
			continue
		}
		a.activate(ctx, wake.Keyword, wake.Trailing)
	}
}

// activate holds the Active state until the window expires or a command fires.
func (a *App) activate(ctx context.Context, keyword, trailing string) {
	a.setVoiceState(VoiceActive)
	defer a.setVoiceState(VoiceIdle)

	deadline := a.now().Add(a.cfg.ActivationWindow)
	a.logger.Info("wake word heard", "keyword", keyword, "window", a.cfg.ActivationWindow)

	if trailing != "" && a.handlePhrase(ctx, trailing) {
		return
	}

	for a.voiceOn.Load() {
		remaining := deadline.Sub(a.now())
		if remaining <= 0 {
			a.logger.Debug("activation window expired")
			return
		}

		phrase, err := a.speech.ListenForPhrase(ctx, min(remaining, a.cfg.PhraseTimeLimit))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("listen for phrase failed", "error", err)
			if !sleepCtx(ctx, min(remaining, listenRetry)) {
				return
			}
			continue
		}
		if phrase == nil {
			continue
		}
		if a.handlePhrase(ctx, phrase.Text) {
			return
		}
	}
}

// handlePhrase dispatches text and reports whether the window should close.
// A matched noop phrase dismisses the window like a fired command.
func (a *App) handlePhrase(ctx context.Context, text string) bool {
	res := a.dispatcher.DispatchPhrase(ctx, text)
	switch res.Outcome {
	case dispatch.OutcomeFired:
		return true
	case dispatch.OutcomeIgnored:
		a.logger.Info("voice command dismissed", "phrase", res.Trigger)
		return true
	case dispatch.OutcomeUnmapped:
		a.logger.Info("no command in phrase", "text", text)
	case dispatch.OutcomeCooldown:
		a.logger.Info("command cooling down", "phrase", res.Trigger, "kind", res.Kind, "remaining", res.Remaining)
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
