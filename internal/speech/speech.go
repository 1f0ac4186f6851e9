// Package speech turns microphone audio into wake events and command phrases.
package speech

import (
	"context"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/action"
)

// WakeEvent reports a detected wake word. Trailing holds any words spoken
// after it in the same utterance.
type WakeEvent struct {
	Keyword   string
	Trailing  string
	Timestamp time.Time
}

// Phrase is text recognized inside an activation window.
type Phrase struct {
	Text      string
	Timestamp time.Time
}

// Source produces voice input for the coordinator.
type Source interface {
	// WaitForWakeWord blocks until the wake word is heard or ctx is done.
	WaitForWakeWord(ctx context.Context) (WakeEvent, error)
	// ListenForPhrase returns the next utterance, or nil if nothing was
	// said within timeout.
	ListenForPhrase(ctx context.Context, timeout time.Duration) (*Phrase, error)
	Close() error
}

// MatchWakeWord looks for wake as whole words in text and returns what
// follows it.
func MatchWakeWord(text, wake string) (string, bool) {
	norm := action.NormalizeText(text)
	w := action.NormalizeText(wake)
	if w == "" {
		return "", false
	}

	padded := " " + norm + " "
	i := strings.Index(padded, " "+w+" ")
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(padded[i+len(w)+1:]), true
}

// CleanTranscript joins recognized segments, dropping non-speech annotations
// such as "[BLANK_AUDIO]" or "(wind blowing)" and repeated segments.
func CleanTranscript(segments []string) string {
	seen := make(map[string]bool, len(segments))
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if s[0] == '(' || s[0] == '[' || s[len(s)-1] == ')' || s[len(s)-1] == ']' {
			continue
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
