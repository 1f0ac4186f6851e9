package action

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Mapping resolves gesture labels and voice phrases to action kinds.
// It is built once and never mutated, so it is safe to share between goroutines
// without locking.
type Mapping struct {
	gestures map[string]Kind
	phrases  []phraseBinding
}

type phraseBinding struct {
	phrase string
	kind   Kind
}

// MappingOption adjusts how NewMapping treats the raw tables.
type MappingOption func(*mappingOptions)

type mappingOptions struct {
	allowShutdown bool
	onDropped     func(trigger string, kind Kind)
}

// AllowShutdown keeps bindings to Shutdown. Without it they are dropped.
func AllowShutdown(allow bool) MappingOption {
	return func(o *mappingOptions) { o.allowShutdown = allow }
}

// OnDropped is called for every binding NewMapping discards.
func OnDropped(fn func(trigger string, kind Kind)) MappingOption {
	return func(o *mappingOptions) { o.onDropped = fn }
}

// NewMapping builds the lookup table from raw configuration.
// Gesture labels match exactly (after lowercasing); voice phrases are matched
// case-insensitively as a prefix or substring of the spoken text.
func NewMapping(gestures, phrases map[string]string, opts ...MappingOption) (*Mapping, error) {
	var o mappingOptions
	for _, opt := range opts {
		opt(&o)
	}

	m := &Mapping{
		gestures: make(map[string]Kind, len(gestures)),
	}

	for label, raw := range gestures {
		kind, err := ParseKind(raw)
		if err != nil {
			return nil, fmt.Errorf("gesture %q: %w", label, err)
		}
		key := strings.ToLower(strings.TrimSpace(label))
		if key == "" {
			return nil, fmt.Errorf("gesture binding with empty label")
		}
		if kind == Shutdown && !o.allowShutdown {
			if o.onDropped != nil {
				o.onDropped(label, kind)
			}
			continue
		}
		m.gestures[key] = kind
	}

	for phrase, raw := range phrases {
		kind, err := ParseKind(raw)
		if err != nil {
			return nil, fmt.Errorf("phrase %q: %w", phrase, err)
		}
		key := NormalizeText(phrase)
		if key == "" {
			return nil, fmt.Errorf("voice binding with empty phrase")
		}
		if kind == Shutdown && !o.allowShutdown {
			if o.onDropped != nil {
				o.onDropped(phrase, kind)
			}
			continue
		}
		m.phrases = append(m.phrases, phraseBinding{phrase: key, kind: kind})
	}

	// Longest phrase first so "volume up" beats "up"; ties broken alphabetically
	// to keep resolution deterministic.
	sort.Slice(m.phrases, func(i, j int) bool {
		if len(m.phrases[i].phrase) != len(m.phrases[j].phrase) {
			return len(m.phrases[i].phrase) > len(m.phrases[j].phrase)
		}
		return m.phrases[i].phrase < m.phrases[j].phrase
	})

	return m, nil
}

// Gesture resolves a gesture label.
func (m *Mapping) Gesture(label string) (Kind, bool) {
	if m == nil {
		return "", false
	}
	kind, ok := m.gestures[strings.ToLower(label)]
	return kind, ok
}

// Phrase resolves spoken text. A binding matches when the normalized text starts
// with the bound phrase or contains it on word boundaries.
func (m *Mapping) Phrase(text string) (Kind, string, bool) {
	if m == nil {
		return "", "", false
	}
	spoken := NormalizeText(text)
	if spoken == "" {
		return "", "", false
	}
	padded := " " + spoken + " "
	for _, b := range m.phrases {
		if strings.HasPrefix(spoken+" ", b.phrase+" ") || strings.Contains(padded, " "+b.phrase+" ") {
			return b.kind, b.phrase, true
		}
	}
	return "", "", false
}

// GestureLabels returns the bound gesture labels in sorted order.
func (m *Mapping) GestureLabels() []string {
	labels := make([]string, 0, len(m.gestures))
	for l := range m.gestures {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Phrases returns the bound voice phrases, longest first.
func (m *Mapping) Phrases() []string {
	out := make([]string, len(m.phrases))
	for i, b := range m.phrases {
		out[i] = b.phrase
	}
	return out
}

// NormalizeText lowercases s, drops punctuation and collapses whitespace.
// Speech engines sprinkle punctuation and capitals into transcripts, which
// would otherwise defeat phrase matching.
func NormalizeText(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r), r == '-', r == '_':
			return ' '
		case r == '\'':
			return -1
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(cleaned), " ")
}
