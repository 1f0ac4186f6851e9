package gesture

import (
	"sort"
	"sync"

	"github.com/ayusman/mudra/internal/detector"
)

// Type separates pose templates from motion templates.
type Type string

const (
	TypeStatic  Type = "static"
	TypeDynamic Type = "dynamic"
)

// Template is a trained gesture. Its Name is the label reported on a match.
type Template struct {
	ID        string
	Name      string
	Type      Type
	Landmarks []detector.Point3D // normalized, static only
	Path      []PathPoint        // dynamic only
	Tolerance float64            // maximum distance accepted as a match
}

// PathPoint is one fingertip sample of a motion.
type PathPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"` // milliseconds
}

// Match is a template that scored within its tolerance.
type Match struct {
	Template *Template
	Score    float64 // 1 / (1 + Distance)
	Distance float64
}

// TemplateSet holds the trained templates. The server adds and removes
// templates while the gesture loop matches against them, so access is locked.
type TemplateSet struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateSet creates an empty set.
func NewTemplateSet() *TemplateSet {
	return &TemplateSet{templates: make(map[string]*Template)}
}

// Put adds t, replacing any template with the same ID.
func (s *TemplateSet) Put(t *Template) {
	if t == nil || t.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
}

// Remove drops the template with the given ID.
func (s *TemplateSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, id)
}

// Len returns the number of templates.
func (s *TemplateSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

// Names returns the distinct template names, sorted.
func (s *TemplateSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool, len(s.templates))
	names := make([]string, 0, len(s.templates))
	for _, t := range s.templates {
		if !seen[t.Name] {
			seen[t.Name] = true
			names = append(names, t.Name)
		}
	}
	sort.Strings(names)
	return names
}

// HasDynamic reports whether any motion template is loaded.
func (s *TemplateSet) HasDynamic() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.templates {
		if t.Type == TypeDynamic && len(t.Path) > 0 {
			return true
		}
	}
	return false
}

// MatchStatic scores a hand against every static template. The distance is the
// mean per-landmark distance after normalization, so it is in hand-size units.
// Matches come back best first.
func (s *TemplateSet) MatchStatic(hand *detector.HandLandmarks) []Match {
	if hand == nil {
		return nil
	}
	normalized := hand.Normalize()
	input := normalized.Points[:]

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Match
	for _, t := range s.templates {
		if t.Type != TypeStatic || len(t.Landmarks) == 0 {
			continue
		}
		d := meanDistance(input, t.Landmarks)
		if d <= t.Tolerance {
			matches = append(matches, Match{Template: t, Score: 1.0 / (1.0 + d), Distance: d})
		}
	}
	sortMatches(matches)
	return matches
}

// MatchPath compares a fingertip path against every dynamic template with DTW.
func (s *TemplateSet) MatchPath(path []PathPoint) []Match {
	if len(path) < 2 {
		return nil
	}
	input := normalizePath(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Match
	for _, t := range s.templates {
		if t.Type != TypeDynamic || len(t.Path) < 2 {
			continue
		}
		d := DTWDistance(input, normalizePath(t.Path))
		if d <= t.Tolerance {
			matches = append(matches, Match{Template: t, Score: 1.0 / (1.0 + d), Distance: d})
		}
	}
	sortMatches(matches)
	return matches
}

func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Template.ID < matches[j].Template.ID
	})
}

// meanDistance averages the point-to-point distance over the shorter slice.
func meanDistance(a, b []detector.Point3D) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var total float64
	for i := 0; i < n; i++ {
		total += detector.Distance(a[i], b[i])
	}
	return total / float64(n)
}
