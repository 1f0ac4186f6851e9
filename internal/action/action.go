// Package action defines the actions mudra can perform and the table that maps
// gesture labels and voice phrases onto them.
package action

import (
	"fmt"
	"strings"
)

// Kind identifies an action. The set is closed: executors switch on it and
// configuration is rejected when it names a kind outside this list.
type Kind string

const (
	MoveCursor     Kind = "move_cursor"
	LeftClick      Kind = "left_click"
	RightClick     Kind = "right_click"
	DoubleClick    Kind = "double_click"
	Drag           Kind = "drag"
	ScrollUp       Kind = "scroll_up"
	ScrollDown     Kind = "scroll_down"
	VolumeUp       Kind = "volume_up"
	VolumeDown     Kind = "volume_down"
	Mute           Kind = "mute"
	Unmute         Kind = "unmute"
	Screenshot     Kind = "screenshot"
	Lock           Kind = "lock"
	Shutdown       Kind = "shutdown"
	OpenBrowser    Kind = "open_browser"
	CloseBrowser   Kind = "close_browser"
	OpenCalculator Kind = "open_calculator"
	OpenNotepad    Kind = "open_notepad"
	CloseWindow    Kind = "close_window"
	SwitchWindow   Kind = "switch_window"
	MinimizeWindow Kind = "minimize_window"
	MaximizeWindow Kind = "maximize_window"
	ZoomIn         Kind = "zoom_in"
	ZoomOut        Kind = "zoom_out"
	Confirm        Kind = "confirm"
	Noop           Kind = "noop"
)

var kinds = []Kind{
	MoveCursor, LeftClick, RightClick, DoubleClick, Drag,
	ScrollUp, ScrollDown, VolumeUp, VolumeDown, Mute, Unmute,
	Screenshot, Lock, Shutdown, OpenBrowser, CloseBrowser,
	OpenCalculator, OpenNotepad, CloseWindow, SwitchWindow,
	MinimizeWindow, MaximizeWindow, ZoomIn, ZoomOut, Confirm, Noop,
}

// Kinds returns every known action kind.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind converts a configuration string into a Kind.
// Dashes and case are tolerated so "Volume-Up" parses as VolumeUp.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	for _, k := range kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Continuous reports whether the kind tracks a position every frame rather
// than firing once per trigger.
func (k Kind) Continuous() bool {
	return k == MoveCursor || k == Drag
}

func (k Kind) String() string {
	return string(k)
}

// Source tells which input modality produced a request.
type Source string

const (
	SourceGesture Source = "gesture"
	SourceVoice   Source = "voice"
)

// Position is a pointer position in normalized screen space, 0..1 on both axes.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Request is what an executor receives.
type Request struct {
	Kind     Kind
	Source   Source
	Trigger  string // gesture label or the spoken text
	Position *Position
	// Release ends a held continuous action (drag).
	Release bool
}
