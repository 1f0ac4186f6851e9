// Package tray provides the system tray menu: gesture and voice toggles, the
// voice state, the last dispatched command and quit.
package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onGesture  func(enabled bool)
	onVoice    func(enabled bool)
	onSettings func()
	onQuit     func()

	mu          sync.RWMutex
	gestureOn   bool
	voiceOn     bool
	voiceActive bool
	last        string
	ready       bool

	// Menu items stored for later updates
	menuGesture *systray.MenuItem
	menuVoice   *systray.MenuItem
	menuState   *systray.MenuItem
	menuLast    *systray.MenuItem
}

// New creates a Tray showing the given initial toggle states.
func New(gestureOn, voiceOn bool) *Tray {
	return &Tray{gestureOn: gestureOn, voiceOn: voiceOn}
}

// OnGestureToggle sets the callback for the gesture toggle.
func (t *Tray) OnGestureToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onGesture = fn
}

// OnVoiceToggle sets the callback for the voice toggle.
func (t *Tray) OnVoiceToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onVoice = fn
}

// OnSettings sets the callback for the status page item. Without one the
// item is not shown.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray and blocks until Quit is clicked or ctx is cancelled.
// It must be called from the main goroutine.
func (t *Tray) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, systray.Quit)
	defer stop()
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra gesture and voice control")

	t.mu.Lock()
	t.menuGesture = systray.AddMenuItem(toggleTitle("Gestures", t.gestureOn), "Toggle gesture control")
	t.menuVoice = systray.AddMenuItem(toggleTitle("Voice", t.voiceOn), "Toggle voice control")
	systray.AddSeparator()

	t.menuState = systray.AddMenuItem(voiceTitle(t.voiceActive), "Voice state")
	t.menuState.Disable()
	t.menuLast = systray.AddMenuItem(lastTitle(t.last), "Last dispatched command")
	t.menuLast.Disable()
	systray.AddSeparator()

	var settingsCh chan struct{}
	if t.onSettings != nil {
		settingsCh = systray.AddMenuItem("Open Status Page...", "Open the status page in a browser").ClickedCh
		systray.AddSeparator()
	}
	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")
	t.ready = true
	gestureCh, voiceCh := t.menuGesture.ClickedCh, t.menuVoice.ClickedCh
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-gestureCh:
				t.toggleGesture()
			case <-voiceCh:
				t.toggleVoice()
			case <-settingsCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	t.ready = false
	t.mu.Unlock()
}

func (t *Tray) toggleGesture() {
	t.mu.Lock()
	t.gestureOn = !t.gestureOn
	enabled := t.gestureOn
	t.refresh()
	callback := t.onGesture
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) toggleVoice() {
	t.mu.Lock()
	t.voiceOn = !t.voiceOn
	enabled := t.voiceOn
	t.refresh()
	callback := t.onVoice
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetState mirrors toggles and the voice state changed elsewhere, for example
// through the status server.
func (t *Tray) SetState(gestureOn, voiceOn, voiceActive bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gestureOn, t.voiceOn, t.voiceActive = gestureOn, voiceOn, voiceActive
	t.refresh()
}

// SetLastCommand updates the last dispatched command shown in the menu.
func (t *Tray) SetLastCommand(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = s
	t.refresh()
}

// State returns the toggles and voice state the menu is showing.
func (t *Tray) State() (gestureOn, voiceOn, voiceActive bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gestureOn, t.voiceOn, t.voiceActive
}

// LastCommand returns the last command shown in the menu.
func (t *Tray) LastCommand() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// refresh redraws the menu. Callers hold t.mu.
func (t *Tray) refresh() {
	if !t.ready {
		return
	}
	t.menuGesture.SetTitle(toggleTitle("Gestures", t.gestureOn))
	t.menuVoice.SetTitle(toggleTitle("Voice", t.voiceOn))
	t.menuState.SetTitle(voiceTitle(t.voiceActive))
	t.menuLast.SetTitle(lastTitle(t.last))
}

func toggleTitle(name string, on bool) string {
	if on {
		return "● " + name + " enabled"
	}
	return "○ " + name + " disabled"
}

func voiceTitle(active bool) string {
	if active {
		return "Voice: listening for a command"
	}
	return "Voice: waiting for wake word"
}

func lastTitle(last string) string {
	if last == "" {
		return "Last: none"
	}
	return "Last: " + last
}
