package main

import "strings"

// commands maps each platform's action names to a command line.
var commands = map[string]map[string][]string{
	"darwin": {
		"lock":          {"pmset", "displaysleepnow"},
		"shutdown":      {"osascript", "-e", `tell application "System Events" to shut down`},
		"volume-up":     {"osascript", "-e", `set volume output volume ((output volume of (get volume settings)) + 10)`},
		"volume-down":   {"osascript", "-e", `set volume output volume ((output volume of (get volume settings)) - 10)`},
		"volume-mute":   {"osascript", "-e", `set volume output muted (not (output muted of (get volume settings)))`},
		"volume-unmute": {"osascript", "-e", `set volume output muted false`},
	},
	"linux": {
		"lock":          {"loginctl", "lock-session"},
		"shutdown":      {"systemctl", "poweroff"},
		"volume-up":     {"pactl", "set-sink-volume", "@DEFAULT_SINK@", "+10%"},
		"volume-down":   {"pactl", "set-sink-volume", "@DEFAULT_SINK@", "-10%"},
		"volume-mute":   {"pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle"},
		"volume-unmute": {"pactl", "set-sink-mute", "@DEFAULT_SINK@", "0"},
	},
	"windows": {
		"lock":     {"rundll32.exe", "user32.dll,LockWorkStation"},
		"shutdown": {"shutdown", "/s", "/t", "0"},
	},
}

// launchers start an application and return without waiting for it to exit.
var launchers = map[string]map[string][]string{
	"darwin": {
		"open-calculator": {"open", "-a", "Calculator"},
		"open-notepad":    {"open", "-a", "TextEdit"},
	},
	"linux": {
		"open-calculator": {"gnome-calculator"},
		"open-notepad":    {"gedit"},
	},
	"windows": {
		"open-calculator": {"calc.exe"},
		"open-notepad":    {"notepad.exe"},
	},
}

// speakCommand returns the command line that reads text aloud on goos.
func speakCommand(goos, text string) []string {
	switch goos {
	case "darwin":
		return []string{"say", text}
	case "windows":
		quoted := "'" + strings.ReplaceAll(text, "'", "''") + "'"
		script := "Add-Type -AssemblyName System.Speech; " +
			"(New-Object System.Speech.Synthesis.SpeechSynthesizer).Speak(" + quoted + ")"
		return []string{"powershell", "-NoProfile", "-Command", script}
	default:
		return []string{"espeak", text}
	}
}
