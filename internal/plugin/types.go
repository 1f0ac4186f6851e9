// Package plugin discovers and runs out-of-process action plugins.
//
// A plugin is a directory holding a plugin.json manifest and an executable.
// The executable receives one JSON Request on stdin and writes one JSON
// Response to stdout.
package plugin

import "encoding/json"

// Manifest describes a plugin and the actions it accepts.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin.
type Request struct {
	Action  string          `json:"action"`
	Trigger string          `json:"trigger"`
	Source  string          `json:"source"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
