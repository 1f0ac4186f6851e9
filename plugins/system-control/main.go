// Package main provides the system-control plugin: screen lock, shutdown,
// opening the browser, launching the calculator and notepad, volume and spoken
// feedback, using the platform's own commands.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

const defaultURL = "https://www.google.com"

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Trigger string          `json:"trigger"`
	Source  string          `json:"source"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type browserParams struct {
	URL string `json:"url"`
}

type speakParams struct {
	Text string `json:"text"`
}

// runFunc runs one command line.
type runFunc func(name string, args ...string) error

// shell runs commands: run waits for completion, start only for the launch.
type shell struct {
	run   runFunc
	start runFunc
}

func main() {
	json.NewEncoder(os.Stdout).Encode(handle(os.Stdin, runtime.GOOS, shell{run: run, start: start}))
}

// handle decodes one request and performs it.
func handle(in io.Reader, goos string, sh shell) Response {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return Response{Error: fmt.Sprintf("failed to decode request: %v", err)}
	}

	do := sh.run
	cmd, ok := launcher(goos, req.Action)
	if ok {
		do = sh.start
	} else {
		var err error
		if cmd, err = command(goos, req); err != nil {
			return Response{Error: err.Error()}
		}
	}
	if err := do(cmd[0], cmd[1:]...); err != nil {
		return Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)}
	}
	return Response{Success: true}
}

func launcher(goos, action string) ([]string, bool) {
	table, ok := launchers[goos]
	if !ok {
		table = launchers["linux"]
	}
	cmd, ok := table[action]
	return cmd, ok
}

// command returns the command line that performs req on goos.
func command(goos string, req Request) ([]string, error) {
	if req.Action == "speak" {
		var p speakParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &p); err != nil {
				return nil, fmt.Errorf("invalid speak params: %v", err)
			}
		}
		if p.Text == "" {
			return nil, fmt.Errorf("speak needs text")
		}
		return speakCommand(goos, p.Text), nil
	}

	if req.Action == "open-browser" {
		url := defaultURL
		var p browserParams
		if len(req.Params) > 0 && json.Unmarshal(req.Params, &p) == nil && p.URL != "" {
			url = p.URL
		}
		switch goos {
		case "darwin":
			return []string{"open", url}, nil
		case "windows":
			return []string{"rundll32", "url.dll,FileProtocolHandler", url}, nil
		default:
			return []string{"xdg-open", url}, nil
		}
	}

	table, ok := commands[goos]
	if !ok {
		table = commands["linux"]
	}
	cmd, ok := table[req.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action: %s", req.Action)
	}
	return cmd, nil
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
