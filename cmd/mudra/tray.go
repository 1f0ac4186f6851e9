package main

import (
	"log/slog"
	"net"
	"os/exec"
	"runtime"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/tray"
)

// newTray connects the tray menu to the coordinator in both directions.
func newTray(a *app.App, disp *dispatch.Dispatcher, url string, logger *slog.Logger) *tray.Tray {
	t := tray.New(a.GestureEnabled(), a.VoiceEnabled())
	t.OnGestureToggle(a.SetGestureEnabled)
	t.OnVoiceToggle(a.SetVoiceEnabled)
	if url != "" {
		t.OnSettings(func() {
			if err := openURL(url); err != nil {
				logger.Warn("open status page", "url", url, "error", err)
			}
		})
	}

	a.Observe(func(ev app.Event) {
		t.SetState(ev.GestureEnabled, ev.VoiceEnabled, ev.VoiceState == app.VoiceActive)
	})
	disp.Observe(func(rec dispatch.Record) {
		if rec.Outcome == dispatch.OutcomeFired {
			t.SetLastCommand(rec.Trigger + " → " + string(rec.Kind))
		}
	})
	return t
}

// statusURL is the browser address of the status server, or "" when it is off.
func statusURL(addr string) string {
	if addr == "" {
		return ""
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func openURL(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
