package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/plugin"
)

type fakeDriver struct {
	width, height int
	calls         []string
	captureErr    error
}

func (f *fakeDriver) ScreenSize() (int, int) { return f.width, f.height }

func (f *fakeDriver) Move(x, y int) { f.calls = append(f.calls, fmt.Sprintf("move %d,%d", x, y)) }

func (f *fakeDriver) Click(button string, double bool) {
	f.calls = append(f.calls, fmt.Sprintf("click %s double=%v", button, double))
}

func (f *fakeDriver) Toggle(button string, down bool) error {
	state := "up"
	if down {
		state = "down"
	}
	f.calls = append(f.calls, "toggle "+button+" "+state)
	return nil
}

func (f *fakeDriver) Scroll(dx, dy int) { f.calls = append(f.calls, fmt.Sprintf("scroll %d,%d", dx, dy)) }

func (f *fakeDriver) KeyTap(key string, mods ...string) error {
	f.calls = append(f.calls, "key "+strings.Join(append(mods, key), "+"))
	return nil
}

func (f *fakeDriver) Capture() (image.Image, error) {
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func newTestDesktop() (*Desktop, *fakeDriver, afero.Fs) {
	driver := &fakeDriver{width: 1001, height: 501}
	fs := afero.NewMemMapFs()
	d := NewDesktop(
		withDriver(driver),
		WithFs(fs),
		WithScreenshotDir("/shots"),
		withClock(func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
	return d, driver, fs
}

func at(x, y float64) *action.Position {
	return &action.Position{X: x, Y: y}
}

func TestDesktop_Pointer(t *testing.T) {
	ctx := context.Background()

	t.Run("move maps normalized coordinates to pixels", func(t *testing.T) {
		d, driver, _ := newTestDesktop()
		if err := d.Execute(ctx, action.Request{Kind: action.MoveCursor, Position: at(0.5, 1)}); err != nil {
			t.Fatal(err)
		}
		if len(driver.calls) != 1 || driver.calls[0] != "move 500,500" {
			t.Errorf("unexpected calls %v", driver.calls)
		}
	})

	t.Run("move without position fails", func(t *testing.T) {
		d, _, _ := newTestDesktop()
		err := d.Execute(ctx, action.Request{Kind: action.MoveCursor})
		if !errors.Is(err, ErrNoPosition) {
			t.Errorf("expected ErrNoPosition, got %v", err)
		}
	})

	t.Run("gesture click moves first", func(t *testing.T) {
		d, driver, _ := newTestDesktop()
		if err := d.Execute(ctx, action.Request{Kind: action.RightClick, Position: at(0, 0)}); err != nil {
			t.Fatal(err)
		}
		want := []string{"move 0,0", "click right double=false"}
		if strings.Join(driver.calls, ";") != strings.Join(want, ";") {
			t.Errorf("expected %v, got %v", want, driver.calls)
		}
	})

	t.Run("voice click stays in place", func(t *testing.T) {
		d, driver, _ := newTestDesktop()
		if err := d.Execute(ctx, action.Request{Kind: action.DoubleClick, Source: action.SourceVoice}); err != nil {
			t.Fatal(err)
		}
		if len(driver.calls) != 1 || driver.calls[0] != "click left double=true" {
			t.Errorf("unexpected calls %v", driver.calls)
		}
	})

	t.Run("scroll", func(t *testing.T) {
		d, driver, _ := newTestDesktop()
		d.Execute(ctx, action.Request{Kind: action.ScrollUp})
		d.Execute(ctx, action.Request{Kind: action.ScrollDown})
		if len(driver.calls) != 2 || driver.calls[0] != "scroll 0,5" || driver.calls[1] != "scroll 0,-5" {
			t.Errorf("unexpected calls %v", driver.calls)
		}
	})
}

func TestDesktop_Drag(t *testing.T) {
	ctx := context.Background()
	d, driver, _ := newTestDesktop()

	for _, pos := range []*action.Position{at(0.1, 0.1), at(0.2, 0.2)} {
		if err := d.Execute(ctx, action.Request{Kind: action.Drag, Position: pos}); err != nil {
			t.Fatal(err)
		}
	}
	if !d.Dragging() {
		t.Fatal("expected drag to be active")
	}

	if err := d.Execute(ctx, action.Request{Kind: action.Drag, Release: true}); err != nil {
		t.Fatal(err)
	}
	if err := d.Execute(ctx, action.Request{Kind: action.Drag, Release: true}); err != nil {
		t.Fatal(err)
	}
	if d.Dragging() {
		t.Error("expected drag to be released")
	}

	var toggles []string
	for _, c := range driver.calls {
		if strings.HasPrefix(c, "toggle") {
			toggles = append(toggles, c)
		}
	}
	if len(toggles) != 2 || toggles[0] != "toggle left down" || toggles[1] != "toggle left up" {
		t.Errorf("expected one press and one release, got %v", toggles)
	}
}

func TestDesktop_Screenshot(t *testing.T) {
	d, _, fs := newTestDesktop()
	if err := d.Execute(context.Background(), action.Request{Kind: action.Screenshot}); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	name := filepath.Join("/shots", "screenshot-20240301-120000.000.png")
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		t.Fatalf("expected screenshot at %s: %v", name, err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("expected a PNG file")
	}

	d.driver.(*fakeDriver).captureErr = errors.New("no display")
	if err := d.Execute(context.Background(), action.Request{Kind: action.Screenshot}); err == nil {
		t.Error("expected capture failure to surface")
	}
}

func TestDesktop_Keys(t *testing.T) {
	d, driver, _ := newTestDesktop()
	d.keys = keyChords("linux")

	for _, kind := range []action.Kind{action.VolumeUp, action.CloseWindow, action.ZoomIn, action.Confirm, action.CloseBrowser} {
		if err := d.Execute(context.Background(), action.Request{Kind: kind}); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
	}
	want := []string{"key audio_vol_up", "key alt+f4", "key ctrl+=", "key enter", "key ctrl+shift+w"}
	if strings.Join(driver.calls, ";") != strings.Join(want, ";") {
		t.Errorf("expected %v, got %v", want, driver.calls)
	}
}

func TestDesktop_Unsupported(t *testing.T) {
	d, _, _ := newTestDesktop()
	for _, kind := range []action.Kind{action.Lock, action.Shutdown, action.OpenBrowser, action.Unmute, action.OpenCalculator, action.OpenNotepad} {
		if err := d.Execute(context.Background(), action.Request{Kind: kind}); !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s: expected ErrUnsupported, got %v", kind, err)
		}
	}
}

func TestDesktop_CancelledContext(t *testing.T) {
	d, driver, _ := newTestDesktop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Execute(ctx, action.Request{Kind: action.LeftClick}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(driver.calls) != 0 {
		t.Error("expected nothing to run")
	}
}

func TestKeyChords_CoverWindowActions(t *testing.T) {
	for _, goos := range []string{"darwin", "windows", "linux"} {
		keys := keyChords(goos)
		for _, kind := range []action.Kind{action.CloseWindow, action.SwitchWindow, action.MinimizeWindow, action.MaximizeWindow} {
			if _, ok := keys[kind]; !ok {
				t.Errorf("%s: no shortcut for %s", goos, kind)
			}
		}
	}
}

func TestRouter(t *testing.T) {
	var got []string
	record := func(name string) Executor {
		return Func(func(ctx context.Context, req action.Request) error {
			got = append(got, name+":"+string(req.Kind))
			return nil
		})
	}

	r := NewRouter(record("desktop"))
	r.Route(action.Lock, record("plugin"))

	r.Execute(context.Background(), action.Request{Kind: action.Lock})
	r.Execute(context.Background(), action.Request{Kind: action.Mute})

	if len(got) != 2 || got[0] != "plugin:lock" || got[1] != "desktop:mute" {
		t.Errorf("unexpected routing %v", got)
	}

	empty := NewRouter(nil)
	if err := empty.Execute(context.Background(), action.Request{Kind: action.Mute}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported without a fallback, got %v", err)
	}
}

func TestDryRun(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	req := action.Request{Kind: action.MoveCursor, Source: action.SourceGesture, Trigger: "point", Position: at(0.25, 0.75)}
	if err := NewDryRun(logger).Execute(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"kind=move_cursor", "trigger=point", "x=0.25", "y=0.75"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestPlugins(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins need a POSIX shell")
	}

	dir := t.TempDir()
	pluginDir := filepath.Join(dir, "system-control")
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name":"system-control","executable":"run.sh","actions":["lock","shutdown"]}`
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	script := `#!/bin/sh
INPUT=$(cat)
case "$INPUT" in
  *'"action":"lock"'*) echo '{"success":true}' ;;
  *) echo '{"success":false,"error":"denied"}' ;;
esac
`
	if err := os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	manager := plugin.NewManager(dir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	p := NewPlugins(manager, plugin.NewRunner(5*time.Second), map[action.Kind]PluginTarget{
		action.Lock:        {Plugin: "system-control", Action: "lock"},
		action.Shutdown:    {Plugin: "system-control", Action: "shutdown"},
		action.OpenBrowser: {Plugin: "browser", Action: "open"},
	})

	if kinds := p.Kinds(); len(kinds) != 3 {
		t.Errorf("expected 3 routed kinds, got %v", kinds)
	}

	ctx := context.Background()
	if err := p.Execute(ctx, action.Request{Kind: action.Lock, Trigger: "lock", Source: action.SourceVoice}); err != nil {
		t.Errorf("lock: %v", err)
	}
	if err := p.Execute(ctx, action.Request{Kind: action.Shutdown}); !errors.Is(err, ErrPluginRefused) {
		t.Errorf("shutdown: expected ErrPluginRefused, got %v", err)
	}
	if err := p.Execute(ctx, action.Request{Kind: action.OpenBrowser}); !errors.Is(err, plugin.ErrPluginNotFound) {
		t.Errorf("open_browser: expected ErrPluginNotFound, got %v", err)
	}
	if err := p.Execute(ctx, action.Request{Kind: action.Mute}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("mute: expected ErrUnsupported, got %v", err)
	}
}
