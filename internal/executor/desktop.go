package executor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/spf13/afero"

	"github.com/ayusman/mudra/internal/action"
)

// ErrNoPosition is returned when a pointer action arrives without coordinates.
var ErrNoPosition = errors.New("pointer action without position")

// inputDriver is the slice of robotgo the desktop executor uses.
type inputDriver interface {
	ScreenSize() (int, int)
	Move(x, y int)
	Click(button string, double bool)
	Toggle(button string, down bool) error
	Scroll(dx, dy int)
	KeyTap(key string, mods ...string) error
	Capture() (image.Image, error)
}

// chord is a key plus modifiers.
type chord struct {
	key  string
	mods []string
}

// Desktop performs pointer, keyboard, volume and screenshot actions through robotgo.
// Lock, shutdown, unmute and launching applications need OS commands and are
// left to plugins.
type Desktop struct {
	driver        inputDriver
	fs            afero.Fs
	screenshotDir string
	scrollStep    int
	now           func() time.Time
	keys          map[action.Kind]chord

	mu       sync.Mutex
	dragging bool
}

// DesktopOption configures a Desktop.
type DesktopOption func(*Desktop)

// WithFs sets the filesystem screenshots are written to.
func WithFs(fs afero.Fs) DesktopOption {
	return func(d *Desktop) { d.fs = fs }
}

// WithScreenshotDir sets where screenshots are saved.
func WithScreenshotDir(dir string) DesktopOption {
	return func(d *Desktop) { d.screenshotDir = dir }
}

func withDriver(driver inputDriver) DesktopOption {
	return func(d *Desktop) { d.driver = driver }
}

func withClock(now func() time.Time) DesktopOption {
	return func(d *Desktop) { d.now = now }
}

// NewDesktop creates a robotgo backed executor.
func NewDesktop(opts ...DesktopOption) *Desktop {
	d := &Desktop{
		driver:        robotgoDriver{},
		fs:            afero.NewOsFs(),
		screenshotDir: ".",
		scrollStep:    5,
		now:           time.Now,
		keys:          keyChords(runtime.GOOS),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Desktop) Execute(ctx context.Context, req action.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch req.Kind {
	case action.MoveCursor:
		return d.move(req.Position)
	case action.LeftClick:
		return d.click(req.Position, "left", false)
	case action.RightClick:
		return d.click(req.Position, "right", false)
	case action.DoubleClick:
		return d.click(req.Position, "left", true)
	case action.Drag:
		return d.drag(req)
	case action.ScrollUp:
		d.driver.Scroll(0, d.scrollStep)
		return nil
	case action.ScrollDown:
		d.driver.Scroll(0, -d.scrollStep)
		return nil
	case action.Screenshot:
		_, err := d.screenshot()
		return err
	case action.Noop:
		return nil
	}

	if c, ok := d.keys[req.Kind]; ok {
		if err := d.driver.KeyTap(c.key, c.mods...); err != nil {
			return fmt.Errorf("%s: %w", req.Kind, err)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", req.Kind, ErrUnsupported)
}

// Dragging reports whether the left button is currently held.
func (d *Desktop) Dragging() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dragging
}

func (d *Desktop) move(pos *action.Position) error {
	if pos == nil {
		return ErrNoPosition
	}
	w, h := d.driver.ScreenSize()
	d.driver.Move(int(pos.X*float64(w-1)), int(pos.Y*float64(h-1)))
	return nil
}

// click moves first when a position is given; voice clicks land where the
// cursor already is.
func (d *Desktop) click(pos *action.Position, button string, double bool) error {
	if pos != nil {
		if err := d.move(pos); err != nil {
			return err
		}
	}
	d.driver.Click(button, double)
	return nil
}

func (d *Desktop) drag(req action.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if req.Release {
		if !d.dragging {
			return nil
		}
		d.dragging = false
		if err := d.driver.Toggle("left", false); err != nil {
			return fmt.Errorf("release drag: %w", err)
		}
		return nil
	}

	if err := d.move(req.Position); err != nil {
		return err
	}
	if !d.dragging {
		if err := d.driver.Toggle("left", true); err != nil {
			return fmt.Errorf("start drag: %w", err)
		}
		d.dragging = true
	}
	return nil
}

func (d *Desktop) screenshot() (string, error) {
	img, err := d.driver.Capture()
	if err != nil {
		return "", fmt.Errorf("capture screen: %w", err)
	}

	if err := d.fs.MkdirAll(d.screenshotDir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	name := filepath.Join(d.screenshotDir, "screenshot-"+d.now().Format("20060102-150405.000")+".png")
	f, err := d.fs.Create(name)
	if err != nil {
		return "", fmt.Errorf("create screenshot: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	return name, nil
}

// keyChords maps keyboard driven actions to the platform's shortcuts.
func keyChords(goos string) map[action.Kind]chord {
	primary := "ctrl"
	if goos == "darwin" {
		primary = "cmd"
	}

	keys := map[action.Kind]chord{
		action.VolumeUp:     {key: "audio_vol_up"},
		action.VolumeDown:   {key: "audio_vol_down"},
		action.Mute:         {key: "audio_mute"},
		action.ZoomIn:       {key: "=", mods: []string{primary}},
		action.ZoomOut:      {key: "-", mods: []string{primary}},
		action.Confirm:      {key: "enter"},
		action.CloseBrowser: {key: "w", mods: []string{primary, "shift"}},
	}

	switch goos {
	case "darwin":
		keys[action.CloseWindow] = chord{key: "w", mods: []string{"cmd"}}
		keys[action.SwitchWindow] = chord{key: "tab", mods: []string{"cmd"}}
		keys[action.MinimizeWindow] = chord{key: "m", mods: []string{"cmd"}}
		keys[action.MaximizeWindow] = chord{key: "f", mods: []string{"cmd", "ctrl"}}
	case "windows":
		keys[action.CloseWindow] = chord{key: "f4", mods: []string{"alt"}}
		keys[action.SwitchWindow] = chord{key: "tab", mods: []string{"alt"}}
		keys[action.MinimizeWindow] = chord{key: "down", mods: []string{"cmd"}}
		keys[action.MaximizeWindow] = chord{key: "up", mods: []string{"cmd"}}
	default:
		keys[action.CloseWindow] = chord{key: "f4", mods: []string{"alt"}}
		keys[action.SwitchWindow] = chord{key: "tab", mods: []string{"alt"}}
		keys[action.MinimizeWindow] = chord{key: "h", mods: []string{"cmd"}}
		keys[action.MaximizeWindow] = chord{key: "up", mods: []string{"cmd"}}
	}
	return keys
}

// robotgoDriver is the production inputDriver.
type robotgoDriver struct{}

func (robotgoDriver) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

func (robotgoDriver) Move(x, y int) {
	robotgo.Move(x, y)
}

func (robotgoDriver) Click(button string, double bool) {
	robotgo.Click(button, double)
}

func (robotgoDriver) Toggle(button string, down bool) error {
	if down {
		return robotgo.Toggle(button)
	}
	return robotgo.Toggle(button, "up")
}

func (robotgoDriver) Scroll(dx, dy int) {
	robotgo.Scroll(dx, dy)
}

func (robotgoDriver) KeyTap(key string, mods ...string) error {
	args := make([]interface{}, len(mods))
	for i, m := range mods {
		args[i] = m
	}
	return robotgo.KeyTap(key, args...)
}

func (robotgoDriver) Capture() (image.Image, error) {
	return robotgo.CaptureImg()
}
