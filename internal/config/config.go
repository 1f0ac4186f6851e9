// Package config loads and validates the mudra YAML configuration.
//
// Defaults and validation live here so the rest of the code can assume a
// well-formed config.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/action"
)

// DefaultPath is where mudra looks for its config when no -config flag is given.
const DefaultPath = "~/.mudra/config.yaml"

// Config is the top-level YAML configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Gesture  GestureConfig  `yaml:"gesture"`
	Voice    VoiceConfig    `yaml:"voice"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Bindings BindingsConfig `yaml:"bindings"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Tray     TrayConfig     `yaml:"tray"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type CameraConfig struct {
	Index           int     `yaml:"index"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FPSIdle         int     `yaml:"fps_idle"`
	FPSActive       int     `yaml:"fps_active"`
	MotionThreshold float64 `yaml:"motion_threshold"`
	IdleTimeoutMS   int     `yaml:"idle_timeout_ms"`
	Mirror          bool    `yaml:"mirror"` // selfie view: flip x before mapping to the screen
}

type DetectorConfig struct {
	MaxHands               int     `yaml:"max_hands"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `yaml:"min_tracking_confidence"`
}

type GestureConfig struct {
	Enabled           bool    `yaml:"enabled"`
	SmoothingFactor   float64 `yaml:"smoothing_factor"` // EMA weight of the newest cursor sample
	SmoothingWindow   int     `yaml:"smoothing_window"` // majority vote window, in frames
	MinConfidence     float64 `yaml:"min_confidence"`
	PinchThreshold    float64 `yaml:"pinch_threshold"` // thumb-index distance / hand size
	ExtensionRatio    float64 `yaml:"extension_ratio"`
	CursorSensitivity float64 `yaml:"cursor_sensitivity"`
	SwipeDistance     float64 `yaml:"swipe_distance"`
	SwipeWindowMS     int     `yaml:"swipe_window_ms"`
}

type VoiceConfig struct {
	Enabled            bool   `yaml:"enabled"`
	WakeWord           string `yaml:"wake_word"`
	ActivationWindowMS int    `yaml:"activation_window_ms"`
	PhraseTimeLimitMS  int    `yaml:"phrase_time_limit_ms"`
	ModelPath          string `yaml:"model_path"`
	Language           string `yaml:"language"`
	// RecordDir, when set, keeps a wav file of every captured utterance.
	RecordDir string `yaml:"record_dir,omitempty"`
	// Feedback speaks a short confirmation after each voice command.
	Feedback bool `yaml:"feedback"`
}

type DispatchConfig struct {
	CooldownMS        int            `yaml:"cooldown_ms"`
	CooldownOverrides map[string]int `yaml:"cooldown_overrides,omitempty"`
	AllowShutdown     bool           `yaml:"allow_shutdown"`
	DryRun            bool           `yaml:"dry_run"`
}

// BindingsConfig is the trigger table: gesture label or voice phrase to action kind.
type BindingsConfig struct {
	Gestures map[string]string `yaml:"gestures"`
	Voice    map[string]string `yaml:"voice"`
}

type PluginsConfig struct {
	Dir       string                 `yaml:"dir"`
	TimeoutMS int                    `yaml:"timeout_ms"`
	Routes    map[string]PluginRoute `yaml:"routes,omitempty"`
}

// PluginRoute sends an action kind to a plugin instead of the built-in executor.
type PluginRoute struct {
	Plugin string `yaml:"plugin"`
	Action string `yaml:"action"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"` // empty disables the status server
	StaticDir string `yaml:"static_dir"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Camera: CameraConfig{
			Index:           0,
			Width:           640,
			Height:          480,
			FPSIdle:         5,
			FPSActive:       15,
			MotionThreshold: 0.02,
			IdleTimeoutMS:   2000,
			Mirror:          true,
		},
		Detector: DetectorConfig{
			MaxHands:               1,
			MinDetectionConfidence: 0.7,
			MinTrackingConfidence:  0.5,
		},
		Gesture: GestureConfig{
			Enabled:           true,
			SmoothingFactor:   0.35,
			SmoothingWindow:   5,
			MinConfidence:     0.8,
			PinchThreshold:    0.25,
			ExtensionRatio:    1.3,
			CursorSensitivity: 1.5,
			SwipeDistance:     0.25,
			SwipeWindowMS:     600,
		},
		Voice: VoiceConfig{
			Enabled:            true,
			WakeWord:           "computer",
			ActivationWindowMS: 5000,
			PhraseTimeLimitMS:  5000,
			ModelPath:          "~/.mudra/models/ggml-base.en.bin",
			Language:           "en",
			Feedback:           true,
		},
		Dispatch: DispatchConfig{
			CooldownMS: 1000,
			CooldownOverrides: map[string]int{
				string(action.MoveCursor): 0,
				string(action.Drag):       0,
			},
		},
		Bindings: BindingsConfig{
			Gestures: map[string]string{
				"point":         string(action.MoveCursor),
				"pinch":         string(action.Drag),
				"two_fingers":   string(action.LeftClick),
				"three_fingers": string(action.RightClick),
				"thumbs_up":     string(action.VolumeUp),
				"fist":          string(action.CloseWindow),
				"open_palm":     string(action.Noop),
				"four_fingers":  string(action.Screenshot),
				"swipe_left":    string(action.SwitchWindow),
				"swipe_right":   string(action.SwitchWindow),
				"swipe_up":      string(action.ScrollUp),
				"swipe_down":    string(action.ScrollDown),
			},
			Voice: map[string]string{
				"open browser":    string(action.OpenBrowser),
				"close browser":   string(action.CloseBrowser),
				"open calculator": string(action.OpenCalculator),
				"open notepad":    string(action.OpenNotepad),
				"unmute":          string(action.Unmute),
				"volume up":       string(action.VolumeUp),
				"volume down":     string(action.VolumeDown),
				"mute":            string(action.Mute),
				"take screenshot": string(action.Screenshot),
				"screenshot":      string(action.Screenshot),
				"minimize window": string(action.MinimizeWindow),
				"maximize window": string(action.MaximizeWindow),
				"close window":    string(action.CloseWindow),
				"switch window":   string(action.SwitchWindow),
				"scroll up":       string(action.ScrollUp),
				"scroll down":     string(action.ScrollDown),
				"zoom in":         string(action.ZoomIn),
				"zoom out":        string(action.ZoomOut),
				"click":           string(action.LeftClick),
				"right click":     string(action.RightClick),
				"double click":    string(action.DoubleClick),
				"lock screen":     string(action.Lock),
				"confirm":         string(action.Confirm),
			},
		},
		Plugins: PluginsConfig{
			Dir:       "~/.mudra/plugins",
			TimeoutMS: 5000,
			Routes: map[string]PluginRoute{
				string(action.Lock):           {Plugin: "system-control", Action: "lock"},
				string(action.Shutdown):       {Plugin: "system-control", Action: "shutdown"},
				string(action.OpenBrowser):    {Plugin: "system-control", Action: "open-browser"},
				string(action.Unmute):         {Plugin: "system-control", Action: "volume-unmute"},
				string(action.OpenCalculator): {Plugin: "system-control", Action: "open-calculator"},
				string(action.OpenNotepad):    {Plugin: "system-control", Action: "open-notepad"},
			},
		},
		Store: StoreConfig{
			Path: "~/.mudra/mudra.db",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7373",
		},
		Tray: TrayConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config at path. A missing file at the default location is not
// an error: defaults are returned. An explicitly named file must exist.
func Load(path string, explicit bool) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg, err := LoadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads, parses and validates a YAML config file. Unknown fields are
// rejected.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of DefaultConfig.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// Validate checks config invariants and returns a user-friendly error.
func (c *Config) Validate() error {
	// Camera
	if c.Camera.Index < 0 {
		return errors.New("camera.index must be >= 0")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return errors.New("camera.width and camera.height must be > 0")
	}
	if c.Camera.FPSIdle <= 0 || c.Camera.FPSActive <= 0 {
		return errors.New("camera.fps_idle and camera.fps_active must be > 0")
	}
	if c.Camera.FPSIdle > c.Camera.FPSActive {
		return errors.New("camera.fps_idle must be <= camera.fps_active")
	}
	if c.Camera.MotionThreshold < 0 || c.Camera.MotionThreshold > 1 {
		return errors.New("camera.motion_threshold must be between 0 and 1")
	}
	if c.Camera.IdleTimeoutMS < 0 {
		return errors.New("camera.idle_timeout_ms must be >= 0")
	}

	// Detector
	if c.Detector.MaxHands < 1 {
		return errors.New("detector.max_hands must be >= 1")
	}
	if !unit(c.Detector.MinDetectionConfidence) || !unit(c.Detector.MinTrackingConfidence) {
		return errors.New("detector confidences must be between 0 and 1")
	}

	// Gesture
	g := c.Gesture
	if g.SmoothingFactor <= 0 || g.SmoothingFactor > 1 {
		return errors.New("gesture.smoothing_factor must be in (0, 1]")
	}
	if g.SmoothingWindow < 1 {
		return errors.New("gesture.smoothing_window must be >= 1")
	}
	if !unit(g.MinConfidence) {
		return errors.New("gesture.min_confidence must be between 0 and 1")
	}
	if g.PinchThreshold <= 0 {
		return errors.New("gesture.pinch_threshold must be > 0")
	}
	if g.ExtensionRatio < 1 {
		return errors.New("gesture.extension_ratio must be >= 1")
	}
	if g.CursorSensitivity <= 0 {
		return errors.New("gesture.cursor_sensitivity must be > 0")
	}
	if g.SwipeDistance <= 0 || g.SwipeDistance > 1 {
		return errors.New("gesture.swipe_distance must be in (0, 1]")
	}
	if g.SwipeWindowMS <= 0 {
		return errors.New("gesture.swipe_window_ms must be > 0")
	}

	// Voice
	if c.Voice.Enabled {
		if action.NormalizeText(c.Voice.WakeWord) == "" {
			return errors.New("voice.wake_word must not be empty")
		}
		if c.Voice.ActivationWindowMS <= 0 {
			return errors.New("voice.activation_window_ms must be > 0")
		}
		if c.Voice.PhraseTimeLimitMS <= 0 {
			return errors.New("voice.phrase_time_limit_ms must be > 0")
		}
		if c.Voice.ModelPath == "" {
			return errors.New("voice.model_path must not be empty")
		}
	}

	// Dispatch
	if c.Dispatch.CooldownMS < 0 {
		return errors.New("dispatch.cooldown_ms must be >= 0")
	}
	for kind, ms := range c.Dispatch.CooldownOverrides {
		if _, err := action.ParseKind(kind); err != nil {
			return fmt.Errorf("dispatch.cooldown_overrides: %w", err)
		}
		if ms < 0 {
			return fmt.Errorf("dispatch.cooldown_overrides.%s must be >= 0", kind)
		}
	}

	// Bindings
	for label, kind := range c.Bindings.Gestures {
		if _, err := action.ParseKind(kind); err != nil {
			return fmt.Errorf("bindings.gestures.%s: %w", label, err)
		}
	}
	for phrase, kind := range c.Bindings.Voice {
		if _, err := action.ParseKind(kind); err != nil {
			return fmt.Errorf("bindings.voice[%q]: %w", phrase, err)
		}
	}

	// Plugins
	if c.Plugins.TimeoutMS <= 0 {
		return errors.New("plugins.timeout_ms must be > 0")
	}
	for kind, route := range c.Plugins.Routes {
		if _, err := action.ParseKind(kind); err != nil {
			return fmt.Errorf("plugins.routes: %w", err)
		}
		if route.Plugin == "" || route.Action == "" {
			return fmt.Errorf("plugins.routes.%s needs both plugin and action", kind)
		}
	}

	// Store
	if c.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// Cooldowns converts the dispatch section into a default interval plus
// per-kind overrides. Continuous kinds fall back to zero unless overridden.
func (c *Config) Cooldowns() (time.Duration, map[action.Kind]time.Duration) {
	def := time.Duration(c.Dispatch.CooldownMS) * time.Millisecond
	overrides := make(map[action.Kind]time.Duration)
	for _, k := range action.Kinds() {
		if k.Continuous() {
			overrides[k] = 0
		}
	}
	for name, ms := range c.Dispatch.CooldownOverrides {
		kind, err := action.ParseKind(name)
		if err != nil {
			continue
		}
		overrides[kind] = time.Duration(ms) * time.Millisecond
	}
	return def, overrides
}

// ActivationWindow is the voice activation window as a duration.
func (c *Config) ActivationWindow() time.Duration {
	return time.Duration(c.Voice.ActivationWindowMS) * time.Millisecond
}

// PhraseTimeLimit bounds how long one spoken phrase may run.
func (c *Config) PhraseTimeLimit() time.Duration {
	return time.Duration(c.Voice.PhraseTimeLimitMS) * time.Millisecond
}

// SwipeWindow is the time span a swipe must complete within.
func (c *Config) SwipeWindow() time.Duration {
	return time.Duration(c.Gesture.SwipeWindowMS) * time.Millisecond
}

// PluginTimeout bounds a single plugin invocation.
func (c *Config) PluginTimeout() time.Duration {
	return time.Duration(c.Plugins.TimeoutMS) * time.Millisecond
}

// IdleTimeout is how long the camera stays at the active frame rate without motion.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Camera.IdleTimeoutMS) * time.Millisecond
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
