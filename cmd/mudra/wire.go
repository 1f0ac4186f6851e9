package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/executor"
	"github.com/ayusman/mudra/internal/feedback"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/speech"
	"github.com/ayusman/mudra/internal/speech/whisper"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

const (
	// historyLimit caps the stored dispatch history.
	historyLimit = 10000
	// feedbackPlugin reads voice confirmations aloud.
	feedbackPlugin = "system-control"
)

type system struct {
	store     *store.Store
	announcer *feedback.Announcer
	app       *app.App
	server    *server.Server
	tray      *tray.Tray
}

// close releases what the app does not own.
func (s *system) close() {
	if s.announcer != nil {
		s.announcer.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

// build opens every configured component. Any failure is a startup failure;
// whatever was already opened is released.
func build(cfg *config.Config, logger *slog.Logger) (sys *system, err error) {
	sys = &system{}
	var closers []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		sys.close()
	}()

	storePath := config.ExpandPath(cfg.Store.Path)
	sys.store, err = store.New(storePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	mapping, err := action.NewMapping(cfg.Bindings.Gestures, cfg.Bindings.Voice,
		action.AllowShutdown(cfg.Dispatch.AllowShutdown),
		action.OnDropped(func(trigger string, kind action.Kind) {
			logger.Warn("binding dropped, shutdown is not allowed", "trigger", trigger, "kind", kind)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("bindings: %w", err)
	}

	exec, err := newExecutor(cfg, filepath.Join(filepath.Dir(storePath), "screenshots"), logger)
	if err != nil {
		return nil, err
	}

	def, overrides := cfg.Cooldowns()
	disp := dispatch.New(mapping, exec, dispatch.NewCooldown(def, overrides), dispatch.WithLogger(logger))

	if cfg.Voice.Enabled && cfg.Voice.Feedback {
		speaker, err := newSpeaker(cfg, logger)
		if err != nil {
			return nil, err
		}
		sys.announcer = feedback.NewAnnouncer(speaker, feedback.WithLogger(logger), feedback.WithTimeout(cfg.PluginTimeout()))
		disp.Observe(sys.announcer.Observe)
	}

	templates := gesture.NewTemplateSet()
	deps := app.Deps{
		Dispatcher: disp,
		Templates:  templates,
		Store:      sys.store,
		Logger:     logger,
	}

	if cfg.Gesture.Enabled {
		src, err := openLandmarks(cfg, logger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, src.Close)
		deps.Landmarks = src
		deps.Interpreter = gesture.NewInterpreter(interpreterConfig(cfg), templates)
	}

	if cfg.Voice.Enabled {
		listener, err := openSpeech(cfg, logger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, listener.Close)
		deps.Speech = listener
	}

	if deps.Landmarks == nil && deps.Speech == nil {
		return nil, errors.New("both gesture and voice control are disabled")
	}

	sys.app, err = app.New(app.Config{
		ActivationWindow: cfg.ActivationWindow(),
		PhraseTimeLimit:  cfg.PhraseTimeLimit(),
		GestureEnabled:   cfg.Gesture.Enabled,
		VoiceEnabled:     cfg.Voice.Enabled,
		HistoryLimit:     historyLimit,
	}, deps)
	if err != nil {
		return nil, err
	}
	closers = []func() error{sys.app.Close}

	if _, err := sys.app.LoadTemplates(); err != nil {
		return nil, err
	}

	if cfg.Server.Addr != "" {
		hub := server.NewEventHub(logger)
		disp.Observe(func(rec dispatch.Record) { hub.Broadcast("dispatch", rec) })
		sys.app.Observe(func(ev app.Event) { hub.Broadcast("state", ev) })
		sys.server = server.New(server.Config{
			StaticDir: config.ExpandPath(cfg.Server.StaticDir),
			Store:     sys.store,
			Status:    sys.app,
			Templates: templates,
			Hub:       hub,
			Logger:    logger,
		})
	}

	if cfg.Tray.Enabled {
		sys.tray = newTray(sys.app, disp, statusURL(cfg.Server.Addr), logger)
	}

	logger.Info("mudra ready",
		"gesture", deps.Landmarks != nil,
		"voice", deps.Speech != nil,
		"server", cfg.Server.Addr,
		"dry_run", cfg.Dispatch.DryRun,
	)
	return sys, nil
}

// newExecutor routes plugin-backed kinds to their plugins and everything else
// to the desktop, or to the log in dry-run mode.
func newExecutor(cfg *config.Config, screenshotDir string, logger *slog.Logger) (executor.Executor, error) {
	var fallback executor.Executor = executor.NewDesktop(executor.WithScreenshotDir(screenshotDir))
	if cfg.Dispatch.DryRun {
		fallback = executor.NewDryRun(logger)
	}
	router := executor.NewRouter(fallback)
	if len(cfg.Plugins.Routes) == 0 || cfg.Dispatch.DryRun {
		return router, nil
	}

	manager := plugin.NewManager(config.ExpandPath(cfg.Plugins.Dir), plugin.WithLogger(logger))
	if err := manager.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins: %w", err)
	}

	targets := make(map[action.Kind]executor.PluginTarget, len(cfg.Plugins.Routes))
	for name, route := range cfg.Plugins.Routes {
		kind, err := action.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("plugins.routes: %w", err)
		}
		targets[kind] = executor.PluginTarget{Plugin: route.Plugin, Action: route.Action}
	}

	plugins := executor.NewPlugins(manager, plugin.NewRunner(cfg.PluginTimeout()), targets)
	for _, kind := range plugins.Kinds() {
		router.Route(kind, plugins)
	}
	logger.Debug("plugins discovered", "dir", manager.PluginDir(), "count", len(manager.List()))
	return router, nil
}

// newSpeaker reads confirmations through the system-control plugin, or only
// logs them in dry-run mode.
func newSpeaker(cfg *config.Config, logger *slog.Logger) (feedback.Speaker, error) {
	if cfg.Dispatch.DryRun {
		return feedback.NewLogSpeaker(logger), nil
	}
	manager := plugin.NewManager(config.ExpandPath(cfg.Plugins.Dir), plugin.WithLogger(logger))
	if err := manager.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins: %w", err)
	}
	return feedback.NewPluginSpeaker(manager, plugin.NewRunner(cfg.PluginTimeout()), feedbackPlugin), nil
}

func openLandmarks(cfg *config.Config, logger *slog.Logger) (*landmark.CameraSource, error) {
	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:               cfg.Detector.MaxHands,
		MinDetectionConfidence: cfg.Detector.MinDetectionConfidence,
		MinTrackingConfidence:  cfg.Detector.MinTrackingConfidence,
	})
	if err != nil {
		return nil, fmt.Errorf("landmark service: %w", err)
	}
	if err := det.Start(); err != nil {
		return nil, fmt.Errorf("landmark service: %w", err)
	}

	cam := capture.NewCamera(capture.Config{
		Index:  cfg.Camera.Index,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    cfg.Camera.FPSActive,
	})
	src := landmark.NewCameraSource(cam, capture.NewMotionDetector(cfg.Camera.MotionThreshold), det,
		landmark.Config{
			FPSIdle:     cfg.Camera.FPSIdle,
			FPSActive:   cfg.Camera.FPSActive,
			IdleTimeout: cfg.IdleTimeout(),
		},
		landmark.WithLogger(logger),
	)
	if err := src.Open(); err != nil {
		src.Close()
		return nil, fmt.Errorf("open camera %d: %w", cfg.Camera.Index, err)
	}
	return src, nil
}

func interpreterConfig(cfg *config.Config) gesture.Config {
	g := cfg.Gesture
	return gesture.Config{
		SmoothingFactor: g.SmoothingFactor,
		SmoothingWindow: g.SmoothingWindow,
		MinConfidence:   g.MinConfidence,
		Pose: gesture.PoseConfig{
			ExtensionRatio: g.ExtensionRatio,
			PinchThreshold: g.PinchThreshold,
		},
		CursorSensitivity: g.CursorSensitivity,
		SwipeDistance:     g.SwipeDistance,
		SwipeWindow:       cfg.SwipeWindow(),
		Mirror:            cfg.Camera.Mirror,
	}
}

func openSpeech(cfg *config.Config, logger *slog.Logger) (*speech.Listener, error) {
	opts := []speech.ListenerOption{
		speech.WithPhraseLimit(cfg.PhraseTimeLimit()),
		speech.WithLogger(logger),
	}
	if cfg.Voice.RecordDir != "" {
		opts = append(opts, speech.WithRecorder(speech.NewRecorder(afero.NewOsFs(), config.ExpandPath(cfg.Voice.RecordDir))))
	}
	listener, err := whisper.Open(config.ExpandPath(cfg.Voice.ModelPath), cfg.Voice.Language, cfg.Voice.WakeWord, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech: %w", err)
	}
	return listener, nil
}
