package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", config.DefaultPath, "Path to the YAML config file")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Mudra v%s: gesture and voice desktop control\n\n", version)
		fmt.Fprintln(flag.CommandLine.Output(), "USAGE:\n  mudra [-config path]\n\nOPTIONS:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("Mudra v%s\n", version)
		return 0
	}

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	cfg, err := config.Load(config.ExpandPath(*configPath), explicit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		return 1
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys, err := build(&cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer sys.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sys.app.Run(gctx) })
	if sys.server != nil {
		g.Go(func() error { return sys.server.ListenAndServe(gctx, cfg.Server.Addr) })
	}

	// The tray owns the main goroutine while it runs.
	if sys.tray != nil {
		sys.tray.OnQuit(cancel)
		go func() {
			<-gctx.Done()
			cancel()
		}()
		sys.tray.Run(ctx)
		cancel()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mudra stopped with an error", "error", err)
		return 1
	}
	logger.Info("mudra stopped")
	return 0
}
