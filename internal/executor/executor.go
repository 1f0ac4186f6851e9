// Package executor performs actions on the desktop.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/logging"
)

// ErrUnsupported is returned for an action kind the executor cannot perform.
var ErrUnsupported = errors.New("action not supported")

// Executor performs one action request.
type Executor interface {
	Execute(ctx context.Context, req action.Request) error
}

// Func adapts a function to the Executor interface.
type Func func(ctx context.Context, req action.Request) error

func (f Func) Execute(ctx context.Context, req action.Request) error {
	return f(ctx, req)
}

// Router sends each kind to the executor registered for it, falling back to a
// default executor for the rest.
type Router struct {
	routes   map[action.Kind]Executor
	fallback Executor
}

// NewRouter creates a router whose unrouted kinds go to fallback.
func NewRouter(fallback Executor) *Router {
	return &Router{routes: make(map[action.Kind]Executor), fallback: fallback}
}

// Route registers e for kind. Call before the router is shared.
func (r *Router) Route(kind action.Kind, e Executor) {
	r.routes[kind] = e
}

func (r *Router) Execute(ctx context.Context, req action.Request) error {
	if e, ok := r.routes[req.Kind]; ok {
		return e.Execute(ctx, req)
	}
	if r.fallback == nil {
		return fmt.Errorf("%s: %w", req.Kind, ErrUnsupported)
	}
	return r.fallback.Execute(ctx, req)
}

// DryRun logs requests instead of performing them.
type DryRun struct {
	logger *slog.Logger
}

// NewDryRun creates a logging-only executor.
func NewDryRun(logger *slog.Logger) *DryRun {
	return &DryRun{logger: logging.OrDefault(logger)}
}

func (d *DryRun) Execute(ctx context.Context, req action.Request) error {
	attrs := []any{"kind", req.Kind, "source", req.Source, "trigger", req.Trigger}
	if req.Position != nil {
		attrs = append(attrs, "x", req.Position.X, "y", req.Position.Y)
	}
	if req.Release {
		attrs = append(attrs, "release", true)
	}
	d.logger.Info("dry run", attrs...)
	return nil
}
