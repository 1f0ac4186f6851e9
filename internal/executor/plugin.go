package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/plugin"
)

// ErrPluginRefused is returned when a plugin answers with success false.
var ErrPluginRefused = errors.New("plugin refused action")

// PluginTarget names the plugin and plugin action that perform a kind.
type PluginTarget struct {
	Plugin string
	Action string
}

// Plugins performs actions by running out-of-process plugins.
type Plugins struct {
	manager *plugin.Manager
	runner  *plugin.Runner
	targets map[action.Kind]PluginTarget
}

// NewPlugins creates a plugin backed executor for the given targets.
func NewPlugins(manager *plugin.Manager, runner *plugin.Runner, targets map[action.Kind]PluginTarget) *Plugins {
	t := make(map[action.Kind]PluginTarget, len(targets))
	for k, v := range targets {
		t[k] = v
	}
	return &Plugins{manager: manager, runner: runner, targets: t}
}

// Kinds returns the kinds this executor has a target for.
func (p *Plugins) Kinds() []action.Kind {
	kinds := make([]action.Kind, 0, len(p.targets))
	for _, k := range action.Kinds() {
		if _, ok := p.targets[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (p *Plugins) Execute(ctx context.Context, req action.Request) error {
	target, ok := p.targets[req.Kind]
	if !ok {
		return fmt.Errorf("%s: %w", req.Kind, ErrUnsupported)
	}

	plug, err := p.manager.Get(target.Plugin)
	if err != nil {
		return fmt.Errorf("%s via %s: %w", req.Kind, target.Plugin, err)
	}

	preq := &plugin.Request{
		Action:  target.Action,
		Trigger: req.Trigger,
		Source:  string(req.Source),
	}
	if req.Position != nil {
		params, err := json.Marshal(req.Position)
		if err != nil {
			return fmt.Errorf("encode position: %w", err)
		}
		preq.Params = params
	}

	resp, err := p.runner.Run(ctx, plug, preq)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s: %w: %s", target.Plugin, ErrPluginRefused, resp.Error)
	}
	return nil
}
