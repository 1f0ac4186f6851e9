package feedback

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayusman/mudra/internal/plugin"
)

const speakAction = "speak"

// PluginSpeaker reads text aloud through a plugin's speak action.
type PluginSpeaker struct {
	manager *plugin.Manager
	runner  *plugin.Runner
	name    string
}

// NewPluginSpeaker creates a speaker backed by the named plugin.
func NewPluginSpeaker(manager *plugin.Manager, runner *plugin.Runner, name string) *PluginSpeaker {
	return &PluginSpeaker{manager: manager, runner: runner, name: name}
}

func (s *PluginSpeaker) Speak(ctx context.Context, text string) error {
	p, err := s.manager.Get(s.name)
	if err != nil {
		return fmt.Errorf("speak via %s: %w", s.name, err)
	}
	if !p.Manifest.Supports(speakAction) {
		return fmt.Errorf("plugin %s cannot speak", s.name)
	}

	params, err := json.Marshal(struct {
		Text string `json:"text"`
	}{text})
	if err != nil {
		return fmt.Errorf("encode speech: %w", err)
	}
	resp, err := s.runner.Run(ctx, p, &plugin.Request{Action: speakAction, Source: "feedback", Params: params})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s: %s", s.name, resp.Error)
	}
	return nil
}
