package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/audio"

	"github.com/ayusman/mudra/internal/speech"
)

// Transcriber runs whisper.cpp over captured utterances.
type Transcriber struct {
	model    whisper.Model
	language string

	// whisper contexts are not safe for concurrent use
	mu sync.Mutex
}

// LoadTranscriber loads a ggml model from path. An empty or "auto" language
// lets multilingual models detect it.
func LoadTranscriber(path, language string) (*Transcriber, error) {
	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %s: %w", path, err)
	}
	return &Transcriber{model: model, language: language}, nil
}

func (t *Transcriber) Transcribe(ctx context.Context, buf *audio.IntBuffer) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("new whisper context: %w", err)
	}
	if t.language != "" && t.language != "auto" {
		if err := wctx.SetLanguage(t.language); err != nil {
			return "", fmt.Errorf("set language %q: %w", t.language, err)
		}
	}

	if err := wctx.Process(speech.PCM(buf), nil); err != nil {
		return "", fmt.Errorf("process audio: %w", err)
	}

	var segments []string
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}
	return speech.CleanTranscript(segments), nil
}

// Close frees the model.
func (t *Transcriber) Close() error {
	return t.model.Close()
}

// Open builds a speech.Listener on the default microphone and the model at
// modelPath.
func Open(modelPath, language, wakeWord string, opts ...speech.ListenerOption) (*speech.Listener, error) {
	tr, err := LoadTranscriber(modelPath, language)
	if err != nil {
		return nil, err
	}
	mic, err := OpenMicrophone()
	if err != nil {
		tr.Close()
		return nil, err
	}
	return speech.NewListener(mic, tr, wakeWord, opts...), nil
}
