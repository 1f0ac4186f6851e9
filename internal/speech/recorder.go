package speech

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// Recorder saves captured utterances as wav files for later inspection.
type Recorder struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewRecorder creates a Recorder writing into dir on fs.
func NewRecorder(fs afero.Fs, dir string) *Recorder {
	return &Recorder{fs: fs, dir: dir, now: time.Now}
}

// Save writes buf to a timestamped file tagged with kind ("wake" or "phrase")
// and returns its path.
func (r *Recorder) Save(buf *audio.IntBuffer, kind string) (string, error) {
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create record dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.wav", r.now().Format("20060102-150405.000"), strings.ToLower(kind))
	path := filepath.Join(r.dir, name)
	f, err := r.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("create recording: %w", err)
	}
	defer f.Close()

	rate := SampleRate
	if buf.Format != nil && buf.Format.SampleRate > 0 {
		rate = buf.Format.SampleRate
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return "", fmt.Errorf("write recording: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("finish recording: %w", err)
	}
	return path, nil
}
