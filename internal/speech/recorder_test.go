package speech

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// loadRecording reads a saved recording back into a buffer.
func loadRecording(fs afero.Fs, path string) (*audio.IntBuffer, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a wav file", path)
	}
	return dec.FullPCMBuffer()
}

func TestRecorder_SaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewRecorder(fs, "/recordings")
	r.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           []int{0, 100, -100, 32767, -32768, 5},
		SourceBitDepth: 16,
	}
	path, err := r.Save(buf, "Phrase")
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if !strings.HasSuffix(path, "20240501-093000.000-phrase.wav") {
		t.Errorf("unexpected file name %q", path)
	}

	got, err := loadRecording(fs, path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got.Format.SampleRate != SampleRate || got.Format.NumChannels != 1 {
		t.Errorf("unexpected format %+v", got.Format)
	}
	if len(got.Data) != len(buf.Data) {
		t.Fatalf("expected %d samples, got %d", len(buf.Data), len(got.Data))
	}
	for i := range buf.Data {
		if got.Data[i] != buf.Data[i] {
			t.Errorf("sample %d: expected %d, got %d", i, buf.Data[i], got.Data[i])
		}
	}
}

func TestRecorder_SaveFailsOnReadOnlyFs(t *testing.T) {
	r := NewRecorder(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/recordings")
	buf := &audio.IntBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: SampleRate}, Data: []int{1, 2, 3}}
	if _, err := r.Save(buf, "wake"); err == nil {
		t.Error("expected an error writing to a read-only filesystem")
	}
}
