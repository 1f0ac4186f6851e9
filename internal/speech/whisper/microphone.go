// Package whisper provides the production speech source: a portaudio
// microphone and a whisper.cpp transcriber.
package whisper

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/ayusman/mudra/internal/speech"
)

// Microphone reads 16-bit mono frames from the default input device.
type Microphone struct {
	stream *portaudio.Stream
	in     []int16
	out    []int16

	closeOnce sync.Once
	closeErr  error
}

// OpenMicrophone initializes portaudio and starts the default input stream.
func OpenMicrophone() (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize audio: %w", err)
	}

	m := &Microphone{
		in:  make([]int16, speech.FrameSize),
		out: make([]int16, speech.FrameSize),
	}
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(speech.SampleRate), len(m.in), m.in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start microphone: %w", err)
	}
	m.stream = stream
	return m, nil
}

// Read blocks for the next frame.
func (m *Microphone) Read() ([]int16, error) {
	if err := m.stream.Read(); err != nil {
		// Overflow means frames were dropped while we were transcribing;
		// the current buffer is still valid.
		if !errors.Is(err, portaudio.InputOverflowed) {
			return nil, err
		}
	}
	copy(m.out, m.in)
	return m.out, nil
}

func (m *Microphone) SampleRate() int {
	return speech.SampleRate
}

// Close stops the stream and releases portaudio.
func (m *Microphone) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = errors.Join(m.stream.Stop(), m.stream.Close(), portaudio.Terminate())
	})
	return m.closeErr
}
