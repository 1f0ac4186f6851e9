package speech

import (
	"context"
	"time"

	"github.com/go-audio/audio"
)

const (
	// SampleRate is what the recognizer expects.
	SampleRate = 16000
	// FrameSize is the number of samples read from the microphone at once.
	FrameSize = 1024

	defaultOnsetRatio = 1.75
	defaultQuietTime  = 200 * time.Millisecond
)

// Microphone delivers fixed-size frames of 16-bit mono samples.
type Microphone interface {
	// Read blocks until the next frame is available. The returned slice is
	// only valid until the next call.
	Read() ([]int16, error)
	SampleRate() int
}

// CaptureConfig bounds one utterance capture.
type CaptureConfig struct {
	// Wait is how long to wait for speech to start. Zero waits until ctx is done.
	Wait time.Duration
	// MaxLength cuts off an utterance that runs too long. Zero means no limit.
	MaxLength time.Duration
	// QuietTime is how long the flux must stay low to end the utterance.
	QuietTime time.Duration
	// OnsetRatio is the flux rise that counts as speech starting, and the
	// fall that counts as silence.
	OnsetRatio float64
}

func (c CaptureConfig) withDefaults() CaptureConfig {
	if c.QuietTime <= 0 {
		c.QuietTime = defaultQuietTime
	}
	if c.OnsetRatio <= 1 {
		c.OnsetRatio = defaultOnsetRatio
	}
	return c
}

// CaptureUtterance reads frames until a burst of speech has started and died
// down again. It returns nil if no speech started within cfg.Wait. Time is
// measured in audio frames, so it tracks the device clock.
func CaptureUtterance(ctx context.Context, mic Microphone, cfg CaptureConfig) (*audio.IntBuffer, error) {
	cfg = cfg.withDefaults()

	rate := mic.SampleRate()
	if rate <= 0 {
		rate = SampleRate
	}

	var (
		detector  *FluxDetector
		preroll   *ringBuffer
		samples   []int
		heard     bool
		lastFlux  float64
		waited    time.Duration
		spoken    time.Duration
		quietFor  time.Duration
		quietOpen bool
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := mic.Read()
		if err != nil {
			return nil, err
		}
		if detector == nil {
			detector = NewFluxDetector(len(frame))
			preroll = newRingBuffer(len(frame) * 4)
		}
		frameDur := time.Duration(len(frame)) * time.Second / time.Duration(rate)

		if !heard {
			preroll.Add(frame)
		} else {
			samples = appendFrame(samples, frame)
			spoken += frameDur
		}

		flux := detector.Flux(frame)

		if !heard {
			waited += frameDur
			if lastFlux != 0 && flux >= lastFlux*cfg.OnsetRatio {
				heard = true
				samples = appendFrame(samples, preroll.Read())
				spoken = frameDur
			} else if cfg.Wait > 0 && waited >= cfg.Wait {
				return nil, nil
			}
			lastFlux = flux
			continue
		}

		if cfg.MaxLength > 0 && spoken >= cfg.MaxLength {
			break
		}

		if flux*cfg.OnsetRatio <= lastFlux {
			if quietOpen {
				quietFor += frameDur
				if quietFor > cfg.QuietTime {
					break
				}
			}
			quietOpen = true
		} else {
			quietOpen = false
			quietFor = 0
			lastFlux = flux
		}
	}

	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}, nil
}

func appendFrame(dst []int, frame []int16) []int {
	for _, s := range frame {
		dst = append(dst, int(s))
	}
	return dst
}

// PCM converts an utterance into the normalized float samples recognizers take.
func PCM(buf *audio.IntBuffer) []float32 {
	if buf == nil {
		return nil
	}
	f := buf.AsFloat32Buffer()
	for i := range f.Data {
		f.Data[i] /= 32768
	}
	return f.Data
}
