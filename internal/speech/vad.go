package speech

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FluxDetector measures spectral flux: how much energy appeared in the
// spectrum since the previous frame. Speech onsets produce sharp rises.
type FluxDetector struct {
	frame []float64
	prev  []float64
}

// NewFluxDetector creates a detector for frames of frameSize samples.
func NewFluxDetector(frameSize int) *FluxDetector {
	return &FluxDetector{
		frame: make([]float64, frameSize),
		prev:  make([]float64, frameSize/2+1),
	}
}

// Flux returns the spectral flux of samples against the previous call.
func (f *FluxDetector) Flux(samples []int16) float64 {
	for i := range f.frame {
		if i < len(samples) {
			f.frame[i] = float64(samples[i]) / math.MaxInt16
		} else {
			f.frame[i] = 0
		}
	}

	spectrum := fft.FFTReal(f.frame)

	var flux float64
	for i := range f.prev {
		mag := cmplx.Abs(spectrum[i])
		if d := mag - f.prev[i]; d > 0 {
			flux += d
		}
		f.prev[i] = mag
	}
	return flux
}

// ringBuffer keeps the most recent samples so the start of an utterance,
// heard before the onset was detected, is not lost.
type ringBuffer struct {
	buf  []int16
	head int
	full bool
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{buf: make([]int16, size)}
}

func (r *ringBuffer) Add(samples []int16) {
	for _, s := range samples {
		r.buf[r.head] = s
		r.head = (r.head + 1) % len(r.buf)
		if r.head == 0 {
			r.full = true
		}
	}
}

// Read returns the buffered samples oldest first.
func (r *ringBuffer) Read() []int16 {
	if !r.full {
		out := make([]int16, r.head)
		copy(out, r.buf[:r.head])
		return out
	}
	out := make([]int16, len(r.buf))
	n := copy(out, r.buf[r.head:])
	copy(out[n:], r.buf[:r.head])
	return out
}
