package speech

import (
	"math"
	"math/rand/v2"
	"testing"
)

func noiseFrame(rng *rand.Rand, amp int) []int16 {
	frame := make([]int16, FrameSize)
	for i := range frame {
		frame[i] = int16(rng.IntN(2*amp+1) - amp)
	}
	return frame
}

// toneFrame is a sine that completes exactly bin cycles per frame, so its
// energy lands in a single FFT bin.
func toneFrame(bin int, amp float64) []int16 {
	frame := make([]int16, FrameSize)
	for i := range frame {
		frame[i] = int16(amp * math.Sin(2*math.Pi*float64(bin)*float64(i)/FrameSize))
	}
	return frame
}

func TestFluxDetector(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	d := NewFluxDetector(FrameSize)

	silence := make([]int16, FrameSize)
	if f := d.Flux(silence); f != 0 {
		t.Errorf("expected zero flux for silence, got %f", f)
	}

	d.Flux(noiseFrame(rng, 50))
	quiet := d.Flux(noiseFrame(rng, 50))
	onset := d.Flux(toneFrame(20, 8000))
	if onset < quiet*10 {
		t.Errorf("expected a tone onset to dwarf background flux, got %f vs %f", onset, quiet)
	}

	// The same spectrum again adds no new energy.
	if f := d.Flux(toneFrame(20, 8000)); f > onset/100 {
		t.Errorf("expected near-zero flux for a steady tone, got %f", f)
	}

	fresh := NewFluxDetector(FrameSize)
	if f := fresh.Flux(toneFrame(20, 8000)); math.Abs(f-onset) > onset/10 {
		t.Errorf("expected a new detector to measure against silence, got %f want about %f", f, onset)
	}
}

func TestRingBuffer(t *testing.T) {
	r := newRingBuffer(10)
	r.Add([]int16{1, 2, 3})
	if got := r.Read(); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("expected partial contents [1 2 3], got %v", got)
	}

	for i := 0; i < 20; i++ {
		r.Add([]int16{int16(i)})
	}
	got := r.Read()
	if len(got) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(got))
	}
	for i := 0; i < 10; i++ {
		if got[i] != int16(10+i) {
			t.Errorf("sample %d: expected %d, got %d", i, 10+i, got[i])
		}
	}
}
