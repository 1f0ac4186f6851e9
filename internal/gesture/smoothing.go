package gesture

// minVotes is how many raw labels must be seen before a label is reported.
const minVotes = 3

// EMA is an exponential moving average over 2D points.
type EMA struct {
	alpha  float64
	x, y   float64
	primed bool
}

// NewEMA creates an EMA where alpha is the weight of the newest sample.
func NewEMA(alpha float64) *EMA {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &EMA{alpha: alpha}
}

// Update feeds a sample and returns the smoothed point. The first sample after a
// reset is returned unchanged.
func (e *EMA) Update(x, y float64) (float64, float64) {
	if !e.primed {
		e.x, e.y = x, y
		e.primed = true
		return x, y
	}
	e.x += e.alpha * (x - e.x)
	e.y += e.alpha * (y - e.y)
	return e.x, e.y
}

// Reset forgets history.
func (e *EMA) Reset() {
	e.primed = false
}

// LabelVote is a majority vote over a sliding window of raw labels.
type LabelVote struct {
	window []string
	size   int
}

// NewLabelVote creates a vote over the last size labels.
func NewLabelVote(size int) *LabelVote {
	if size < 1 {
		size = 1
	}
	return &LabelVote{size: size, window: make([]string, 0, size)}
}

// Push records a raw label and returns the current majority with its share of
// the window. ok is false until enough labels have been seen. Ties go to the
// label seen most recently.
func (v *LabelVote) Push(label string) (winner string, share float64, ok bool) {
	if len(v.window) == v.size {
		copy(v.window, v.window[1:])
		v.window = v.window[:v.size-1]
	}
	v.window = append(v.window, label)

	if len(v.window) < min(minVotes, v.size) {
		return "", 0, false
	}

	counts := make(map[string]int, len(v.window))
	best := 0
	for i := len(v.window) - 1; i >= 0; i-- {
		l := v.window[i]
		counts[l]++
		if counts[l] > best {
			best = counts[l]
		}
	}
	// Most recent label that reaches the top count.
	for i := len(v.window) - 1; i >= 0; i-- {
		if counts[v.window[i]] == best {
			winner = v.window[i]
			break
		}
	}
	return winner, float64(best) / float64(len(v.window)), true
}

// Reset clears the window.
func (v *LabelVote) Reset() {
	v.window = v.window[:0]
}
