package metrics

import (
	"slices"
	"time"
)

// rollingWindow keeps the most recent samples up to its capacity.
type rollingWindow struct {
	size    int
	samples []time.Duration
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{size: size, samples: make([]time.Duration, 0, size)}
}

func (w *rollingWindow) add(d time.Duration) {
	if len(w.samples) >= w.size {
		w.samples = append(w.samples[:0], w.samples[1:]...)
	}
	w.samples = append(w.samples, d)
}

// percentile uses the nearest-rank-below method: index floor(p/100*(n-1)).
func (w *rollingWindow) percentile(p float64) (time.Duration, bool) {
	if len(w.samples) == 0 {
		return 0, false
	}

	sorted := slices.Clone(w.samples)
	slices.Sort(sorted)

	idx := int(p / 100 * float64(len(sorted)-1))
	return sorted[idx], true
}

func (w *rollingWindow) count() int {
	return len(w.samples)
}
