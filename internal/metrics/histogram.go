package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Window keeps the most recent duration samples, in milliseconds, and
// summarizes them into percentiles.
type Window struct {
	mu      sync.RWMutex
	samples []float64
	maxSize int
}

// NewWindow creates a sample window. When maxSize is exceeded the oldest
// fifth of the samples is dropped.
func NewWindow(maxSize int) *Window {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Window{
		samples: make([]float64, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record adds a duration sample.
func (w *Window) Record(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples = append(w.samples, float64(d.Microseconds())/1000.0)
	if len(w.samples) > w.maxSize {
		w.samples = w.samples[w.maxSize/5:]
	}
}

// LatencyStats summarizes a window (milliseconds).
type LatencyStats struct {
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Summary returns the statistics of the current samples.
func (w *Window) Summary() LatencyStats {
	w.mu.RLock()
	sorted := make([]float64, len(w.samples))
	copy(sorted, w.samples)
	w.mu.RUnlock()

	if len(sorted) == 0 {
		return LatencyStats{}
	}
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return LatencyStats{
		Mean:  sum / float64(len(sorted)),
		P50:   percentile(sorted, 50),
		P95:   percentile(sorted, 95),
		P99:   percentile(sorted, 99),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
}

// Reset clears all samples.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = w.samples[:0]
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	fraction := index - float64(lower)
	return sorted[lower]*(1-fraction) + sorted[upper]*fraction
}
