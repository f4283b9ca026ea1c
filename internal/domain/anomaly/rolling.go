package anomaly

import (
	"math"
	"sort"
	"sync"
)

// StatsBuffer is a fixed-capacity ring of recently observed values for one
// metric. Not safe for concurrent use; RollingStats serializes access.
type StatsBuffer struct {
	values []float64
	next   int
	full   bool
}

// NewStatsBuffer returns a buffer holding at most capacity values.
func NewStatsBuffer(capacity int) *StatsBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &StatsBuffer{values: make([]float64, 0, capacity)}
}

// Push records a value, evicting the oldest when full. Non-finite values are
// ignored so a corrupt record cannot poison the baseline.
func (b *StatsBuffer) Push(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if !b.full && len(b.values) < cap(b.values) {
		b.values = append(b.values, v)
		if len(b.values) == cap(b.values) {
			b.full = true
			b.next = 0
		}
		return
	}
	b.values[b.next] = v
	b.next = (b.next + 1) % cap(b.values)
}

// Len returns the number of stored values.
func (b *StatsBuffer) Len() int { return len(b.values) }

// Stats summarizes a buffer at one point in time.
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64
	Q1     float64
	Q3     float64
}

// Summary computes mean, population standard deviation, and quartiles over
// the stored values.
func (b *StatsBuffer) Summary() Stats {
	n := len(b.values)
	if n == 0 {
		return Stats{}
	}

	sum := 0.0
	for _, v := range b.values {
		sum += v
	}
	mean := sum / float64(n)

	variance := 0.0
	for _, v := range b.values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	sorted := make([]float64, n)
	copy(sorted, b.values)
	sort.Float64s(sorted)

	return Stats{
		Count:  n,
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Q1:     quantile(sorted, 0.25),
		Q3:     quantile(sorted, 0.75),
	}
}

// quantile interpolates linearly over a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// RollingStats owns one StatsBuffer per tracked metric. Safe for concurrent
// use.
type RollingStats struct {
	mu       sync.Mutex
	capacity int
	buffers  map[string]*StatsBuffer
}

// NewRollingStats returns an empty per-metric store whose buffers hold at
// most capacity values each.
func NewRollingStats(capacity int) *RollingStats {
	return &RollingStats{
		capacity: capacity,
		buffers:  make(map[string]*StatsBuffer),
	}
}

// Observe appends one live value for metric.
func (r *RollingStats) Observe(metric string, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer(metric).Push(v)
}

// Seed replaces the buffer for metric with the supplied history, newest
// values winning when the history exceeds capacity.
func (r *RollingStats) Seed(metric string, values []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := NewStatsBuffer(r.capacity)
	for _, v := range values {
		buf.Push(v)
	}
	r.buffers[metric] = buf
}

// Summary returns the stats for metric and whether enough samples exist to
// make minSamples-gated checks meaningful.
func (r *RollingStats) Summary(metric string, minSamples int) (Stats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf, ok := r.buffers[metric]
	if !ok || buf.Len() < minSamples {
		return Stats{}, false
	}
	return buf.Summary(), true
}

func (r *RollingStats) buffer(metric string) *StatsBuffer {
	buf, ok := r.buffers[metric]
	if !ok {
		buf = NewStatsBuffer(r.capacity)
		r.buffers[metric] = buf
	}
	return buf
}
