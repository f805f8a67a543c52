// Package stats keeps rolling aggregates of recent extraction runs.
package stats

import (
	"sort"
	"sync"
	"time"
)

// Run describes one finished extraction.
type Run struct {
	Format   string
	Duration time.Duration
	Pages    int
	Titles   int
	Failed   bool
}

type sample struct {
	at  time.Time
	run Run
}

// Snapshot is a point-in-time aggregate of the runs inside the window.
type Snapshot struct {
	Runs        int            `json:"runs"`
	Failures    int            `json:"failures"`
	Pages       int            `json:"pages"`
	Titles      int            `json:"titles"`
	TitlesPerPg float64        `json:"titles_per_page"`
	MinMs       int64          `json:"min_ms"`
	MaxMs       int64          `json:"max_ms"`
	AvgMs       float64        `json:"avg_ms"`
	P50Ms       float64        `json:"p50_ms"`
	P95Ms       float64        `json:"p95_ms"`
	ByFormat    map[string]int `json:"by_format"`
}

// Recorder tracks extraction runs within a rolling window. It is safe for
// concurrent use.
type Recorder struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

// NewRecorder returns a Recorder keeping runs younger than window
// (default one hour).
func NewRecorder(window time.Duration) *Recorder {
	if window <= 0 {
		window = time.Hour
	}
	return &Recorder{
		samples: make([]sample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

// Record adds a finished run.
func (r *Recorder) Record(run Run) {
	if run.Duration < 0 {
		run.Duration = 0
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	r.samples = append(r.samples, sample{at: now, run: run})
}

// Snapshot aggregates the runs currently in the window. Latency figures
// cover successful runs only.
func (r *Recorder) Snapshot() Snapshot {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	snap := Snapshot{ByFormat: map[string]int{}}
	var ms []int64
	var sum int64
	for _, s := range r.samples {
		snap.Runs++
		snap.ByFormat[s.run.Format]++
		if s.run.Failed {
			snap.Failures++
			continue
		}
		snap.Pages += s.run.Pages
		snap.Titles += s.run.Titles
		d := s.run.Duration.Milliseconds()
		ms = append(ms, d)
		sum += d
	}
	if snap.Pages > 0 {
		snap.TitlesPerPg = float64(snap.Titles) / float64(snap.Pages)
	}
	if len(ms) == 0 {
		return snap
	}

	sort.Slice(ms, func(i, j int) bool { return ms[i] < ms[j] })
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(sum) / float64(len(ms))
	snap.P50Ms = percentile(ms, 50)
	snap.P95Ms = percentile(ms, 95)
	return snap
}

func (r *Recorder) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.window)
	keep := r.samples[:0]
	for _, s := range r.samples {
		if !s.at.Before(cutoff) {
			keep = append(keep, s)
		}
	}
	r.samples = keep
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	idx := float64(len(sorted)-1) * pct / 100
	lo := int(idx)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	w := idx - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*w
}
