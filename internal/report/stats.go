package report

import (
	"sort"
	"sync"
	"time"

	"github.com/psantana5/exectime/pkg/timing"
)

type accumulator struct {
	count    uint64
	failures uint64
	canceled uint64
	total    time.Duration
	min      time.Duration
	max      time.Duration
	lastSeen time.Time
}

func (a *accumulator) add(r timing.Result) {
	if a.count == 0 || r.Duration < a.min {
		a.min = r.Duration
	}
	if r.Duration > a.max {
		a.max = r.Duration
	}
	a.count++
	a.total += r.Duration
	if r.Failed() {
		a.failures++
	}
	if r.Canceled {
		a.canceled++
	}
	if r.CompletedAt.After(a.lastSeen) {
		a.lastSeen = r.CompletedAt
	}
}

func (a *accumulator) summary(label string) Summary {
	s := Summary{
		Label:    label,
		Count:    a.count,
		Failures: a.failures,
		Canceled: a.canceled,
		TotalMS:  ms(a.total),
		MinMS:    ms(a.min),
		MaxMS:    ms(a.max),
		LastSeen: a.lastSeen,
	}
	if a.count > 0 {
		s.MeanMS = s.TotalMS / float64(a.count)
	}
	return s
}

// Stats is a sink aggregating results per label. The timer itself keeps no
// state; this is where counting lives.
type Stats struct {
	mu     sync.Mutex
	labels map[string]*accumulator
}

// NewStats creates an empty aggregate.
func NewStats() *Stats {
	return &Stats{labels: make(map[string]*accumulator)}
}

// Write implements timing.Sink.
func (s *Stats) Write(r timing.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.labels[r.Label]
	if !ok {
		a = &accumulator{}
		s.labels[r.Label] = a
	}
	a.add(r)
}

// Get returns the summary for one label.
func (s *Stats) Get(label string) (Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.labels[label]
	if !ok {
		return Summary{}, false
	}
	return a.summary(label), true
}

// Snapshot returns every label's summary sorted by label.
func (s *Stats) Snapshot() []Summary {
	s.mu.Lock()
	out := make([]Summary, 0, len(s.labels))
	for label, a := range s.labels {
		out = append(out, a.summary(label))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Reset drops all aggregates.
func (s *Stats) Reset() {
	s.mu.Lock()
	s.labels = make(map[string]*accumulator)
	s.mu.Unlock()
}

// Aggregate summarizes a batch of stored results.
func Aggregate(results []timing.Result) []Summary {
	s := NewStats()
	for _, r := range results {
		s.Write(r)
	}
	return s.Snapshot()
}
