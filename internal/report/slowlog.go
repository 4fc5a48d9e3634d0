package report

import (
	"sync"
	"time"

	"github.com/psantana5/exectime/pkg/timing"
)

// Sample is one entry of the slow log.
type Sample struct {
	Label       string    `json:"label" yaml:"label"`
	DurationMS  float64   `json:"duration_ms" yaml:"duration_ms"`
	Outcome     string    `json:"outcome" yaml:"outcome"`
	Reason      string    `json:"reason" yaml:"reason"` // "failed" or "slow"
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}

// SlowLog keeps the last N results that failed or ran longer than a
// threshold, for looking at outliers without reading every log line.
type SlowLog struct {
	threshold time.Duration

	mu      sync.RWMutex
	samples []Sample
	maxSize int
}

// NewSlowLog creates a ring buffer of maxSize entries. A zero threshold keeps
// failures only.
func NewSlowLog(maxSize int, threshold time.Duration) *SlowLog {
	if maxSize < 1 {
		maxSize = 1
	}
	return &SlowLog{
		threshold: threshold,
		samples:   make([]Sample, 0, maxSize),
		maxSize:   maxSize,
	}
}

// Write implements timing.Sink.
func (l *SlowLog) Write(r timing.Result) {
	var reason string
	switch {
	case r.Failed():
		reason = "failed"
	case l.threshold > 0 && r.Duration > l.threshold:
		reason = "slow"
	default:
		return
	}

	sample := Sample{
		Label:       r.Label,
		DurationMS:  r.Milliseconds(),
		Outcome:     string(r.Outcome),
		Reason:      reason,
		Error:       r.ErrorMessage(),
		CompletedAt: r.CompletedAt,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.samples) >= l.maxSize {
		l.samples = l.samples[1:]
	}
	l.samples = append(l.samples, sample)
}

// Recent returns up to n samples, newest first. n <= 0 returns all.
func (l *SlowLog) Recent(n int) []Sample {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.samples) {
		n = len(l.samples)
	}
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = l.samples[len(l.samples)-1-i]
	}
	return out
}

// Count returns how many samples are held.
func (l *SlowLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.samples)
}
