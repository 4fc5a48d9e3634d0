package sink

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/psantana5/exectime/pkg/timing"
)

// ThrottleSink forwards at most rps results per second per label to next,
// with bursts up to burst. Failures always pass. Dropped results are counted.
//
// A label's limiter is forgotten once it has been idle long enough to refill
// its bucket, so the set of tracked labels stays bounded by recent traffic.
type ThrottleSink struct {
	next  timing.Sink
	rps   rate.Limit
	burst int
	idle  time.Duration

	mu        sync.Mutex
	limiters  map[string]*labelLimiter
	lastSweep time.Time
	dropped   atomic.Uint64
}

type labelLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

// NewThrottle wraps next with a per-label token bucket.
func NewThrottle(next timing.Sink, rps float64, burst int) *ThrottleSink {
	if burst < 1 {
		burst = 1
	}
	// an idle limiter is indistinguishable from a new one after a full refill
	idle := time.Minute
	if rps > 0 {
		idle = time.Duration(float64(burst) / rps * float64(time.Second))
	}
	if idle < time.Second {
		idle = time.Second
	}
	return &ThrottleSink{
		next:     next,
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     idle,
		limiters: make(map[string]*labelLimiter),
	}
}

func (s *ThrottleSink) limiter(label string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.idle {
		for k, l := range s.limiters {
			if now.Sub(l.lastSeen) >= s.idle {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	l, ok := s.limiters[label]
	if !ok {
		l = &labelLimiter{Limiter: rate.NewLimiter(s.rps, s.burst)}
		s.limiters[label] = l
	}
	if now.After(l.lastSeen) {
		l.lastSeen = now
	}
	return l.Limiter
}

// Write implements timing.Sink.
func (s *ThrottleSink) Write(r timing.Result) {
	now := r.CompletedAt
	if now.IsZero() {
		now = time.Now()
	}
	if !r.Failed() && !s.limiter(r.Label, now).AllowN(now, 1) {
		s.dropped.Add(1)
		return
	}
	s.next.Write(r)
}

// Dropped returns how many results were not forwarded.
func (s *ThrottleSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Labels returns how many labels currently have a limiter.
func (s *ThrottleSink) Labels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}
