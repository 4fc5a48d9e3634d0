package timing

import (
	"fmt"
	"io"
	"sync"
)

// Sink receives every Result a Timer produces. Implementations shared by
// concurrent timers must be safe for concurrent use.
type Sink interface {
	Write(Result)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Result)

// Write calls f(r).
func (f SinkFunc) Write(r Result) {
	f(r)
}

// Discard drops every result.
var Discard Sink = SinkFunc(func(Result) {})

type multiSink []Sink

func (m multiSink) Write(r Result) {
	for _, s := range m {
		s.Write(r)
	}
}

// Multi fans a result out to every non-nil sink, in order.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if nested, ok := s.(multiSink); ok {
			out = append(out, nested...)
			continue
		}
		out = append(out, s)
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// WriterSink writes one console line per result.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates the default console sink.
func NewWriterSink(w io.Writer) *WriterSink {
	if w == nil {
		w = io.Discard
	}
	return &WriterSink{w: w}
}

// Write implements Sink.
func (s *WriterSink) Write(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, r.String())
}

// Recorder keeps every result in memory, in arrival order.
type Recorder struct {
	mu      sync.Mutex
	results []Result
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Write implements Sink.
func (r *Recorder) Write(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Results returns a copy of the recorded results.
func (r *Recorder) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Len returns the number of recorded results.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// ByLabel returns the recorded results carrying label.
func (r *Recorder) ByLabel(label string) []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Result
	for _, res := range r.results {
		if res.Label == label {
			out = append(out, res)
		}
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = nil
}
