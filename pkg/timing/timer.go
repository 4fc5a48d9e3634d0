package timing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrInvalidArgument is returned, wrapped, when a label is empty or an
// operation is nil. Nothing runs and nothing is reported.
var ErrInvalidArgument = errors.New("invalid argument")

// Timer measures units of work and reports one Result per call to its sink.
// A Timer is immutable after New and safe for concurrent use.
type Timer struct {
	sink  Sink
	clock clockwork.Clock
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces the time source. The real clock is used by default.
func WithClock(c clockwork.Clock) Option {
	return func(t *Timer) {
		if c != nil {
			t.clock = c
		}
	}
}

// New creates a timer reporting to sink. A nil sink writes console lines
// to stdout.
func New(sink Sink, opts ...Option) *Timer {
	if sink == nil {
		sink = NewWriterSink(os.Stdout)
	}
	t := &Timer{
		sink:  sink,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Sink returns the sink results are reported to.
func (t *Timer) Sink() Sink {
	return t.sink
}

func validateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("%w: label is empty", ErrInvalidArgument)
	}
	return nil
}

func errNilOperation(label string) error {
	return fmt.Errorf("%w: operation for %q is nil", ErrInvalidArgument, label)
}

// invoke is the one measuring code path. The deferred block runs on every
// exit: normal return, returned error, panic and runtime.Goexit. A panic is
// not recovered, so it keeps unwinding with its original value and stack
// once the result has been reported.
func (t *Timer) invoke(label string, op func() error) (res Result, err error) {
	start := t.clock.Now()
	returned := false
	defer func() {
		end := t.clock.Now()
		failure := err
		if !returned {
			failure = ErrAborted
		}
		res = newResult(label, start, end, failure)
		t.sink.Write(res)
	}()

	err = op()
	returned = true
	return res, err
}

// Run measures op, reports the result and returns op's error unchanged.
func (t *Timer) Run(label string, op func() error) error {
	if err := validateLabel(label); err != nil {
		return err
	}
	if op == nil {
		return errNilOperation(label)
	}
	_, err := t.invoke(label, op)
	return err
}

// RunContext is Run for operations that take a context. Cancellation is not
// handled here: a context error returned by op is reported as a canceled
// failure and returned as is.
func (t *Timer) RunContext(ctx context.Context, label string, op func(context.Context) error) error {
	if op == nil {
		return errNilOperation(label)
	}
	return t.Run(label, func() error { return op(ctx) })
}

// Measure times op, reports the result and returns op's value and error
// unchanged.
func Measure[T any](t *Timer, label string, op func() (T, error)) (T, error) {
	var v T
	if err := validateLabel(label); err != nil {
		return v, err
	}
	if op == nil {
		return v, errNilOperation(label)
	}
	_, err := t.invoke(label, func() error {
		var err error
		v, err = op()
		return err
	})
	return v, err
}

// MeasureContext is Measure for operations that take a context.
func MeasureContext[T any](ctx context.Context, t *Timer, label string, op func(context.Context) (T, error)) (T, error) {
	if op == nil {
		var zero T
		return zero, errNilOperation(label)
	}
	return Measure(t, label, func() (T, error) { return op(ctx) })
}

// Settled carries the outcome of an operation started with Async.
type Settled[T any] struct {
	Value  T
	Err    error
	Result Result
}

// Async starts op on its own goroutine. The end timestamp is taken when op
// settles, and the settled value is delivered on the returned channel, which
// is buffered and closed after the single send. Invalid arguments settle
// immediately without a report.
func Async[T any](t *Timer, label string, op func() (T, error)) <-chan Settled[T] {
	ch := make(chan Settled[T], 1)
	if err := validateLabel(label); err != nil {
		ch <- Settled[T]{Err: err}
		close(ch)
		return ch
	}
	if op == nil {
		ch <- Settled[T]{Err: errNilOperation(label)}
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)
		var v T
		res, err := t.invoke(label, func() error {
			var err error
			v, err = op()
			return err
		})
		ch <- Settled[T]{Value: v, Err: err, Result: res}
	}()
	return ch
}

// Stopwatch is the scoped form of a measurement for call sites that cannot
// hand the timer a closure:
//
//	sw, err := t.Start("load")
//	if err != nil { ... }
//	defer func() { sw.Stop(err) }()
type Stopwatch struct {
	timer *Timer
	label string
	start time.Time

	once   sync.Once
	result Result
}

// Start begins a measurement. Nothing is reported until Stop.
func (t *Timer) Start(label string) (*Stopwatch, error) {
	if err := validateLabel(label); err != nil {
		return nil, err
	}
	return &Stopwatch{
		timer: t,
		label: label,
		start: t.clock.Now(),
	}, nil
}

// Elapsed returns the time since Start without reporting.
func (s *Stopwatch) Elapsed() time.Duration {
	return s.timer.clock.Since(s.start)
}

// Stop captures the end timestamp and reports once. Later calls return the
// first result and report nothing.
func (s *Stopwatch) Stop(err error) Result {
	s.once.Do(func() {
		end := s.timer.clock.Now()
		s.result = newResult(s.label, s.start, end, err)
		s.timer.sink.Write(s.result)
	})
	return s.result
}
