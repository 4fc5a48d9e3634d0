package timing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Outcome describes how a measured operation finished.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ErrAborted is recorded as the failure of an operation that never returned,
// i.e. it panicked or called runtime.Goexit. The panic itself keeps unwinding.
var ErrAborted = errors.New("operation did not return")

// Result is produced once per measured operation and handed to the sink
// immediately. Set once, never changed.
type Result struct {
	Label    string
	Duration time.Duration
	Outcome  Outcome

	// The two captures. Duration is CompletedAt.Sub(StartedAt); in-process
	// values carry the monotonic reading, so wall clock steps do not leak in.
	StartedAt   time.Time
	CompletedAt time.Time

	// Err is the operation's own error, untouched. Nil on success.
	Err error
	// Canceled is set when Err is a context cancellation or deadline.
	Canceled bool
}

func newResult(label string, start, end time.Time, err error) Result {
	d := end.Sub(start)
	if d < 0 {
		d = 0
	}
	r := Result{
		Label:       label,
		Duration:    d,
		Outcome:     OutcomeSuccess,
		StartedAt:   start,
		CompletedAt: end,
	}
	if err != nil {
		r.Outcome = OutcomeFailure
		r.Err = err
		r.Canceled = errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	}
	return r
}

// Failed reports whether the operation ended in failure.
func (r Result) Failed() bool {
	return r.Outcome == OutcomeFailure
}

// Milliseconds returns the duration as fractional milliseconds.
func (r Result) Milliseconds() float64 {
	return float64(r.Duration) / float64(time.Millisecond)
}

// ErrorMessage returns the failure message, or "" on success.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// String renders the console line: "<label>: <duration_ms> ms".
func (r Result) String() string {
	line := fmt.Sprintf("%s: %.3f ms", r.Label, r.Milliseconds())
	if r.Failed() {
		line += fmt.Sprintf(" (failure: %s)", r.ErrorMessage())
	}
	return line
}

type resultJSON struct {
	Label       string    `json:"label"`
	DurationMS  float64   `json:"duration_ms"`
	Outcome     Outcome   `json:"outcome"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Error       string    `json:"error,omitempty"`
	Canceled    bool      `json:"canceled,omitempty"`
}

// MarshalJSON encodes the result in its wire form. The error value is
// reduced to its message.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Label:       r.Label,
		DurationMS:  r.Milliseconds(),
		Outcome:     r.Outcome,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Error:       r.ErrorMessage(),
		Canceled:    r.Canceled,
	})
}

// UnmarshalJSON decodes the wire form. The error message, if any, becomes a
// plain error value; its original type does not survive the trip.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Result{
		Label:       w.Label,
		Duration:    time.Duration(w.DurationMS * float64(time.Millisecond)),
		Outcome:     w.Outcome,
		StartedAt:   w.StartedAt,
		CompletedAt: w.CompletedAt,
		Canceled:    w.Canceled,
	}
	if w.Error != "" {
		r.Err = errors.New(w.Error)
	} else if r.Outcome == OutcomeFailure {
		r.Err = ErrAborted
	}
	return nil
}
