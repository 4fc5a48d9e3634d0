// Package sink provides timing.Sink implementations backed by logs,
// metrics, traces and message queues.
package sink

import (
	"time"

	"github.com/psantana5/exectime/pkg/logging"
	"github.com/psantana5/exectime/pkg/timing"
)

// LoggerOptions tunes the levels a LoggerSink writes at.
type LoggerOptions struct {
	// SlowThreshold raises successful results above it to WARN. Zero
	// disables the check.
	SlowThreshold time.Duration
	// SuccessLevel is the level for ordinary successful results.
	SuccessLevel logging.Level
	// FailureLevel is the level for failed results.
	FailureLevel logging.Level
}

// DefaultLoggerOptions logs successes at INFO and failures at ERROR.
func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		SuccessLevel: logging.INFO,
		FailureLevel: logging.ERROR,
	}
}

// LoggerSink writes one structured line per result.
type LoggerSink struct {
	logger *logging.Logger
	opts   LoggerOptions
}

// NewLogger creates a sink writing through logger.
func NewLogger(logger *logging.Logger, opts LoggerOptions) *LoggerSink {
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	return &LoggerSink{logger: logger, opts: opts}
}

// Write implements timing.Sink.
func (s *LoggerSink) Write(r timing.Result) {
	level := s.opts.SuccessLevel
	msg := "operation completed"
	switch {
	case r.Failed():
		level = s.opts.FailureLevel
		msg = "operation failed"
		if r.Canceled {
			level = logging.WARN
			msg = "operation canceled"
		}
	case s.opts.SlowThreshold > 0 && r.Duration > s.opts.SlowThreshold:
		level = logging.WARN
		msg = "slow operation"
	}

	s.logger.Log(level, msg, fields(r))
}

func fields(r timing.Result) logging.Fields {
	f := logging.Fields{
		"label":       r.Label,
		"duration_ms": r.Milliseconds(),
		"outcome":     string(r.Outcome),
	}
	if r.Failed() {
		f["error"] = r.ErrorMessage()
	}
	return f
}
