package store

import (
	"context"
	"time"

	"github.com/psantana5/exectime/pkg/logging"
	"github.com/psantana5/exectime/pkg/timing"
)

// Sink saves every result to a Store. Save errors are logged and the result
// is dropped.
type Sink struct {
	store   Store
	logger  *logging.Logger
	timeout time.Duration
}

// NewSink adapts s to timing.Sink.
func NewSink(s Store, logger *logging.Logger) *Sink {
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	return &Sink{store: s, logger: logger, timeout: 5 * time.Second}
}

// Write implements timing.Sink.
func (s *Sink) Write(r timing.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.Save(ctx, r); err != nil {
		s.logger.Error("Failed to store timing result", logging.Fields{"label": r.Label, "error": err})
	}
}
