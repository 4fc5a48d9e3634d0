package sink

import (
	"github.com/sirupsen/logrus"

	"github.com/psantana5/exectime/pkg/timing"
)

// LogrusSink writes results as logrus entries, for services that already
// log through logrus.
type LogrusSink struct {
	logger logrus.FieldLogger
}

// NewLogrus creates a sink. A nil logger uses the logrus standard logger.
func NewLogrus(logger logrus.FieldLogger) *LogrusSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusSink{logger: logger}
}

// Write implements timing.Sink.
func (s *LogrusSink) Write(r timing.Result) {
	entry := s.logger.WithFields(logrus.Fields{
		"label":       r.Label,
		"duration_ms": r.Milliseconds(),
		"outcome":     string(r.Outcome),
	})
	if r.Failed() {
		entry.WithError(r.Err).Error("operation failed")
		return
	}
	entry.Info("operation completed")
}
