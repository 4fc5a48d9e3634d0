package sink

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/exectime/pkg/timing"
)

// DurationBuckets spans sub-millisecond calls up to multi-minute jobs.
var DurationBuckets = []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300}

// PrometheusSink exports results as a duration histogram and an outcome
// counter, both labelled by operation label and outcome.
type PrometheusSink struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewPrometheus registers the collectors with reg. Registering twice with the
// same namespace reuses the collectors already registered.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of measured operations in seconds",
			Buckets:   DurationBuckets,
		},
		[]string{"label", "outcome"},
	)
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Number of measured operations",
		},
		[]string{"label", "outcome"},
	)

	var err error
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if total, err = register(reg, total); err != nil {
		return nil, err
	}
	return &PrometheusSink{duration: duration, total: total}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Write implements timing.Sink.
func (s *PrometheusSink) Write(r timing.Result) {
	outcome := string(r.Outcome)
	s.duration.WithLabelValues(r.Label, outcome).Observe(r.Duration.Seconds())
	s.total.WithLabelValues(r.Label, outcome).Inc()
}

// Collectors returns the underlying collectors.
func (s *PrometheusSink) Collectors() (*prometheus.HistogramVec, *prometheus.CounterVec) {
	return s.duration, s.total
}
