package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/psantana5/exectime/internal/config"
	"github.com/psantana5/exectime/internal/report"
	"github.com/psantana5/exectime/internal/retry"
	"github.com/psantana5/exectime/internal/store"
	"github.com/psantana5/exectime/internal/tracing"
	"github.com/psantana5/exectime/pkg/logging"
	"github.com/psantana5/exectime/pkg/sink"
	"github.com/psantana5/exectime/pkg/timing"
)

// Options are the process-level dependencies of a pipeline.
type Options struct {
	Logger   *logging.Logger
	Console  io.Writer            // defaults to stdout
	Registry *prometheus.Registry // defaults to a fresh registry
	Retry    *retry.Config        // defaults to retry.DefaultConfig
}

// Pipeline is a Timer wired to every sink the configuration enables, plus
// the in-process aggregates the server exposes.
type Pipeline struct {
	Timer    *timing.Timer
	Stats    *report.Stats
	SlowLog  *report.SlowLog
	Registry *prometheus.Registry
	Store    store.Store // nil unless the store sink is enabled

	sinks   []string
	closers []closer
	logger  *logging.Logger
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// Build connects the enabled backends. Anything opened before a failure is
// closed again.
func Build(ctx context.Context, cfg *config.Config, opts Options) (_ *Pipeline, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format == "json")
	}
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	retryCfg := retry.DefaultConfig()
	if opts.Retry != nil {
		retryCfg = *opts.Retry
	}

	p := &Pipeline{
		Stats:    report.NewStats(),
		SlowLog:  report.NewSlowLog(cfg.SlowLog.Size, cfg.SlowLog.Threshold),
		Registry: reg,
		logger:   logger,
	}
	defer func() {
		if err != nil {
			p.Close(context.Background())
		}
	}()

	sinks := []timing.Sink{p.Stats, p.SlowLog}
	add := func(name string, s timing.Sink) {
		sinks = append(sinks, s)
		p.sinks = append(p.sinks, name)
	}
	s := cfg.Sinks

	if s.Console.Enabled {
		add("console", timing.NewWriterSink(console))
	}

	if s.Logger.Enabled {
		lopts := sink.DefaultLoggerOptions()
		lopts.SlowThreshold = s.Logger.SlowThreshold
		add("logger", throttled(sink.NewLogger(logger.WithField("component", "timing"), lopts), s.Logger.Throttle))
	}

	if s.Logrus.Enabled {
		l := logrus.New()
		l.SetOutput(console)
		if lvl, err := logrus.ParseLevel(s.Logrus.Level); err == nil {
			l.SetLevel(lvl)
		}
		if s.Logrus.JSON {
			l.SetFormatter(&logrus.JSONFormatter{})
		}
		add("logrus", sink.NewLogrus(l))
	}

	if s.Prometheus.Enabled {
		ps, err := sink.NewPrometheus(reg, s.Prometheus.Namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		add("prometheus", ps)
	}

	if s.Tracing.Enabled {
		provider, err := tracing.InitTracer(ctx, s.Tracing, logger)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, closer{"tracer", provider.Shutdown})
		add("tracing", sink.NewTracing(provider.Tracer()))
	}

	if s.AMQP.Enabled {
		as, err := sink.DialAMQP(ctx, s.AMQP.URL, s.AMQP.Queue, retryCfg, logger)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, closer{"amqp", func(context.Context) error { return as.Close() }})
		add("amqp", throttled(as, s.AMQP.Throttle))
	}

	if s.Store.Enabled {
		storeCfg := s.Store.Config
		storeCfg.Retry = retryCfg
		st, err := store.New(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		p.Store = st
		p.closers = append(p.closers, closer{"store", func(context.Context) error { return st.Close() }})
		add("store", store.NewSink(st, logger))
	}

	p.Timer = timing.New(timing.Multi(sinks...))
	logger.Debug("Timing pipeline ready", logging.Fields{"sinks": p.sinks})
	return p, nil
}

func throttled(s timing.Sink, t config.ThrottleConfig) timing.Sink {
	if t.RPS <= 0 {
		return s
	}
	return sink.NewThrottle(s, t.RPS, t.Burst)
}

// Sinks names the enabled backends in fan-out order, aggregates excluded.
func (p *Pipeline) Sinks() []string {
	return append([]string(nil), p.sinks...)
}

// Close releases backends in reverse order of opening.
func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if err := c.fn(ctx); err != nil {
			p.logger.Warn("Failed to close sink", logging.Fields{"sink": c.name, "error": err})
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
