package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/psantana5/exectime/internal/retry"
	"github.com/psantana5/exectime/pkg/logging"
	"github.com/psantana5/exectime/pkg/timing"
)

// Publisher is the part of *amqp.Channel the sink needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes each result as a JSON message to a queue through the
// default exchange. Publish errors are logged and the result is dropped.
type AMQPSink struct {
	pub     Publisher
	queue   string
	timeout time.Duration
	logger  *logging.Logger
	closers []func() error
}

// NewAMQP creates a sink publishing to queue. The queue must already exist.
func NewAMQP(pub Publisher, queue string, logger *logging.Logger) *AMQPSink {
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	return &AMQPSink{
		pub:     pub,
		queue:   queue,
		timeout: 5 * time.Second,
		logger:  logger.WithField("queue", queue),
	}
}

// DialAMQP connects to url, opens a channel and declares a durable queue,
// retrying transient failures with cfg.
func DialAMQP(ctx context.Context, url, queue string, cfg retry.Config, logger *logging.Logger) (*AMQPSink, error) {
	var (
		conn *amqp.Connection
		ch   *amqp.Channel
	)
	err := retry.Do(ctx, cfg, func() error {
		c, err := amqp.Dial(url)
		if err != nil {
			return err
		}
		chn, err := c.Channel()
		if err != nil {
			c.Close()
			return err
		}
		if _, err := chn.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			chn.Close()
			c.Close()
			return err
		}
		conn, ch = c, chn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	s := NewAMQP(ch, queue, logger)
	s.closers = []func() error{ch.Close, conn.Close}
	return s, nil
}

// Write implements timing.Sink.
func (s *AMQPSink) Write(r timing.Result) {
	body, err := json.Marshal(r)
	if err != nil {
		s.logger.Error("Failed to encode timing result", logging.Fields{"label": r.Label, "error": err})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err = s.pub.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    r.CompletedAt,
		Type:         "timing.result",
		Body:         body,
	})
	if err != nil {
		s.logger.Error("Failed to publish timing result", logging.Fields{"label": r.Label, "error": err})
	}
}

// Close closes the channel and connection opened by DialAMQP.
func (s *AMQPSink) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
