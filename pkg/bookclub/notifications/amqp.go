package notifications

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// NewSink builds a RabbitMQ-backed sink, or a logging noop sink when AMQP
// is disabled or unreachable. Wiring always succeeds so the server can run
// without a broker.
func NewSink(amqpURL, exchange string, log *logrus.Logger) Sink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if amqpURL == "" {
		log.Info("notifications: amqp disabled, using noop sink")
		return &noopSink{log: log}
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		log.WithError(err).Warn("notifications: amqp dial failed, using noop sink")
		return &noopSink{log: log}
	}

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("notifications: amqp channel failed, using noop sink")
		_ = conn.Close()
		return &noopSink{log: log}
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("notifications: exchange declare failed, using noop sink")
		_ = ch.Close()
		_ = conn.Close()
		return &noopSink{log: log}
	}

	log.WithField("exchange", exchange).Info("notifications: amqp sink connected")
	return &amqpSink{conn: conn, ch: ch, exchange: exchange, log: log}
}

type amqpSink struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *logrus.Logger
}

func (s *amqpSink) Emit(ctx context.Context, kind Kind, payload interface{}) {
	body, err := json.Marshal(Envelope{Kind: kind, EmittedAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		s.log.WithError(err).WithField("kind", kind).Warn("notifications: marshal failed, dropping")
		return
	}

	err = s.ch.PublishWithContext(ctx, s.exchange, string(kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		// Best effort only: the state change already committed
		s.log.WithError(err).WithField("kind", kind).Warn("notifications: publish failed, dropping")
	}
}

func (s *amqpSink) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

type noopSink struct {
	log *logrus.Logger
}

func (s *noopSink) Emit(ctx context.Context, kind Kind, payload interface{}) {
	s.log.WithField("kind", kind).Debug("notifications: noop emit")
}

func (s *noopSink) Close() error {
	return nil
}
