// Package nats carries dispatch units over NATS JetStream.
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultHandlerTimeout bounds a single message handler.
const DefaultHandlerTimeout = 30 * time.Second

// Handler processes one message payload. A nil return acks the message,
// an error naks it for redelivery.
type Handler = func(ctx context.Context, payload []byte) error

// Bus is a JetStream publisher and queue-group subscriber.
type Bus struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	logger  *zap.Logger
	timeout time.Duration
}

// Connect dials url and opens a JetStream context.
func Connect(url, name string, logger *zap.Logger) (*Bus, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(3 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected, buffering messages", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Warn("NATS connection closed")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open jetstream: %w", err)
	}
	return &Bus{nc: nc, js: js, logger: logger, timeout: DefaultHandlerTimeout}, nil
}

// EnsureStream creates the stream capturing subjects unless it exists.
func (b *Bus) EnsureStream(name string, subjects ...string) error {
	_, err := b.js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", name, err)
	}
	if _, err := b.js.AddStream(&nats.StreamConfig{Name: name, Subjects: subjects}); err != nil {
		return fmt.Errorf("add stream %s: %w", name, err)
	}
	b.logger.Info("JetStream stream created", zap.String("stream", name), zap.Strings("subjects", subjects))
	return nil
}

// Publish sends data to subject. msgID lets JetStream drop duplicate publishes.
func (b *Bus) Publish(ctx context.Context, subject string, data []byte, msgID string) error {
	b.logger.Debug("Publishing message", zap.String("subject", subject), zap.Int("size", len(data)))
	if _, err := b.js.Publish(subject, data, nats.MsgId(msgID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe joins the queue group on subject with manual acks.
// The returned func unsubscribes.
func (b *Bus) Subscribe(subject, group string, handler Handler) (func() error, error) {
	b.logger.Info("Subscribing", zap.String("subject", subject), zap.String("group", group))

	opts := []nats.SubOpt{
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.DeliverAll(),
		nats.MaxAckPending(64),
	}
	sub, err := b.js.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		deliver(ctx, msg, msg.Data, handler, b.logger.With(zap.String("subject", subject)))
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub.Unsubscribe, nil
}

// Close drains pending messages and closes the connection.
func (b *Bus) Close() error {
	b.logger.Info("Draining NATS connection")
	return b.nc.Drain()
}

type acker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
}

func deliver(ctx context.Context, msg acker, data []byte, handler Handler, logger *zap.Logger) {
	if err := handler(ctx, data); err != nil {
		logger.Warn("Handler failed, nacking message", zap.Error(err))
		if nakErr := msg.Nak(); nakErr != nil {
			logger.Error("Failed to nak message", zap.Error(nakErr))
		}
		return
	}
	if err := msg.Ack(); err != nil {
		logger.Error("Failed to ack message", zap.Error(err))
	}
}

// HealthCheck reports whether the connection is up.
func (b *Bus) HealthCheck(context.Context) error {
	if !b.nc.IsConnected() {
		return fmt.Errorf("nats: %s", b.nc.Status())
	}
	return nil
}
