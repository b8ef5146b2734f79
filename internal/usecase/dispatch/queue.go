package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/metrics"
)

// Options control how a unit is enqueued.
type Options struct {
	// AfterCommit holds the unit until the Tx carried by ctx commits.
	AfterCommit bool
}

// Queue accepts units of work.
type Queue interface {
	Enqueue(ctx context.Context, u Unit, opts Options) error
}

// Runner executes a unit of work.
type Runner interface {
	Execute(ctx context.Context, u Unit) error
}

// Publisher sends encoded units to the bus.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, msgID string) error
}

// Inline runs units synchronously in the caller's goroutine.
type Inline struct {
	runner Runner
}

// NewInline creates a queue that executes units immediately.
func NewInline(runner Runner) *Inline {
	return &Inline{runner: runner}
}

// Enqueue executes u, or defers it to the open Tx.
func (q *Inline) Enqueue(ctx context.Context, u Unit, opts Options) error {
	if deferred(ctx, q, u, opts) {
		return nil
	}
	return q.runner.Execute(ctx, u)
}

// JetStream publishes units for a remote worker.
type JetStream struct {
	pub     Publisher
	subject string
	logger  *zap.Logger
}

// NewJetStream creates a queue publishing to subject.
func NewJetStream(pub Publisher, subject string, logger *zap.Logger) *JetStream {
	return &JetStream{pub: pub, subject: subject, logger: logger}
}

// Enqueue publishes u with its ID as the dedup message ID.
func (q *JetStream) Enqueue(ctx context.Context, u Unit, opts Options) error {
	if deferred(ctx, q, u, opts) {
		return nil
	}
	data, err := Encode(u)
	if err == nil {
		err = q.pub.Publish(ctx, q.subject, data, u.ID)
	}
	metrics.DispatchUnitsTotal.WithLabelValues(string(u.Kind), "enqueue", metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("enqueue %s unit: %w", u.Kind, err)
	}
	q.logger.Debug("Unit published",
		zap.String("unit_id", u.ID),
		zap.String("kind", string(u.Kind)),
		zap.String("model", u.ModelType),
		zap.Int("records", u.Len()),
	)
	return nil
}

func deferred(ctx context.Context, q Queue, u Unit, opts Options) bool {
	if !opts.AfterCommit {
		return false
	}
	tx, ok := TxFrom(ctx)
	if !ok {
		return false
	}
	return tx.hold(q, u)
}
