package dispatch

import (
	"context"

	"go.uber.org/zap"
)

// Subscriber delivers bus messages to a handler. A handler error requests
// redelivery. The returned func unsubscribes.
type Subscriber interface {
	Subscribe(subject, group string, handler func(ctx context.Context, payload []byte) error) (func() error, error)
}

// Worker consumes units from the bus and executes them.
type Worker struct {
	sub     Subscriber
	runner  Runner
	subject string
	group   string
	logger  *zap.Logger
}

// NewWorker creates a worker for subject in queue group.
func NewWorker(sub Subscriber, runner Runner, subject, group string, logger *zap.Logger) *Worker {
	return &Worker{sub: sub, runner: runner, subject: subject, group: group, logger: logger}
}

// Start subscribes and returns the unsubscribe func.
func (w *Worker) Start() (func() error, error) {
	w.logger.Info("Dispatch worker starting", zap.String("subject", w.subject), zap.String("group", w.group))
	return w.sub.Subscribe(w.subject, w.group, w.handle)
}

func (w *Worker) handle(ctx context.Context, payload []byte) error {
	u, err := Decode(payload)
	if err != nil {
		// Acked: redelivering an undecodable payload never succeeds.
		w.logger.Error("Discarding malformed unit", zap.Error(err), zap.Int("size", len(payload)))
		return nil
	}
	if err := w.runner.Execute(ctx, u); err != nil {
		w.logger.Warn("Unit failed",
			zap.String("unit_id", u.ID),
			zap.String("kind", string(u.Kind)),
			zap.String("model", u.ModelType),
			zap.Error(err),
		)
		return err
	}
	w.logger.Debug("Unit executed", zap.String("unit_id", u.ID), zap.String("kind", string(u.Kind)))
	return nil
}
