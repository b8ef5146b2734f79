package engine

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/metrics"
)

// Instrumented wraps an Engine with metrics and debug logging.
// Errors pass through unchanged.
type Instrumented struct {
	inner  Engine
	driver string
	logger *zap.Logger
}

var _ Engine = (*Instrumented)(nil)

// NewInstrumented wraps inner.
func NewInstrumented(inner Engine, driver string, logger *zap.Logger) *Instrumented {
	return &Instrumented{inner: inner, driver: driver, logger: logger}
}

// Unwrap returns the wrapped engine.
func (e *Instrumented) Unwrap() Engine { return e.inner }

func (e *Instrumented) observe(op string, n int, start time.Time, err error) {
	duration := time.Since(start)
	metrics.EngineOperationsTotal.WithLabelValues(e.driver, op, metrics.Status(err)).Inc()
	metrics.EngineOperationDuration.WithLabelValues(e.driver, op).Observe(duration.Seconds())
	if err != nil {
		e.logger.Error("Engine operation failed",
			zap.String("driver", e.driver),
			zap.String("op", op),
			zap.Int("records", n),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}
	if n > 0 && (op == OpUpdate || op == OpDelete) {
		metrics.EngineDocumentsTotal.WithLabelValues(e.driver, op).Add(float64(n))
	}
	e.logger.Debug("Engine operation completed",
		zap.String("driver", e.driver),
		zap.String("op", op),
		zap.Int("records", n),
		zap.Duration("duration", duration),
	)
}

// Update delegates and records the batch size.
func (e *Instrumented) Update(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	start := time.Now()
	err := e.inner.Update(ctx, records)
	e.observe(OpUpdate, len(records), start, err)
	return err
}

// Delete delegates and records the batch size.
func (e *Instrumented) Delete(ctx context.Context, items []domain.Identity) error {
	if len(items) == 0 {
		return nil
	}
	start := time.Now()
	err := e.inner.Delete(ctx, items)
	e.observe(OpDelete, len(items), start, err)
	return err
}

// Search delegates.
func (e *Instrumented) Search(ctx context.Context, req *request.Request) (*result.Raw, error) {
	start := time.Now()
	raw, err := e.inner.Search(ctx, req)
	e.observe(OpSearch, 0, start, err)
	return raw, err
}

// Paginate delegates.
func (e *Instrumented) Paginate(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	start := time.Now()
	raw, err := e.inner.Paginate(ctx, req, perPage, page)
	e.observe(OpPaginate, 0, start, err)
	return raw, err
}

// MapIDs delegates.
func (e *Instrumented) MapIDs(raw *result.Raw, keyName string) []string {
	return e.inner.MapIDs(raw, keyName)
}

// Map delegates.
func (e *Instrumented) Map(ctx context.Context, req *request.Request, raw *result.Raw, f Fetcher) ([]result.Item, error) {
	return e.inner.Map(ctx, req, raw, f)
}

// LazyMap delegates.
func (e *Instrumented) LazyMap(
	ctx context.Context, req *request.Request, raw *result.Raw, c Cursor,
) iter.Seq2[result.Item, error] {
	return e.inner.LazyMap(ctx, req, raw, c)
}

// TotalCount delegates.
func (e *Instrumented) TotalCount(raw *result.Raw) int { return e.inner.TotalCount(raw) }

// Flush delegates.
func (e *Instrumented) Flush(ctx context.Context, index string) error {
	start := time.Now()
	err := e.inner.Flush(ctx, index)
	e.observe(OpFlush, 0, start, err)
	return err
}

// CreateIndex delegates.
func (e *Instrumented) CreateIndex(ctx context.Context, index string, opts IndexOptions) error {
	start := time.Now()
	err := e.inner.CreateIndex(ctx, index, opts)
	e.observe(OpCreateIndex, 0, start, err)
	return err
}

// DeleteIndex delegates.
func (e *Instrumented) DeleteIndex(ctx context.Context, index string) error {
	start := time.Now()
	err := e.inner.DeleteIndex(ctx, index)
	e.observe(OpDeleteIndex, 0, start, err)
	return err
}

// Native returns the wrapped engine's backend client.
func (e *Instrumented) Native() any { return e.inner.Native() }
