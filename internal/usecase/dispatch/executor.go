package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain/snapshot"
	"github.com/kailas-cloud/searchsync/internal/engine"
	"github.com/kailas-cloud/searchsync/internal/metrics"
)

// Writer is the engine surface units need.
type Writer interface {
	engine.Updater
	engine.Deleter
}

// Executor applies units to the search engine.
type Executor struct {
	engine  Writer
	records engine.Fetcher
	logger  *zap.Logger
}

// NewExecutor creates an executor. records re-reads upserted rows.
func NewExecutor(e Writer, records engine.Fetcher, logger *zap.Logger) *Executor {
	return &Executor{engine: e, records: records, logger: logger}
}

// Execute runs u. Backend errors are returned unchanged so the runtime retries.
func (x *Executor) Execute(ctx context.Context, u Unit) error {
	var err error
	switch u.Kind {
	case MakeSearchable:
		err = x.makeSearchable(ctx, u)
	case RemoveFromSearch:
		err = x.engine.Delete(ctx, snapshot.Identities(u.Snapshots))
	default:
		err = fmt.Errorf("unknown unit kind %q", u.Kind)
	}
	metrics.DispatchUnitsTotal.WithLabelValues(string(u.Kind), "execute", metrics.Status(err)).Inc()
	return err
}

func (x *Executor) makeSearchable(ctx context.Context, u Unit) error {
	records := u.Records()
	if records == nil {
		if len(u.Keys) == 0 {
			return nil
		}
		fetched, err := x.records.FetchByKeys(ctx, u.ModelType, u.Keys)
		if err != nil {
			return fmt.Errorf("fetch %s records: %w", u.ModelType, err)
		}
		records = fetched
	}
	if missing := len(u.Keys) - len(records); missing > 0 {
		x.logger.Debug("Records gone before indexing",
			zap.String("unit_id", u.ID),
			zap.String("model", u.ModelType),
			zap.Int("missing", missing),
		)
	}
	if len(records) == 0 {
		return nil
	}
	return x.engine.Update(ctx, records)
}

var _ Runner = (*Executor)(nil)
