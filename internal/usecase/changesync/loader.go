package changesync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

// Ref names a record transition reported by an external writer.
type Ref struct {
	Kind          Kind
	Key           string
	WasSearchable bool
	Changed       []string
	Restoring     bool
}

// Loader turns refs into events by reading the current rows.
type Loader struct {
	svc     *Service
	models  Catalog
	records engine.Fetcher
	logger  *zap.Logger
}

// NewLoader creates a loader feeding svc.
func NewLoader(svc *Service, models Catalog, records engine.Fetcher, logger *zap.Logger) *Loader {
	return &Loader{svc: svc, models: models, records: records, logger: logger}
}

// Apply resolves refs for one model and handles them as a single batch.
// A ref whose row is gone becomes a hard delete.
func (l *Loader) Apply(ctx context.Context, modelName string, refs []Ref) error {
	if len(refs) == 0 {
		return nil
	}
	m, err := l.models.Get(modelName)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Kind != KindDeleted {
			keys = append(keys, r.Key)
		}
	}
	rows := make(map[string]domain.Record, len(keys))
	if len(keys) > 0 {
		fetched, err := l.records.FetchByKeys(ctx, modelName, keys)
		if err != nil {
			return fmt.Errorf("fetch %s records: %w", modelName, err)
		}
		for _, rec := range fetched {
			rows[rec.SearchKey()] = rec
		}
	}

	events := make([]Event, 0, len(refs))
	for _, r := range refs {
		rec, ok := rows[r.Key]
		if !ok {
			if r.Kind != KindDeleted {
				l.logger.Debug("Row gone, removing from index",
					zap.String("model", modelName), zap.String("key", r.Key), zap.Stringer("kind", r.Kind))
			}
			events = append(events, Deleted(stub(m, r.Key)))
			continue
		}
		events = append(events, Event{
			Kind:          r.Kind,
			Record:        rec,
			WasSearchable: r.WasSearchable,
			Changed:       r.Changed,
			Restoring:     r.Restoring,
		})
	}
	return l.svc.Handle(ctx, events...)
}

// stub is a row carrying only its key, enough to identify a removal.
func stub(m *model.Model, key string) *model.Row {
	return model.NewRow(m, map[string]any{m.Key(): key})
}
