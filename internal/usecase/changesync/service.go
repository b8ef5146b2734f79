package changesync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/intent"
	"github.com/kailas-cloud/searchsync/internal/metrics"
)

// Dispatcher hands decided intents to the async bridge.
type Dispatcher interface {
	Dispatch(ctx context.Context, it intent.Intent) error
}

// Service decides lifecycle events and dispatches the resulting intents.
type Service struct {
	decider    *Decider
	dispatcher Dispatcher
	logger     *zap.Logger
}

// New creates a sync service.
func New(decider *Decider, dispatcher Dispatcher, logger *zap.Logger) *Service {
	return &Service{decider: decider, dispatcher: dispatcher, logger: logger}
}

// Handle decides every event and dispatches one batch per op and model type.
// A decision error aborts before anything is dispatched.
func (s *Service) Handle(ctx context.Context, events ...Event) error {
	intents := make([]intent.Intent, 0, len(events))
	for _, ev := range events {
		it, ok, err := s.decider.Decide(ev)
		if err != nil {
			return fmt.Errorf("decide %s event: %w", ev.Kind, err)
		}
		if ok {
			intents = append(intents, it)
		}
	}
	return s.dispatch(ctx, intent.Merge(intents))
}

// Searchable upserts records regardless of lifecycle state.
func (s *Service) Searchable(ctx context.Context, records ...domain.Record) error {
	intents := make([]intent.Intent, 0, len(records))
	for _, r := range records {
		intents = append(intents, intent.NewUpsert(r))
	}
	return s.dispatch(ctx, intent.Merge(intents))
}

// Unsearchable removes records from the index.
func (s *Service) Unsearchable(ctx context.Context, records ...domain.Record) error {
	intents := make([]intent.Intent, 0, len(records))
	for _, r := range records {
		intents = append(intents, intent.NewRemove(r))
	}
	return s.dispatch(ctx, intent.Merge(intents))
}

func (s *Service) dispatch(ctx context.Context, intents []intent.Intent) error {
	for _, it := range intents {
		metrics.SyncIntentsTotal.WithLabelValues(it.ModelType, string(it.Op)).Add(float64(it.Len()))
		if err := s.dispatcher.Dispatch(ctx, it); err != nil {
			return fmt.Errorf("dispatch %s %s: %w", it.Op, it.ModelType, err)
		}
		s.logger.Debug("Sync intent dispatched",
			zap.String("model", it.ModelType),
			zap.String("op", string(it.Op)),
			zap.Int("records", it.Len()),
		)
	}
	return nil
}
