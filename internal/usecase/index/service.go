package index

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/snapshot"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

// Defaults for Options.
const (
	DefaultChunk       = 500
	DefaultConcurrency = 4
	ensuredCacheSize   = 256
)

// Options tune bulk operations.
type Options struct {
	// SearchableChunk is the batch size of an import.
	SearchableChunk int
	// UnsearchableChunk is the batch size of an unimport.
	UnsearchableChunk int
	// Concurrency bounds in-flight import batches.
	Concurrency int
	// SoftDelete imports trashed rows with their marker.
	SoftDelete bool
}

// Service runs imports, flushes and index lifecycle operations.
type Service struct {
	engine  Engine
	records engine.Scanner
	models  Catalog
	opts    Options
	ensured *lru.Cache[string, struct{}]
	logger  *zap.Logger
}

// New creates an index service.
func New(e Engine, records engine.Scanner, models Catalog, opts Options, logger *zap.Logger) *Service {
	if opts.SearchableChunk <= 0 {
		opts.SearchableChunk = DefaultChunk
	}
	if opts.UnsearchableChunk <= 0 {
		opts.UnsearchableChunk = DefaultChunk
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	ensured, _ := lru.New[string, struct{}](ensuredCacheSize)
	return &Service{engine: e, records: records, models: models, opts: opts, ensured: ensured, logger: logger}
}

// Import streams every searchable row of the model into its index and
// returns how many were sent.
func (s *Service) Import(ctx context.Context, modelName string) (int, error) {
	m, err := s.models.Get(modelName)
	if err != nil {
		return 0, err
	}
	if err := s.ensure(ctx, m); err != nil {
		return 0, err
	}

	mode := request.SoftDeleteNone
	if s.opts.SoftDelete && m.SoftDeletes() {
		mode = request.WithTrashed
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	var (
		total int
		chunk = make([]domain.Record, 0, s.opts.SearchableChunk)
	)
	flush := func(batch []domain.Record) {
		g.Go(func() error {
			if err := s.engine.Update(gctx, batch); err != nil {
				return fmt.Errorf("import %s: %w", modelName, err)
			}
			s.logger.Info("Imported batch",
				zap.String("model", modelName),
				zap.Int("records", len(batch)),
				zap.String("last_key", batch[len(batch)-1].SearchKey()),
			)
			return nil
		})
	}

	for rec, err := range s.records.Scan(gctx, modelName, mode) {
		if err != nil {
			_ = g.Wait()
			return total, fmt.Errorf("scan %s: %w", modelName, err)
		}
		if !rec.ShouldBeSearchable() {
			continue
		}
		chunk = append(chunk, rec)
		total++
		if len(chunk) == s.opts.SearchableChunk {
			flush(chunk)
			chunk = make([]domain.Record, 0, s.opts.SearchableChunk)
		}
		if gctx.Err() != nil {
			break
		}
	}
	if len(chunk) > 0 {
		flush(chunk)
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

// Flush removes every document of the model's index.
func (s *Service) Flush(ctx context.Context, modelName string) error {
	m, err := s.models.Get(modelName)
	if err != nil {
		return err
	}
	if err := s.engine.Flush(ctx, m.Index()); err != nil {
		return fmt.Errorf("flush %s: %w", m.Index(), err)
	}
	return nil
}

// Unimport removes every stored row of the model from its index by key,
// leaving documents the store no longer knows about.
func (s *Service) Unimport(ctx context.Context, modelName string) (int, error) {
	if _, err := s.models.Get(modelName); err != nil {
		return 0, err
	}
	var removed int
	batch := make([]domain.Identity, 0, s.opts.UnsearchableChunk)
	for rec, err := range s.records.Scan(ctx, modelName, request.WithTrashed) {
		if err != nil {
			return removed, fmt.Errorf("scan %s: %w", modelName, err)
		}
		batch = append(batch, snapshot.Of(rec))
		if len(batch) == s.opts.UnsearchableChunk {
			if err := s.engine.Delete(ctx, batch); err != nil {
				return removed, fmt.Errorf("unimport %s: %w", modelName, err)
			}
			removed += len(batch)
			batch = batch[:0]
		}
	}
	if err := s.engine.Delete(ctx, batch); err != nil {
		return removed, fmt.Errorf("unimport %s: %w", modelName, err)
	}
	return removed + len(batch), nil
}

// CreateIndex creates the model's index with its declared fields.
func (s *Service) CreateIndex(ctx context.Context, modelName string) error {
	m, err := s.models.Get(modelName)
	if err != nil {
		return err
	}
	s.ensured.Remove(m.Index())
	return s.ensure(ctx, m)
}

// DeleteIndex drops the model's index.
func (s *Service) DeleteIndex(ctx context.Context, modelName string) error {
	m, err := s.models.Get(modelName)
	if err != nil {
		return err
	}
	s.ensured.Remove(m.Index())
	if err := s.engine.DeleteIndex(ctx, m.Index()); err != nil {
		return fmt.Errorf("delete index %s: %w", m.Index(), err)
	}
	return nil
}

// ensure creates the index once per process. Engines treat an existing index as success.
func (s *Service) ensure(ctx context.Context, m *model.Model) error {
	if s.ensured.Contains(m.Index()) {
		return nil
	}
	opts := engine.IndexOptions{
		PrimaryKey:  m.Key(),
		Fields:      m.Fields(),
		SoftDeletes: s.opts.SoftDelete && m.SoftDeletes(),
	}
	if err := s.engine.CreateIndex(ctx, m.Index(), opts); err != nil {
		return fmt.Errorf("create index %s: %w", m.Index(), err)
	}
	s.ensured.Add(m.Index(), struct{}{})
	return nil
}
