package searchsync

import (
	"context"
	"fmt"
	"time"
)

// IndexService manages model indexes.
type IndexService struct {
	svc indexUseCase
	obs *observer
}

// Import sends every searchable record of a model to its index in chunks.
// Returns the number of records sent.
func (s *IndexService) Import(ctx context.Context, modelName string) (_ int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.import", modelName, start, err) }()

	n, err := s.svc.Import(ctx, modelName)
	if err != nil {
		return n, fmt.Errorf("import %s: %w", modelName, err)
	}
	return n, nil
}

// Unimport removes every stored record of a model from its index.
func (s *IndexService) Unimport(ctx context.Context, modelName string) (_ int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.unimport", modelName, start, err) }()

	n, err := s.svc.Unimport(ctx, modelName)
	if err != nil {
		return n, fmt.Errorf("unimport %s: %w", modelName, err)
	}
	return n, nil
}

// Flush removes every document of a model's index.
func (s *IndexService) Flush(ctx context.Context, modelName string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.flush", modelName, start, err) }()

	if err = s.svc.Flush(ctx, modelName); err != nil {
		return fmt.Errorf("flush %s: %w", modelName, err)
	}
	return nil
}

// Create creates a model's index with its declared fields.
func (s *IndexService) Create(ctx context.Context, modelName string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.create", modelName, start, err) }()

	if err = s.svc.CreateIndex(ctx, modelName); err != nil {
		return fmt.Errorf("create index %s: %w", modelName, err)
	}
	return nil
}

// Delete drops a model's index.
func (s *IndexService) Delete(ctx context.Context, modelName string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.delete", modelName, start, err) }()

	if err = s.svc.DeleteIndex(ctx, modelName); err != nil {
		return fmt.Errorf("delete index %s: %w", modelName, err)
	}
	return nil
}
