package searchsync

import (
	"context"
	"fmt"
	"time"
)

// SyncService turns record lifecycle events into index updates.
type SyncService struct {
	svc      syncUseCase
	loader   loaderUseCase
	registry syncRegistry
	obs      *observer
}

// Handle decides every event and dispatches the merged result. Nothing is
// dispatched when any decision fails.
func (s *SyncService) Handle(ctx context.Context, events ...Event) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("sync.handle", "", start, err) }()

	if err = s.svc.Handle(ctx, events...); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// Created reports a new record.
func (s *SyncService) Created(ctx context.Context, rec Record) error {
	return s.Handle(ctx, Created(rec))
}

// Updated reports a saved record. wasSearchable is its searchability before the save.
func (s *SyncService) Updated(ctx context.Context, rec Record, wasSearchable bool, changed ...string) error {
	return s.Handle(ctx, Updated(rec, wasSearchable, changed...))
}

// Trashed reports a soft delete.
func (s *SyncService) Trashed(ctx context.Context, rec Record, wasSearchable bool) error {
	return s.Handle(ctx, Trashed(rec, wasSearchable))
}

// Restored reports a restore.
func (s *SyncService) Restored(ctx context.Context, rec Record) error {
	return s.Handle(ctx, Restored(rec))
}

// Deleted reports a hard delete.
func (s *SyncService) Deleted(ctx context.Context, rec Record) error {
	return s.Handle(ctx, Deleted(rec))
}

// Apply loads the referenced records and handles their events.
func (s *SyncService) Apply(ctx context.Context, modelName string, refs []EventRef) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("sync.apply", modelName, start, err) }()

	if err = s.loader.Apply(ctx, modelName, refs); err != nil {
		return fmt.Errorf("sync %s: %w", modelName, err)
	}
	return nil
}

// Searchable upserts records regardless of the disabled state.
func (s *SyncService) Searchable(ctx context.Context, records ...Record) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("sync.searchable", "", start, err) }()

	if err = s.svc.Searchable(ctx, records...); err != nil {
		return fmt.Errorf("make searchable: %w", err)
	}
	return nil
}

// Unsearchable removes records regardless of the disabled state.
func (s *SyncService) Unsearchable(ctx context.Context, records ...Record) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("sync.unsearchable", "", start, err) }()

	if err = s.svc.Unsearchable(ctx, records...); err != nil {
		return fmt.Errorf("remove from search: %w", err)
	}
	return nil
}

// Disable stops automatic syncing for a model type.
func (s *SyncService) Disable(modelType string) { s.registry.Disable(modelType) }

// Enable resumes automatic syncing for a model type.
func (s *SyncService) Enable(modelType string) { s.registry.Enable(modelType) }

// Enabled reports whether events of modelType are synced.
func (s *SyncService) Enabled(modelType string) bool { return s.registry.Enabled(modelType) }

// Without runs fn with syncing disabled for modelType and restores the prior state.
func (s *SyncService) Without(modelType string, fn func() error) error {
	return s.registry.Without(modelType, fn)
}
