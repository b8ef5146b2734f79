// Package enginetest provides in-memory record stores for engine tests.
package enginetest

import (
	"context"
	"iter"
	"sync"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
)

// Store is an in-memory record store keyed by model and key.
type Store struct {
	mu      sync.Mutex
	records map[string][]domain.Record
	// Fetches counts FetchByKeys calls.
	Fetches int
	// Err is returned by every read when set.
	Err error
}

// NewStore returns a store holding records.
func NewStore(records ...domain.Record) *Store {
	s := &Store{records: make(map[string][]domain.Record)}
	s.Put(records...)
	return s
}

// Put adds or replaces records.
func (s *Store) Put(records ...domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		list := s.records[r.ModelType()]
		replaced := false
		for i, existing := range list {
			if existing.SearchKey() == r.SearchKey() {
				list[i] = r
				replaced = true
			}
		}
		if !replaced {
			list = append(list, r)
		}
		s.records[r.ModelType()] = list
	}
}

// Remove deletes records by key.
func (s *Store) Remove(model string, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	var kept []domain.Record
	for _, r := range s.records[model] {
		if !drop[r.SearchKey()] {
			kept = append(kept, r)
		}
	}
	s.records[model] = kept
}

// FetchByKeys returns the matching records in store order.
func (s *Store) FetchByKeys(_ context.Context, model string, keys []string) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetches++
	if s.Err != nil {
		return nil, s.Err
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	var out []domain.Record
	for _, r := range s.records[model] {
		if want[r.SearchKey()] {
			out = append(out, r)
		}
	}
	return out, nil
}

// CursorByKeys streams FetchByKeys.
func (s *Store) CursorByKeys(ctx context.Context, model string, keys []string) iter.Seq2[domain.Record, error] {
	return func(yield func(domain.Record, error) bool) {
		records, err := s.FetchByKeys(ctx, model, keys)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Scan streams every record of model honouring mode.
func (s *Store) Scan(_ context.Context, model string, mode request.SoftDeleteMode) iter.Seq2[domain.Record, error] {
	return func(yield func(domain.Record, error) bool) {
		s.mu.Lock()
		records := append([]domain.Record(nil), s.records[model]...)
		err := s.Err
		s.mu.Unlock()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, r := range records {
			trashed := domain.IsTrashed(r)
			if mode == request.SoftDeleteNone && trashed || mode == request.OnlyTrashed && !trashed {
				continue
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}
