package searchsync

import (
	"context"
	"fmt"
	"iter"
	"time"
)

// SearchService runs searches against one model.
type SearchService struct {
	model string
	svc   searchUseCase
	obs   *observer
}

// Query starts a request for term. An empty term matches every document.
func (s *SearchService) Query(term string) (*Builder, error) {
	b, err := s.svc.Query(s.model, term)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.model, err)
	}
	return b, nil
}

// Get returns the live records matching req in engine rank order.
func (s *SearchService) Get(ctx context.Context, req *Request) (_ []Item, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.get", s.model, start, err) }()

	items, err := s.svc.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.model, err)
	}
	return items, nil
}

// Keys returns the matching keys without loading records.
func (s *SearchService) Keys(ctx context.Context, req *Request) (_ []string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.keys", s.model, start, err) }()

	keys, err := s.svc.Keys(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search keys %s: %w", s.model, err)
	}
	return keys, nil
}

// Raw returns the backend result before reconciliation.
func (s *SearchService) Raw(ctx context.Context, req *Request) (_ *RawResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.raw", s.model, start, err) }()

	raw, err := s.svc.RawResult(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search raw %s: %w", s.model, err)
	}
	return raw, nil
}

// Cursor streams matching records, loading them from the store lazily.
func (s *SearchService) Cursor(ctx context.Context, req *Request) iter.Seq2[Item, error] {
	return s.svc.Cursor(ctx, req)
}

// Paginate returns one page of live records. perPage <= 0 uses the model's page size.
func (s *SearchService) Paginate(ctx context.Context, req *Request, perPage, page int) (_ Page, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.paginate", s.model, start, err) }()

	p, err := s.svc.Paginate(ctx, req, perPage, page)
	if err != nil {
		return Page{}, fmt.Errorf("paginate %s: %w", s.model, err)
	}
	return p, nil
}

// PaginateRaw returns one page of the backend result without reconciliation.
func (s *SearchService) PaginateRaw(ctx context.Context, req *Request, perPage, page int) (_ *RawResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.paginate_raw", s.model, start, err) }()

	raw, err := s.svc.PaginateRaw(ctx, req, perPage, page)
	if err != nil {
		return nil, fmt.Errorf("paginate raw %s: %w", s.model, err)
	}
	return raw, nil
}
