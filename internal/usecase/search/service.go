package search

import (
	"context"
	"fmt"
	"iter"

	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

// Service runs search requests and rehydrates hits from the record store.
type Service struct {
	engine  Engine
	records Records
	models  Catalog
}

// New creates a search service.
func New(e Engine, records Records, models Catalog) *Service {
	return &Service{engine: e, records: records, models: models}
}

// Query starts a request for the named model.
func (s *Service) Query(modelName, term string) (*request.Builder, error) {
	m, err := s.models.Get(modelName)
	if err != nil {
		return nil, err
	}
	return request.For(m, term), nil
}

// Search returns matching records in backend rank order.
func (s *Service) Search(ctx context.Context, req *request.Request) ([]result.Item, error) {
	raw, err := s.RawResult(ctx, req)
	if err != nil {
		return nil, err
	}
	records, err := s.recordsFor(req)
	if err != nil {
		return nil, err
	}
	items, err := s.engine.Map(ctx, req, raw, records)
	if err != nil {
		return nil, fmt.Errorf("map %s hits: %w", req.Model(), err)
	}
	return items, nil
}

// RawResult returns the backend result without touching the record store.
func (s *Service) RawResult(ctx context.Context, req *request.Request) (*result.Raw, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	raw, err := s.engine.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", req.Model(), err)
	}
	return raw, nil
}

// Keys returns the matching keys in rank order.
func (s *Service) Keys(ctx context.Context, req *request.Request) ([]string, error) {
	raw, err := s.RawResult(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.engine.MapIDs(raw, req.KeyName()), nil
}

// Cursor streams matching records in rank order. A search failure is
// yielded as the only element.
func (s *Service) Cursor(ctx context.Context, req *request.Request) iter.Seq2[result.Item, error] {
	return func(yield func(result.Item, error) bool) {
		records, err := s.recordsFor(req)
		if err != nil {
			yield(result.Item{}, err)
			return
		}
		raw, err := s.RawResult(ctx, req)
		if err != nil {
			yield(result.Item{}, err)
			return
		}
		for it, err := range s.engine.LazyMap(ctx, req, raw, records) {
			if !yield(it, err) {
				return
			}
		}
	}
}

// Paginate returns one page of records. perPage <= 0 uses the model's page size.
// Total comes from the backend count, not from the rehydrated rows.
func (s *Service) Paginate(ctx context.Context, req *request.Request, perPage, page int) (result.Page, error) {
	perPage, raw, err := s.paginate(ctx, req, perPage, page)
	if err != nil {
		return result.Page{}, err
	}
	records, err := s.recordsFor(req)
	if err != nil {
		return result.Page{}, err
	}
	items, err := s.engine.Map(ctx, req, raw, records)
	if err != nil {
		return result.Page{}, fmt.Errorf("map %s hits: %w", req.Model(), err)
	}
	return result.Page{
		Items:       items,
		Total:       s.engine.TotalCount(raw),
		PerPage:     perPage,
		CurrentPage: page,
	}, nil
}

// PaginateRaw returns one page of the backend result.
func (s *Service) PaginateRaw(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	_, raw, err := s.paginate(ctx, req, perPage, page)
	return raw, err
}

func (s *Service) paginate(ctx context.Context, req *request.Request, perPage, page int) (int, *result.Raw, error) {
	if perPage <= 0 {
		m, err := s.models.Get(req.Model())
		if err != nil {
			return 0, nil, err
		}
		perPage = m.PerPage()
	}
	if err := engine.CheckPage(perPage, page); err != nil {
		return 0, nil, err
	}
	if err := validate(req); err != nil {
		return 0, nil, err
	}
	raw, err := s.engine.Paginate(ctx, req, perPage, page)
	if err != nil {
		return 0, nil, fmt.Errorf("paginate %s: %w", req.Model(), err)
	}
	return perPage, raw, nil
}

// recordsFor applies the request's store clauses to rehydration.
func (s *Service) recordsFor(req *request.Request) (Records, error) {
	return engine.NarrowAny[Records](s.records, req.StoreClauses())
}

// validate fails fast on compiled requests. Raw hook requests own their query.
func validate(req *request.Request) error {
	if req.Kind() == request.KindRawHook {
		return nil
	}
	return req.Validate()
}
