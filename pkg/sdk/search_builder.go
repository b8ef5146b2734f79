package searchsync

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
)

// Hit is a typed search result.
type Hit[T any] struct {
	Item     T
	Metadata map[string]any
}

// TypedPage is one page of typed results.
type TypedPage[T any] struct {
	Hits        []Hit[T]
	Total       int
	PerPage     int
	CurrentPage int
	LastPage    int
}

// SearchBuilder is a fluent builder for typed search queries.
type SearchBuilder[T any] struct {
	typed *Typed[T]
	req   *request.Builder
}

func (t *Typed[T]) requestFor(term string) *request.Builder {
	return request.For(t.model, term)
}

// Where adds an equality filter.
func (b *SearchBuilder[T]) Where(field string, value any) *SearchBuilder[T] {
	b.req.Where(field, value)
	return b
}

// WhereIn adds a set membership filter. An empty set matches nothing.
func (b *SearchBuilder[T]) WhereIn(field string, values ...any) *SearchBuilder[T] {
	b.req.WhereIn(field, values...)
	return b
}

// WhereNotIn adds a set exclusion filter.
func (b *SearchBuilder[T]) WhereNotIn(field string, values ...any) *SearchBuilder[T] {
	b.req.WhereNotIn(field, values...)
	return b
}

// OrderBy adds an ascending sort clause.
func (b *SearchBuilder[T]) OrderBy(field string) *SearchBuilder[T] {
	b.req.OrderBy(field, request.Asc)
	return b
}

// OrderByDesc adds a descending sort clause.
func (b *SearchBuilder[T]) OrderByDesc(field string) *SearchBuilder[T] {
	b.req.OrderByDesc(field)
	return b
}

// Latest orders by creation time, newest first.
func (b *SearchBuilder[T]) Latest() *SearchBuilder[T] {
	b.req.Latest()
	return b
}

// Take caps the number of results.
func (b *SearchBuilder[T]) Take(n int) *SearchBuilder[T] {
	b.req.Take(n)
	return b
}

// WithTrashed includes trashed items.
func (b *SearchBuilder[T]) WithTrashed() *SearchBuilder[T] {
	b.req.WithTrashed()
	return b
}

// OnlyTrashed restricts results to trashed items.
func (b *SearchBuilder[T]) OnlyTrashed() *SearchBuilder[T] {
	b.req.OnlyTrashed()
	return b
}

// Within searches a custom index instead of the model's.
func (b *SearchBuilder[T]) Within(index string) *SearchBuilder[T] {
	b.req.Within(index)
	return b
}

// Do executes the search and returns typed results in engine rank order.
func (b *SearchBuilder[T]) Do(ctx context.Context) ([]Hit[T], error) {
	items, err := b.typed.client.Search(b.typed.model.Name()).Get(ctx, b.req.Build())
	if err != nil {
		return nil, err
	}
	return b.toHits(items)
}

// Paginate executes the search for one page. perPage <= 0 uses the model's page size.
func (b *SearchBuilder[T]) Paginate(ctx context.Context, perPage, page int) (TypedPage[T], error) {
	p, err := b.typed.client.Search(b.typed.model.Name()).Paginate(ctx, b.req.Build(), perPage, page)
	if err != nil {
		return TypedPage[T]{}, err
	}
	hits, err := b.toHits(p.Items)
	if err != nil {
		return TypedPage[T]{}, err
	}
	return TypedPage[T]{
		Hits:        hits,
		Total:       p.Total,
		PerPage:     p.PerPage,
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage(),
	}, nil
}

func (b *SearchBuilder[T]) toHits(items []Item) ([]Hit[T], error) {
	hits := make([]Hit[T], 0, len(items))
	for _, it := range items {
		item, err := b.typed.Decode(it.Record)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", it.Record.SearchKey(), err)
		}
		hits = append(hits, Hit[T]{Item: item, Metadata: it.Metadata})
	}
	return hits, nil
}
