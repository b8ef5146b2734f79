// Package null is an engine that accepts every write and finds nothing.
package null

import (
	"context"
	"iter"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

// Engine discards writes and returns empty results.
type Engine struct{}

var _ engine.Engine = Engine{}

// New returns the null engine.
func New() Engine { return Engine{} }

// Update does nothing.
func (Engine) Update(context.Context, []domain.Record) error { return nil }

// Delete does nothing.
func (Engine) Delete(context.Context, []domain.Identity) error { return nil }

// Search returns no hits.
func (Engine) Search(context.Context, *request.Request) (*result.Raw, error) {
	return result.Empty(), nil
}

// Paginate returns no hits.
func (Engine) Paginate(context.Context, *request.Request, int, int) (*result.Raw, error) {
	return result.Empty(), nil
}

// MapIDs returns no identifiers.
func (Engine) MapIDs(*result.Raw, string) []string { return []string{} }

// Map returns no items.
func (Engine) Map(context.Context, *request.Request, *result.Raw, engine.Fetcher) ([]result.Item, error) {
	return []result.Item{}, nil
}

// LazyMap yields nothing.
func (Engine) LazyMap(context.Context, *request.Request, *result.Raw, engine.Cursor) iter.Seq2[result.Item, error] {
	return func(func(result.Item, error) bool) {}
}

// TotalCount is always zero.
func (Engine) TotalCount(*result.Raw) int { return 0 }

// Flush does nothing.
func (Engine) Flush(context.Context, string) error { return nil }

// CreateIndex does nothing.
func (Engine) CreateIndex(context.Context, string, engine.IndexOptions) error { return nil }

// DeleteIndex does nothing.
func (Engine) DeleteIndex(context.Context, string) error { return nil }

// Native returns nil.
func (Engine) Native() any { return nil }
