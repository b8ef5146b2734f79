// Package algolia is the Algolia engine driver. Algolia sorts through index
// replicas, so request orders are not sent.
package algolia

import (
	"context"
	"fmt"
	"iter"
	"maps"

	"github.com/kailas-cloud/searchsync/internal/compiler"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

const (
	driver = "algolia"
	// ObjectID is the Algolia document identifier field.
	ObjectID = "objectID"
)

// Engine syncs records to Algolia indexes.
type Engine struct {
	client Client
	opts   engine.Options
}

var _ engine.Engine = (*Engine)(nil)

// New creates an Algolia engine.
func New(client Client, opts engine.Options) *Engine {
	return &Engine{client: client, opts: opts}
}

// Update saves objects keyed by objectID, one batch per index.
func (e *Engine) Update(ctx context.Context, records []domain.Record) error {
	order, groups := engine.Documents(records, e.opts.SoftDelete)
	for _, name := range order {
		objects := make([]map[string]any, 0, len(groups[name]))
		for _, d := range groups[name] {
			obj := maps.Clone(d.Body)
			obj[ObjectID] = d.Key
			objects = append(objects, obj)
		}
		if err := e.client.Index(name).SaveObjects(ctx, objects); err != nil {
			return engine.Wrap(driver, engine.OpUpdate, fmt.Errorf("index %s: %w", name, err))
		}
	}
	return nil
}

// Delete removes objects by objectID.
func (e *Engine) Delete(ctx context.Context, items []domain.Identity) error {
	order, groups := domain.GroupByIndex(items)
	for _, name := range order {
		if err := e.client.Index(name).DeleteObjects(ctx, domain.Keys(groups[name])); err != nil {
			return engine.Wrap(driver, engine.OpDelete, fmt.Errorf("index %s: %w", name, err))
		}
	}
	return nil
}

// Search runs a query. A limit maps to hitsPerPage.
func (e *Engine) Search(ctx context.Context, req *request.Request) (*result.Raw, error) {
	params := SearchParams{}
	if n, ok := req.Limit(); ok {
		params.HitsPerPage = n
	}
	return e.run(ctx, req, params)
}

// Paginate runs a query for one page. Algolia pages are zero-based.
func (e *Engine) Paginate(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	if err := engine.CheckPage(perPage, page); err != nil {
		return nil, err
	}
	return e.run(ctx, req, SearchParams{HitsPerPage: perPage, Page: page - 1})
}

func (e *Engine) run(ctx context.Context, req *request.Request, params SearchParams) (*result.Raw, error) {
	idx := e.client.Index(req.Index())

	if req.Kind() == request.KindRawHook {
		opts := map[string]any{"hitsPerPage": params.HitsPerPage, "page": params.Page}
		out, err := req.Hook()(ctx, idx, req.Term(), opts)
		if err != nil {
			return nil, engine.Wrap(driver, engine.OpSearch, err)
		}
		switch v := out.(type) {
		case *result.Raw:
			return v, nil
		case *SearchResponse:
			return raw(v), nil
		default:
			return &result.Raw{Native: out}, nil
		}
	}

	clauses, err := compiler.Clauses(req.EffectiveFilters(e.opts.SoftDelete))
	if err != nil {
		return nil, err
	}
	params.NumericFilters = clauses

	resp, err := idx.Search(ctx, req.Term(), params)
	if err != nil {
		return nil, engine.Wrap(driver, engine.OpSearch, fmt.Errorf("index %s: %w", req.Index(), err))
	}
	return raw(resp), nil
}

func raw(resp *SearchResponse) *result.Raw {
	hits := resp.Hits
	if hits == nil {
		hits = []map[string]any{}
	}
	return &result.Raw{Hits: hits, Total: resp.NbHits, Page: resp.Page + 1, PerPage: resp.HitsPerPage, Native: resp}
}

// MapIDs returns objectIDs in rank order. keyName is not consulted.
func (e *Engine) MapIDs(raw *result.Raw, _ string) []string {
	return engine.IDs(engine.Hits(raw, engine.FieldKey(ObjectID)))
}

// Map reconciles hits with the store. Highlight data stays in metadata.
func (e *Engine) Map(ctx context.Context, req *request.Request, raw *result.Raw, f engine.Fetcher) ([]result.Item, error) {
	return engine.Reconcile(ctx, req.Model(), engine.Hits(raw, engine.FieldKey(ObjectID), ObjectID), f)
}

// LazyMap reconciles hits over a cursor.
func (e *Engine) LazyMap(
	ctx context.Context, req *request.Request, raw *result.Raw, c engine.Cursor,
) iter.Seq2[result.Item, error] {
	return engine.ReconcileLazy(ctx, req.Model(), engine.Hits(raw, engine.FieldKey(ObjectID), ObjectID), c)
}

// TotalCount returns nbHits.
func (e *Engine) TotalCount(raw *result.Raw) int { return raw.Total }

// Flush clears all objects of the index.
func (e *Engine) Flush(ctx context.Context, index string) error {
	if err := e.client.Index(index).ClearObjects(ctx); err != nil {
		return engine.Wrap(driver, engine.OpFlush, fmt.Errorf("index %s: %w", index, err))
	}
	return nil
}

// CreateIndex is a no-op: Algolia creates indexes on first write.
func (e *Engine) CreateIndex(context.Context, string, engine.IndexOptions) error {
	return nil
}

// DeleteIndex drops the index.
func (e *Engine) DeleteIndex(ctx context.Context, index string) error {
	if err := e.client.Index(index).Delete(ctx); err != nil {
		return engine.Wrap(driver, engine.OpDeleteIndex, fmt.Errorf("index %s: %w", index, err))
	}
	return nil
}

// Native returns the client.
func (e *Engine) Native() any { return e.client }
