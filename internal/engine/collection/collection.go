// Package collection searches the record store directly, filtering in process.
// It needs no search server and suits small datasets and tests.
package collection

import (
	"context"
	"fmt"
	"iter"
	"maps"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

const driver = "collection"

// Engine scans the store on every query. Writes are no-ops because the
// store is the index.
type Engine struct {
	store engine.Scanner
}

var _ engine.Engine = (*Engine)(nil)

// New creates a collection engine over store.
func New(store engine.Scanner) *Engine {
	return &Engine{store: store}
}

// Update does nothing: records are read from the store at query time.
func (e *Engine) Update(context.Context, []domain.Record) error { return nil }

// Delete does nothing.
func (e *Engine) Delete(context.Context, []domain.Identity) error { return nil }

// Search scans and filters the model's records.
func (e *Engine) Search(ctx context.Context, req *request.Request) (*result.Raw, error) {
	return e.search(ctx, req, 0, 0)
}

// Paginate returns one page. Total counts every match before slicing.
func (e *Engine) Paginate(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	if err := engine.CheckPage(perPage, page); err != nil {
		return nil, err
	}
	return e.search(ctx, req, perPage, page)
}

type match struct {
	record domain.Record
	body   map[string]any
}

func (e *Engine) search(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	if req.Kind() == request.KindRawHook {
		out, err := req.Hook()(ctx, e.store, req.Term(), map[string]any{"limit": perPage, "page": page})
		if err != nil {
			return nil, engine.Wrap(driver, engine.OpSearch, err)
		}
		if raw, ok := out.(*result.Raw); ok {
			return raw, nil
		}
		return &result.Raw{Native: out}, nil
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	mode := request.WithTrashed
	if req.Target().SoftDeletes {
		mode = req.SoftDelete()
	}
	store, err := engine.NarrowAny(e.store, req.StoreClauses())
	if err != nil {
		return nil, engine.Wrap(driver, engine.OpSearch, err)
	}

	var matched []match
	for r, err := range store.Scan(ctx, req.Model(), mode) {
		if err != nil {
			return nil, engine.Wrap(driver, engine.OpSearch, fmt.Errorf("scan %s: %w", req.Model(), err))
		}
		if !r.ShouldBeSearchable() {
			continue
		}
		body := maps.Clone(r.SearchableProjection())
		if body == nil {
			body = make(map[string]any)
		}
		body[r.SearchKeyName()] = r.SearchKey()
		if engine.Matches(body, req.Filters()) && engine.MatchesTerm(body, req.Term()) {
			matched = append(matched, match{record: r, body: body})
		}
	}

	engine.SortDocs(matched, req.Orders(), func(m match) map[string]any { return m.body })
	total := len(matched)
	matched = engine.Window(matched, req, perPage, page)

	raw := &result.Raw{Hits: make([]map[string]any, 0, len(matched)), Total: total, Page: page, PerPage: perPage}
	records := make([]domain.Record, 0, len(matched))
	for _, m := range matched {
		raw.Hits = append(raw.Hits, m.body)
		records = append(records, m.record)
	}
	raw.Native = records
	return raw, nil
}

// MapIDs returns hit keys in order.
func (e *Engine) MapIDs(raw *result.Raw, keyName string) []string {
	return engine.IDs(engine.Hits(raw, engine.FieldKey(keyName)))
}

// Map returns the scanned records without another store round trip.
func (e *Engine) Map(ctx context.Context, req *request.Request, raw *result.Raw, f engine.Fetcher) ([]result.Item, error) {
	if records, ok := raw.Native.([]domain.Record); ok {
		items := make([]result.Item, 0, len(records))
		for _, r := range records {
			items = append(items, result.Item{Record: r, Metadata: map[string]any{}})
		}
		return items, nil
	}
	return engine.Reconcile(ctx, req.Model(), engine.Hits(raw, engine.FieldKey(req.KeyName()), req.KeyName()), f)
}

// LazyMap yields the scanned records.
func (e *Engine) LazyMap(
	ctx context.Context, req *request.Request, raw *result.Raw, c engine.Cursor,
) iter.Seq2[result.Item, error] {
	if records, ok := raw.Native.([]domain.Record); ok {
		return func(yield func(result.Item, error) bool) {
			for _, r := range records {
				if !yield(result.Item{Record: r, Metadata: map[string]any{}}, nil) {
					return
				}
			}
		}
	}
	return engine.ReconcileLazy(ctx, req.Model(), engine.Hits(raw, engine.FieldKey(req.KeyName()), req.KeyName()), c)
}

// TotalCount returns the filtered count.
func (e *Engine) TotalCount(raw *result.Raw) int { return raw.Total }

// Flush does nothing.
func (e *Engine) Flush(context.Context, string) error { return nil }

// CreateIndex does nothing.
func (e *Engine) CreateIndex(context.Context, string, engine.IndexOptions) error { return nil }

// DeleteIndex does nothing.
func (e *Engine) DeleteIndex(context.Context, string) error { return nil }

// Native returns the store.
func (e *Engine) Native() any { return e.store }
