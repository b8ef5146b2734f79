// Package memory is an in-process engine that keeps documents in maps.
// It backs tests and local development where no search server runs.
package memory

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

const driver = "memory"

type index struct {
	keys []string
	docs map[string]engine.Document
}

// Engine stores documents per index in insertion order.
type Engine struct {
	mu      sync.RWMutex
	opts    engine.Options
	indexes map[string]*index
	// Batches counts upsert batches per index.
	batches map[string]int
}

var _ engine.Engine = (*Engine)(nil)

// New creates an empty in-memory engine.
func New(opts engine.Options) *Engine {
	return &Engine{opts: opts, indexes: make(map[string]*index), batches: make(map[string]int)}
}

func (e *Engine) index(name string) *index {
	idx, ok := e.indexes[name]
	if !ok {
		idx = &index{docs: make(map[string]engine.Document)}
		e.indexes[name] = idx
	}
	return idx
}

// Update upserts documents, one batch per index.
func (e *Engine) Update(_ context.Context, records []domain.Record) error {
	order, groups := engine.Documents(records, e.opts.SoftDelete)
	if len(order) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, name := range order {
		idx := e.index(name)
		for _, doc := range groups[name] {
			if _, ok := idx.docs[doc.Key]; !ok {
				idx.keys = append(idx.keys, doc.Key)
			}
			idx.docs[doc.Key] = doc
		}
		e.batches[name]++
	}
	return nil
}

// Delete removes documents by key. Unknown keys are ignored.
func (e *Engine) Delete(_ context.Context, items []domain.Identity) error {
	if len(items) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	order, groups := domain.GroupByIndex(items)
	for _, name := range order {
		idx, ok := e.indexes[name]
		if !ok {
			continue
		}
		for _, it := range groups[name] {
			delete(idx.docs, it.SearchKey())
		}
		idx.keys = slices.DeleteFunc(idx.keys, func(k string) bool {
			_, ok := idx.docs[k]
			return !ok
		})
	}
	return nil
}

// Search filters documents in process.
func (e *Engine) Search(ctx context.Context, req *request.Request) (*result.Raw, error) {
	return e.search(ctx, req, 0, 0)
}

// Paginate returns one page of matches.
func (e *Engine) Paginate(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	if err := engine.CheckPage(perPage, page); err != nil {
		return nil, err
	}
	return e.search(ctx, req, perPage, page)
}

func (e *Engine) search(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	if req.Kind() == request.KindRawHook {
		opts := map[string]any{"limit": perPage, "page": page}
		out, err := req.Hook()(ctx, e, req.Term(), opts)
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
	filters := req.EffectiveFilters(e.opts.SoftDelete)

	e.mu.RLock()
	var matched []engine.Document
	if idx, ok := e.indexes[req.Index()]; ok {
		for _, k := range idx.keys {
			doc := idx.docs[k]
			if engine.Matches(doc.Body, filters) && engine.MatchesTerm(doc.Body, req.Term()) {
				matched = append(matched, doc)
			}
		}
	}
	e.mu.RUnlock()

	engine.SortDocs(matched, req.Orders(), func(d engine.Document) map[string]any { return d.Body })
	total := len(matched)
	matched = engine.Window(matched, req, perPage, page)

	raw := &result.Raw{Hits: make([]map[string]any, 0, len(matched)), Total: total, Page: page, PerPage: perPage}
	for _, doc := range matched {
		payload := maps.Clone(doc.Body)
		payload[doc.KeyName] = doc.Key
		raw.Hits = append(raw.Hits, payload)
	}
	raw.Native = matched
	return raw, nil
}

// MapIDs returns hit keys in rank order.
func (e *Engine) MapIDs(raw *result.Raw, keyName string) []string {
	return engine.IDs(engine.Hits(raw, engine.FieldKey(keyName)))
}

// Map reconciles hits with the store.
func (e *Engine) Map(ctx context.Context, req *request.Request, raw *result.Raw, f engine.Fetcher) ([]result.Item, error) {
	return engine.Reconcile(ctx, req.Model(), engine.Hits(raw, engine.FieldKey(req.KeyName()), req.KeyName()), f)
}

// LazyMap reconciles hits over a cursor.
func (e *Engine) LazyMap(
	ctx context.Context, req *request.Request, raw *result.Raw, c engine.Cursor,
) iter.Seq2[result.Item, error] {
	return engine.ReconcileLazy(ctx, req.Model(), engine.Hits(raw, engine.FieldKey(req.KeyName()), req.KeyName()), c)
}

// TotalCount returns the match count.
func (e *Engine) TotalCount(raw *result.Raw) int { return raw.Total }

// Flush removes every document of the index.
func (e *Engine) Flush(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.indexes, name)
	return nil
}

// CreateIndex makes an empty index. Existing indexes are kept.
func (e *Engine) CreateIndex(_ context.Context, name string, _ engine.IndexOptions) error {
	if name == "" {
		return fmt.Errorf("index name is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.index(name)
	return nil
}

// DeleteIndex drops the index.
func (e *Engine) DeleteIndex(ctx context.Context, name string) error {
	return e.Flush(ctx, name)
}

// Native returns the engine itself.
func (e *Engine) Native() any { return e }

// Documents returns the documents of an index in insertion order.
func (e *Engine) Documents(name string) []engine.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.indexes[name]
	if !ok {
		return nil
	}
	out := make([]engine.Document, 0, len(idx.keys))
	for _, k := range idx.keys {
		out = append(out, idx.docs[k])
	}
	return out
}

// Batches returns how many upsert batches reached the index.
func (e *Engine) Batches(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.batches[name]
}
