// Package bleve is the embedded full-text engine driver. Each search index
// is a bleve index, in memory or under a directory.
package bleve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model/field"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

const (
	driver = "bleve"
	// ScoreField carries the bleve relevance score in hit metadata.
	ScoreField = "_score"
	// DefaultMaxResults caps unpaginated searches without a limit.
	DefaultMaxResults = 1000
)

// Settings configures the driver. An empty Dir keeps indexes in memory.
type Settings struct {
	Dir        string
	MaxResults int
}

// Engine keeps one bleve index per search index.
type Engine struct {
	opts     engine.Options
	settings Settings

	mu      sync.RWMutex
	indexes map[string]bleve.Index
}

var _ engine.Engine = (*Engine)(nil)

// New creates a bleve engine.
func New(opts engine.Options, settings Settings) *Engine {
	if settings.MaxResults <= 0 {
		settings.MaxResults = DefaultMaxResults
	}
	return &Engine{opts: opts, settings: settings, indexes: make(map[string]bleve.Index)}
}

// Index returns the bleve index backing name, opening or creating it with a
// dynamic mapping when it does not exist yet.
func (e *Engine) Index(name string) (bleve.Index, error) {
	return e.open(name, bleve.NewIndexMapping())
}

func (e *Engine) lookup(name string) (bleve.Index, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.indexes[name]
	return idx, ok
}

func (e *Engine) open(name string, m mapping.IndexMapping) (bleve.Index, error) {
	if idx, ok := e.lookup(name); ok {
		return idx, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if idx, ok := e.indexes[name]; ok {
		return idx, nil
	}

	var (
		idx bleve.Index
		err error
	)
	if e.settings.Dir == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		path := e.path(name)
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			if err = os.MkdirAll(e.settings.Dir, 0o755); err == nil {
				idx, err = bleve.New(path, m)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", name, err)
	}
	e.indexes[name] = idx
	return idx, nil
}

func (e *Engine) path(name string) string {
	return filepath.Join(e.settings.Dir, name+".bleve")
}

// Update indexes one batch per search index.
func (e *Engine) Update(_ context.Context, records []domain.Record) error {
	order, groups := engine.Documents(records, e.opts.SoftDelete)
	for _, name := range order {
		idx, err := e.Index(name)
		if err != nil {
			return engine.Wrap(driver, engine.OpUpdate, err)
		}
		batch := idx.NewBatch()
		for _, d := range groups[name] {
			body := normalize(d.Body)
			if _, ok := body[d.KeyName]; !ok {
				body[d.KeyName] = d.Key
			}
			if err := batch.Index(d.Key, body); err != nil {
				return engine.Wrap(driver, engine.OpUpdate, fmt.Errorf("document %s: %w", d.Key, err))
			}
		}
		if err := idx.Batch(batch); err != nil {
			return engine.Wrap(driver, engine.OpUpdate, fmt.Errorf("index %s: %w", name, err))
		}
	}
	return nil
}

// normalize converts json.Number values so bleve indexes them as numbers.
func normalize(body map[string]any) map[string]any {
	for k, v := range body {
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				body[k] = f
			}
		}
	}
	return body
}

// Delete removes documents by key.
func (e *Engine) Delete(_ context.Context, items []domain.Identity) error {
	order, groups := domain.GroupByIndex(items)
	for _, name := range order {
		idx, err := e.Index(name)
		if err != nil {
			return engine.Wrap(driver, engine.OpDelete, err)
		}
		batch := idx.NewBatch()
		for _, it := range groups[name] {
			batch.Delete(it.SearchKey())
		}
		if err := idx.Batch(batch); err != nil {
			return engine.Wrap(driver, engine.OpDelete, fmt.Errorf("index %s: %w", name, err))
		}
	}
	return nil
}

// Search runs the request capped by its limit or MaxResults.
func (e *Engine) Search(ctx context.Context, req *request.Request) (*result.Raw, error) {
	size := e.settings.MaxResults
	if n, ok := req.Limit(); ok {
		size = n
	}
	return e.run(ctx, req, size, 0, 0)
}

// Paginate runs the request for one page.
func (e *Engine) Paginate(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	if err := engine.CheckPage(perPage, page); err != nil {
		return nil, err
	}
	return e.run(ctx, req, perPage, (page-1)*perPage, page)
}

func (e *Engine) run(ctx context.Context, req *request.Request, size, from, page int) (*result.Raw, error) {
	if req.Kind() == request.KindCompiled {
		if err := req.Validate(); err != nil {
			return nil, err
		}
	}
	idx, err := e.Index(req.Index())
	if err != nil {
		return nil, engine.Wrap(driver, engine.OpSearch, err)
	}
	perPage := 0
	if page > 0 {
		perPage = size
	}

	if req.Kind() == request.KindRawHook {
		opts := map[string]any{"size": size, "from": from}
		out, err := req.Hook()(ctx, idx, req.Term(), opts)
		if err != nil {
			return nil, engine.Wrap(driver, engine.OpSearch, err)
		}
		switch v := out.(type) {
		case *result.Raw:
			return v, nil
		case *bleve.SearchResult:
			return toRaw(v, req.KeyName(), page, perPage), nil
		default:
			return &result.Raw{Native: out}, nil
		}
	}

	sr := bleve.NewSearchRequestOptions(compile(req.Term(), req.EffectiveFilters(e.opts.SoftDelete)), size, from, false)
	sr.Fields = []string{}
	sr.SortBy(sortOrder(req.Orders()))

	res, err := idx.SearchInContext(ctx, sr)
	if err != nil {
		return nil, engine.Wrap(driver, engine.OpSearch, fmt.Errorf("index %s: %w", req.Index(), err))
	}
	return toRaw(res, req.KeyName(), page, perPage), nil
}

// sortOrder renders orders as bleve sort keys. Ties fall back to score, then id.
func sortOrder(orders []request.Order) []string {
	out := make([]string, 0, len(orders)+2)
	for _, o := range orders {
		if o.Direction == request.Desc {
			out = append(out, "-"+o.Field)
			continue
		}
		out = append(out, o.Field)
	}
	return append(out, "-_score", "_id")
}

func toRaw(res *bleve.SearchResult, keyName string, page, perPage int) *result.Raw {
	hits := make([]map[string]any, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, map[string]any{keyName: h.ID, ScoreField: h.Score})
	}
	return &result.Raw{Hits: hits, Total: int(res.Total), Page: page, PerPage: perPage, Native: res}
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

// TotalCount returns the bleve total.
func (e *Engine) TotalCount(raw *result.Raw) int { return raw.Total }

// Flush deletes every document of the index and keeps its mapping.
func (e *Engine) Flush(ctx context.Context, index string) error {
	idx, err := e.Index(index)
	if err != nil {
		return engine.Wrap(driver, engine.OpFlush, err)
	}
	count, err := idx.DocCount()
	if err != nil {
		return engine.Wrap(driver, engine.OpFlush, err)
	}
	if count == 0 {
		return nil
	}

	sr := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	sr.Size = int(count)
	sr.Fields = []string{}
	res, err := idx.SearchInContext(ctx, sr)
	if err != nil {
		return engine.Wrap(driver, engine.OpFlush, err)
	}
	batch := idx.NewBatch()
	for _, h := range res.Hits {
		batch.Delete(h.ID)
	}
	if err := idx.Batch(batch); err != nil {
		return engine.Wrap(driver, engine.OpFlush, fmt.Errorf("index %s: %w", index, err))
	}
	return nil
}

// CreateIndex opens the index with an explicit mapping. Tag fields are
// indexed as keywords, text fields are analyzed. An open index is kept.
func (e *Engine) CreateIndex(_ context.Context, index string, opts engine.IndexOptions) error {
	if _, err := e.open(index, e.mapping(opts)); err != nil {
		return engine.Wrap(driver, engine.OpCreateIndex, err)
	}
	return nil
}

func (e *Engine) mapping(opts engine.IndexOptions) *mapping.IndexMappingImpl {
	doc := mapping.NewDocumentMapping()
	key := opts.PrimaryKey
	if key == "" {
		key = "id"
	}
	doc.AddFieldMappingsAt(key, mapping.NewKeywordFieldMapping())
	for _, f := range opts.Fields {
		var fm *mapping.FieldMapping
		switch f.FieldType() {
		case field.Text:
			fm = mapping.NewTextFieldMapping()
		case field.Tag:
			fm = mapping.NewKeywordFieldMapping()
		case field.Numeric:
			fm = mapping.NewNumericFieldMapping()
		case field.Bool:
			fm = mapping.NewBooleanFieldMapping()
		default:
			continue
		}
		doc.AddFieldMappingsAt(f.Name(), fm)
	}
	if opts.SoftDeletes && e.opts.SoftDelete {
		doc.AddFieldMappingsAt(domain.SoftDeletedField, mapping.NewNumericFieldMapping())
	}

	im := mapping.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// DeleteIndex closes the index and removes its files.
func (e *Engine) DeleteIndex(_ context.Context, index string) error {
	e.mu.Lock()
	idx, ok := e.indexes[index]
	delete(e.indexes, index)
	e.mu.Unlock()

	if ok {
		if err := idx.Close(); err != nil {
			return engine.Wrap(driver, engine.OpDeleteIndex, err)
		}
	}
	if e.settings.Dir != "" {
		if err := os.RemoveAll(e.path(index)); err != nil {
			return engine.Wrap(driver, engine.OpDeleteIndex, err)
		}
	}
	return nil
}

// Close closes every open index.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for name, idx := range e.indexes {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(e.indexes, name)
	}
	return errors.Join(errs...)
}

// Native returns the engine itself; Index exposes the bleve handles.
func (e *Engine) Native() any { return e }
