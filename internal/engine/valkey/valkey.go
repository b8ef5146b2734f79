// Package valkey is the engine driver for Valkey/Redis with the search module.
// Each record is a hash at "<index>:<key>" covered by the FT index "<index>:idx".
package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/kailas-cloud/searchsync/internal/compiler"
	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model/field"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

const (
	driver = "valkey"
	// ScoreField carries the FT relevance score in hit metadata.
	ScoreField = "__score"
	// DefaultMaxResults caps unpaginated searches without a limit.
	DefaultMaxResults = 1000
)

// Store is the part of the FT store the engine drives.
type Store interface {
	db.HashStore
	db.IndexManager
	db.Searcher
}

// Settings configures the driver.
type Settings struct {
	MaxResults int
}

// Engine syncs records to FT-indexed hashes.
type Engine struct {
	store    Store
	opts     engine.Options
	settings Settings
}

var _ engine.Engine = (*Engine)(nil)

// New creates a Valkey engine.
func New(store Store, opts engine.Options, settings Settings) *Engine {
	if settings.MaxResults <= 0 {
		settings.MaxResults = DefaultMaxResults
	}
	return &Engine{store: store, opts: opts, settings: settings}
}

// Ping pings the store when it supports it.
func (e *Engine) Ping(ctx context.Context) error {
	if p, ok := e.store.(db.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// IndexName returns the FT index name for a search index.
func IndexName(index string) string { return index + ":idx" }

// DocKey returns the hash key of a document.
func DocKey(index, key string) string { return index + ":" + key }

// Update writes one hash per document, pipelined per index.
func (e *Engine) Update(ctx context.Context, records []domain.Record) error {
	order, groups := engine.Documents(records, e.opts.SoftDelete)
	for _, name := range order {
		items := make([]db.HashSetItem, 0, len(groups[name]))
		for _, d := range groups[name] {
			fields := make(map[string]string, len(d.Body)+1)
			for k, v := range d.Body {
				if s, ok := encode(v); ok {
					fields[k] = s
				}
			}
			fields[d.KeyName] = d.Key
			items = append(items, db.HashSetItem{Key: DocKey(name, d.Key), Fields: fields})
		}
		if err := e.store.HSetMulti(ctx, items); err != nil {
			return engine.Wrap(driver, engine.OpUpdate, fmt.Errorf("index %s: %w", name, err))
		}
	}
	return nil
}

// encode renders a value as a hash field. Nil values are skipped, non-scalars
// are stored as JSON.
func encode(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if _, ok := filter.Scalar(v); ok {
		return filter.Format(v), true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Delete removes document hashes.
func (e *Engine) Delete(ctx context.Context, items []domain.Identity) error {
	order, groups := domain.GroupByIndex(items)
	for _, name := range order {
		keys := make([]string, 0, len(groups[name]))
		for _, it := range groups[name] {
			keys = append(keys, DocKey(name, it.SearchKey()))
		}
		if err := e.store.DelMulti(ctx, keys); err != nil {
			return engine.Wrap(driver, engine.OpDelete, fmt.Errorf("index %s: %w", name, err))
		}
	}
	return nil
}

// Search runs FT.SEARCH capped by the request limit or MaxResults.
func (e *Engine) Search(ctx context.Context, req *request.Request) (*result.Raw, error) {
	limit := e.settings.MaxResults
	if n, ok := req.Limit(); ok {
		limit = n
	}
	return e.run(ctx, req, 0, limit, 0)
}

// Paginate runs FT.SEARCH for one page.
func (e *Engine) Paginate(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	if err := engine.CheckPage(perPage, page); err != nil {
		return nil, err
	}
	return e.run(ctx, req, (page-1)*perPage, perPage, page)
}

// run executes the query. Only the first order is sent: FT.SEARCH takes one SORTBY.
func (e *Engine) run(ctx context.Context, req *request.Request, offset, limit, page int) (*result.Raw, error) {
	q := &db.Query{
		Index:      IndexName(req.Index()),
		Offset:     offset,
		Limit:      limit,
		NoContent:  true,
		WithScores: true,
	}
	if orders := req.Orders(); len(orders) > 0 {
		q.SortBy, q.SortDesc = orders[0].Field, orders[0].Direction == request.Desc
	}
	perPage := 0
	if page > 0 {
		perPage = limit
	}

	if req.Kind() == request.KindRawHook {
		opts := map[string]any{"index": q.Index, "offset": offset, "limit": limit}
		out, err := req.Hook()(ctx, e.store, req.Term(), opts)
		if err != nil {
			return nil, engine.Wrap(driver, engine.OpSearch, err)
		}
		switch v := out.(type) {
		case *result.Raw:
			return v, nil
		case *db.SearchResult:
			return e.raw(v, req, page, perPage), nil
		default:
			return &result.Raw{Native: out}, nil
		}
	}

	query, err := compiler.FTQuery(req.Term(), req.EffectiveFilters(e.opts.SoftDelete))
	if errors.Is(err, compiler.ErrUnsatisfiable) {
		raw := result.Empty()
		raw.Page, raw.PerPage = page, perPage
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	q.Query = query

	res, err := e.store.Search(ctx, q)
	if err != nil {
		return nil, engine.Wrap(driver, engine.OpSearch, fmt.Errorf("index %s: %w", q.Index, err))
	}
	return e.raw(res, req, page, perPage), nil
}

func (e *Engine) raw(res *db.SearchResult, req *request.Request, page, perPage int) *result.Raw {
	prefix := DocKey(req.Index(), "")
	hits := make([]map[string]any, 0, len(res.Entries))
	for _, entry := range res.Entries {
		hits = append(hits, map[string]any{
			req.KeyName(): strings.TrimPrefix(entry.Key, prefix),
			ScoreField:    entry.Score,
		})
	}
	return &result.Raw{Hits: hits, Total: res.Total, Page: page, PerPage: perPage, Native: res}
}

// MapIDs returns hit keys in rank order.
func (e *Engine) MapIDs(raw *result.Raw, keyName string) []string {
	return engine.IDs(engine.Hits(raw, engine.FieldKey(keyName)))
}

// Map reconciles hits with the store. The score stays in metadata.
func (e *Engine) Map(ctx context.Context, req *request.Request, raw *result.Raw, f engine.Fetcher) ([]result.Item, error) {
	return engine.Reconcile(ctx, req.Model(), engine.Hits(raw, engine.FieldKey(req.KeyName()), req.KeyName()), f)
}

// LazyMap reconciles hits over a cursor.
func (e *Engine) LazyMap(
	ctx context.Context, req *request.Request, raw *result.Raw, c engine.Cursor,
) iter.Seq2[result.Item, error] {
	return engine.ReconcileLazy(ctx, req.Model(), engine.Hits(raw, engine.FieldKey(req.KeyName()), req.KeyName()), c)
}

// TotalCount returns the FT.SEARCH total.
func (e *Engine) TotalCount(raw *result.Raw) int { return raw.Total }

// Flush deletes every document hash of the index and keeps the index.
func (e *Engine) Flush(ctx context.Context, index string) error {
	keys, err := e.store.Scan(ctx, DocKey(index, "*"))
	if err != nil {
		return engine.Wrap(driver, engine.OpFlush, fmt.Errorf("index %s: %w", index, err))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := e.store.DelMulti(ctx, keys); err != nil {
		return engine.Wrap(driver, engine.OpFlush, fmt.Errorf("index %s: %w", index, err))
	}
	return nil
}

// CreateIndex runs FT.CREATE over the index prefix. An existing index is kept.
func (e *Engine) CreateIndex(ctx context.Context, index string, opts engine.IndexOptions) error {
	def, err := e.definition(index, opts)
	if err != nil {
		return engine.Wrap(driver, engine.OpCreateIndex, err)
	}
	exists, err := e.store.IndexExists(ctx, def.Name)
	if err != nil {
		return engine.Wrap(driver, engine.OpCreateIndex, fmt.Errorf("index %s: %w", index, err))
	}
	if exists {
		return nil
	}
	// Another worker may create it between the two calls.
	if err := e.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return engine.Wrap(driver, engine.OpCreateIndex, fmt.Errorf("index %s: %w", index, err))
	}
	return nil
}

func (e *Engine) definition(index string, opts engine.IndexOptions) (*db.IndexDefinition, error) {
	key := opts.PrimaryKey
	if key == "" {
		key = "id"
	}

	b := db.NewIndex(IndexName(index)).Prefix(DocKey(index, ""))
	declared := false
	for _, f := range opts.Fields {
		declared = declared || f.Name() == key
	}
	if !declared {
		b.TagWithOpts(key, "", true)
	}
	for _, f := range opts.Fields {
		switch f.FieldType() {
		case field.Text:
			b.Text(f.Name())
		case field.Tag, field.Bool:
			b.Tag(f.Name())
		case field.Numeric:
			b.Numeric(f.Name())
		}
		if f.Sortable() {
			b.Sortable()
		}
	}
	if opts.SoftDeletes && e.opts.SoftDelete {
		b.Numeric(domain.SoftDeletedField)
	}
	return b.Build()
}

// DeleteIndex drops the FT index together with its hashes.
func (e *Engine) DeleteIndex(ctx context.Context, index string) error {
	err := e.store.DropIndex(ctx, IndexName(index), true)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return engine.Wrap(driver, engine.OpDeleteIndex, fmt.Errorf("index %s: %w", index, err))
	}
	return nil
}

// Close releases the store connection when the store owns one.
func (e *Engine) Close() error {
	if c, ok := e.store.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}

// Native returns the FT store.
func (e *Engine) Native() any { return e.store }
