// Package typesense is the Typesense engine driver.
package typesense

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"strings"

	"github.com/kailas-cloud/searchsync/internal/compiler"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model/field"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

const (
	driver         = "typesense"
	idField        = "id"
	textMatchField = "text_match"
	// OptQueryBy overrides the configured query_by of a request.
	OptQueryBy = "query_by"
)

// Settings configures the driver.
type Settings struct {
	// QueryBy maps an index name to its query_by field list.
	QueryBy map[string]string
}

// Engine syncs records to Typesense collections.
type Engine struct {
	client   Client
	opts     engine.Options
	settings Settings
}

var _ engine.Engine = (*Engine)(nil)

// New creates a Typesense engine.
func New(client Client, opts engine.Options, settings Settings) *Engine {
	return &Engine{client: client, opts: opts, settings: settings}
}

// Update imports documents with action=upsert, one batch per collection.
// A missing collection is created with an auto schema and the batch retried.
func (e *Engine) Update(ctx context.Context, records []domain.Record) error {
	order, groups := engine.Documents(records, e.opts.SoftDelete)
	for _, name := range order {
		docs := make([]map[string]any, 0, len(groups[name]))
		for _, d := range groups[name] {
			body := maps.Clone(d.Body)
			body[d.KeyName] = d.Key
			body[idField] = d.Key
			docs = append(docs, body)
		}

		err := e.client.Import(ctx, name, docs)
		if errors.Is(err, domain.ErrNotFound) {
			if err = e.client.CreateCollection(ctx, name, autoSchema()); err == nil {
				err = e.client.Import(ctx, name, docs)
			}
		}
		if err != nil {
			return engine.Wrap(driver, engine.OpUpdate, fmt.Errorf("collection %s: %w", name, err))
		}
	}
	return nil
}

func autoSchema() []FieldSchema {
	return []FieldSchema{{Name: ".*", Type: "auto"}}
}

// Delete removes documents with one filter_by delete per collection.
// Missing documents and collections are ignored.
func (e *Engine) Delete(ctx context.Context, items []domain.Identity) error {
	order, groups := domain.GroupByIndex(items)
	for _, name := range order {
		ids := make([]string, 0, len(groups[name]))
		for _, it := range groups[name] {
			ids = append(ids, it.SearchKey())
		}
		err := e.client.DeleteByIDs(ctx, name, ids)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return engine.Wrap(driver, engine.OpDelete, fmt.Errorf("collection %s: %w", name, err))
		}
	}
	return nil
}

// Search runs a query. A limit becomes per_page on page 1.
func (e *Engine) Search(ctx context.Context, req *request.Request) (*result.Raw, error) {
	perPage, page := 0, 0
	if n, ok := req.Limit(); ok {
		perPage, page = n, 1
	}
	return e.run(ctx, req, perPage, page)
}

// Paginate runs a query for one page.
func (e *Engine) Paginate(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	if err := engine.CheckPage(perPage, page); err != nil {
		return nil, err
	}
	return e.run(ctx, req, perPage, page)
}

func (e *Engine) run(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	params := SearchParams{Q: req.Term(), PerPage: perPage, Page: page}
	if strings.TrimSpace(params.Q) == "" {
		params.Q = "*"
	}
	sorts := make([]string, 0, len(req.Orders()))
	for _, o := range req.Orders() {
		sorts = append(sorts, o.Field+":"+string(o.Direction))
	}
	params.SortBy = strings.Join(sorts, ",")
	params.QueryBy = e.queryBy(req)

	if req.Kind() == request.KindRawHook {
		opts := map[string]any{"q": params.Q, "query_by": params.QueryBy, "per_page": perPage, "page": page}
		if params.SortBy != "" {
			opts["sort_by"] = params.SortBy
		}
		out, err := req.Hook()(ctx, e.client, req.Term(), opts)
		if err != nil {
			return nil, engine.Wrap(driver, engine.OpSearch, err)
		}
		switch v := out.(type) {
		case *result.Raw:
			return v, nil
		case *SearchResponse:
			return raw(v, perPage), nil
		default:
			return &result.Raw{Native: out}, nil
		}
	}

	if params.QueryBy == "" {
		if params.Q != "*" {
			return nil, engine.Wrap(driver, engine.OpSearch,
				fmt.Errorf("%w: query_by is not configured for %s", domain.ErrNotSupported, req.Index()))
		}
		params.QueryBy = req.KeyName()
	}

	filterBy, err := compiler.Expression(compiler.Typesense, req.EffectiveFilters(e.opts.SoftDelete))
	if err != nil {
		return nil, err
	}
	params.FilterBy = filterBy

	resp, err := e.client.Search(ctx, req.Index(), params)
	if err != nil {
		return nil, engine.Wrap(driver, engine.OpSearch, fmt.Errorf("collection %s: %w", req.Index(), err))
	}
	return raw(resp, perPage), nil
}

func (e *Engine) queryBy(req *request.Request) string {
	if q, ok := req.Options()[OptQueryBy].(string); ok && q != "" {
		return q
	}
	return e.settings.QueryBy[req.Index()]
}

func raw(resp *SearchResponse, perPage int) *result.Raw {
	hits := resp.Hits
	if hits == nil {
		hits = []map[string]any{}
	}
	return &result.Raw{Hits: hits, Total: resp.Found, Page: resp.Page, PerPage: perPage, Native: resp}
}

// MapIDs returns hit keys in rank order.
func (e *Engine) MapIDs(raw *result.Raw, keyName string) []string {
	return engine.IDs(engine.Hits(raw, engine.FieldKey(keyName)))
}

// Map reconciles hits with the store. text_match stays in metadata.
func (e *Engine) Map(ctx context.Context, req *request.Request, raw *result.Raw, f engine.Fetcher) ([]result.Item, error) {
	return engine.Reconcile(ctx, req.Model(), engine.Hits(raw, engine.FieldKey(req.KeyName()), req.KeyName(), idField), f)
}

// LazyMap reconciles hits over a cursor.
func (e *Engine) LazyMap(
	ctx context.Context, req *request.Request, raw *result.Raw, c engine.Cursor,
) iter.Seq2[result.Item, error] {
	hits := engine.Hits(raw, engine.FieldKey(req.KeyName()), req.KeyName(), idField)
	return engine.ReconcileLazy(ctx, req.Model(), hits, c)
}

// TotalCount returns the found count.
func (e *Engine) TotalCount(raw *result.Raw) int { return raw.Total }

// Flush recreates the collection with its current schema.
func (e *Engine) Flush(ctx context.Context, index string) error {
	fields, err := e.client.CollectionFields(ctx, index)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return engine.Wrap(driver, engine.OpFlush, fmt.Errorf("collection %s: %w", index, err))
	}
	if err := e.client.DeleteCollection(ctx, index); err != nil {
		return engine.Wrap(driver, engine.OpFlush, fmt.Errorf("collection %s: %w", index, err))
	}
	if err := e.client.CreateCollection(ctx, index, fields); err != nil {
		return engine.Wrap(driver, engine.OpFlush, fmt.Errorf("collection %s: %w", index, err))
	}
	return nil
}

// CreateIndex creates the collection from declared fields, or an auto schema.
// An existing collection is left as is.
func (e *Engine) CreateIndex(ctx context.Context, index string, opts engine.IndexOptions) error {
	err := e.client.CreateCollection(ctx, index, schema(opts, e.opts.SoftDelete))
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return engine.Wrap(driver, engine.OpCreateIndex, fmt.Errorf("collection %s: %w", index, err))
	}
	return nil
}

func schema(opts engine.IndexOptions, softDelete bool) []FieldSchema {
	if len(opts.Fields) == 0 {
		return autoSchema()
	}
	fields := make([]FieldSchema, 0, len(opts.Fields)+2)
	if opts.PrimaryKey != "" && opts.PrimaryKey != idField {
		fields = append(fields, FieldSchema{Name: opts.PrimaryKey, Type: "string"})
	}
	for _, f := range opts.Fields {
		fs := FieldSchema{Name: f.Name(), Sort: f.Sortable(), Optional: true}
		switch f.FieldType() {
		case field.Text:
			fs.Type = "string"
		case field.Tag:
			fs.Type, fs.Facet = "string", true
		case field.Numeric:
			fs.Type = "float"
		case field.Bool:
			fs.Type, fs.Facet = "bool", true
		}
		fields = append(fields, fs)
	}
	if opts.SoftDeletes && softDelete {
		fields = append(fields, FieldSchema{Name: domain.SoftDeletedField, Type: "int32", Facet: true})
	}
	return fields
}

// DeleteIndex drops the collection. A missing collection is not an error.
func (e *Engine) DeleteIndex(ctx context.Context, index string) error {
	err := e.client.DeleteCollection(ctx, index)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return engine.Wrap(driver, engine.OpDeleteIndex, fmt.Errorf("collection %s: %w", index, err))
	}
	return nil
}

// Native returns the client.
func (e *Engine) Native() any { return e.client }
