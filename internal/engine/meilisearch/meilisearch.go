// Package meilisearch is the Meilisearch engine driver.
package meilisearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/kailas-cloud/searchsync/internal/compiler"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model/field"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

const driver = "meilisearch"

// Request options understood by the driver.
const (
	OptAttributesToRetrieve = "attributesToRetrieve"
	OptShowRankingScore     = "showRankingScore"
)

// Engine syncs records to Meilisearch.
type Engine struct {
	client Client
	opts   engine.Options
}

var _ engine.Engine = (*Engine)(nil)

// New creates a Meilisearch engine.
func New(client Client, opts engine.Options) *Engine {
	return &Engine{client: client, opts: opts}
}

// Update adds documents, one call per index.
func (e *Engine) Update(ctx context.Context, records []domain.Record) error {
	order, groups := engine.Documents(records, e.opts.SoftDelete)
	for _, name := range order {
		docs := groups[name]
		bodies := make([]map[string]any, 0, len(docs))
		for _, d := range docs {
			body := maps.Clone(d.Body)
			body[d.KeyName] = d.Key
			bodies = append(bodies, body)
		}
		if err := e.client.Index(name).AddDocuments(ctx, bodies, docs[0].KeyName); err != nil {
			return engine.Wrap(driver, engine.OpUpdate, fmt.Errorf("index %s: %w", name, err))
		}
	}
	return nil
}

// Delete removes documents by key.
func (e *Engine) Delete(ctx context.Context, items []domain.Identity) error {
	order, groups := domain.GroupByIndex(items)
	for _, name := range order {
		if err := e.client.Index(name).DeleteDocuments(ctx, domain.Keys(groups[name])); err != nil {
			return engine.Wrap(driver, engine.OpDelete, fmt.Errorf("index %s: %w", name, err))
		}
	}
	return nil
}

// Search runs a query. A limit maps to hitsPerPage.
func (e *Engine) Search(ctx context.Context, req *request.Request) (*result.Raw, error) {
	params := e.params(req)
	if n, ok := req.Limit(); ok {
		params.HitsPerPage = int64(n)
	}
	return e.run(ctx, req, params)
}

// Paginate runs a query for one page.
func (e *Engine) Paginate(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	if err := engine.CheckPage(perPage, page); err != nil {
		return nil, err
	}
	params := e.params(req)
	params.HitsPerPage, params.Page = int64(perPage), int64(page)
	return e.run(ctx, req, params)
}

func (e *Engine) params(req *request.Request) *meili.SearchRequest {
	params := &meili.SearchRequest{}
	for _, o := range req.Orders() {
		params.Sort = append(params.Sort, o.Field+":"+string(o.Direction))
	}
	if attrs, ok := req.Options()[OptAttributesToRetrieve].([]string); ok {
		if !slices.Contains(attrs, req.KeyName()) {
			attrs = append([]string{req.KeyName()}, attrs...)
		}
		params.AttributesToRetrieve = attrs
	}
	if show, ok := req.Options()[OptShowRankingScore].(bool); ok {
		params.ShowRankingScore = show
	}
	return params
}

func (e *Engine) run(ctx context.Context, req *request.Request, params *meili.SearchRequest) (*result.Raw, error) {
	idx := e.client.Index(req.Index())

	if req.Kind() == request.KindRawHook {
		out, err := req.Hook()(ctx, idx, req.Term(), hookOptions(params))
		if err != nil {
			return nil, engine.Wrap(driver, engine.OpSearch, err)
		}
		switch v := out.(type) {
		case *result.Raw:
			return v, nil
		case json.RawMessage:
			return decode(v)
		case []byte:
			return decode(v)
		default:
			return &result.Raw{Native: out}, nil
		}
	}

	expr, err := compiler.Expression(compiler.Meili, req.EffectiveFilters(e.opts.SoftDelete))
	if err != nil {
		return nil, err
	}
	if expr != "" {
		params.Filter = expr
	}

	body, err := idx.Search(ctx, req.Term(), params)
	if err != nil {
		return nil, engine.Wrap(driver, engine.OpSearch, fmt.Errorf("index %s: %w", req.Index(), err))
	}
	return decode(body)
}

func hookOptions(params *meili.SearchRequest) map[string]any {
	opts := make(map[string]any)
	if params.HitsPerPage > 0 {
		opts["hitsPerPage"] = params.HitsPerPage
	}
	if params.Page > 0 {
		opts["page"] = params.Page
	}
	if len(params.Sort) > 0 {
		opts["sort"] = params.Sort
	}
	if len(params.AttributesToRetrieve) > 0 {
		opts[OptAttributesToRetrieve] = params.AttributesToRetrieve
	}
	return opts
}

type searchResponse struct {
	Hits               []map[string]any `json:"hits"`
	EstimatedTotalHits int              `json:"estimatedTotalHits"`
	TotalHits          *int             `json:"totalHits"`
	Page               int              `json:"page"`
	HitsPerPage        int              `json:"hitsPerPage"`
}

// decode parses a search response keeping numbers exact.
func decode(body []byte) (*result.Raw, error) {
	if len(body) == 0 {
		return result.Empty(), nil
	}
	var resp searchResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, engine.Wrap(driver, engine.OpSearch, fmt.Errorf("decode response: %w", err))
	}
	total := resp.EstimatedTotalHits
	if resp.TotalHits != nil {
		total = *resp.TotalHits
	}
	if resp.Hits == nil {
		resp.Hits = []map[string]any{}
	}
	return &result.Raw{
		Hits:    resp.Hits,
		Total:   total,
		Page:    resp.Page,
		PerPage: resp.HitsPerPage,
		Native:  json.RawMessage(body),
	}, nil
}

// MapIDs returns hit keys in rank order.
func (e *Engine) MapIDs(raw *result.Raw, keyName string) []string {
	return engine.IDs(engine.Hits(raw, engine.FieldKey(keyName)))
}

// Map reconciles hits with the store. Ranking fields stay in metadata.
func (e *Engine) Map(ctx context.Context, req *request.Request, raw *result.Raw, f engine.Fetcher) ([]result.Item, error) {
	return engine.Reconcile(ctx, req.Model(), engine.Hits(raw, engine.FieldKey(req.KeyName()), req.KeyName()), f)
}

// LazyMap reconciles hits over a cursor.
func (e *Engine) LazyMap(
	ctx context.Context, req *request.Request, raw *result.Raw, c engine.Cursor,
) iter.Seq2[result.Item, error] {
	return engine.ReconcileLazy(ctx, req.Model(), engine.Hits(raw, engine.FieldKey(req.KeyName()), req.KeyName()), c)
}

// TotalCount returns totalHits, or estimatedTotalHits outside page mode.
func (e *Engine) TotalCount(raw *result.Raw) int { return raw.Total }

// Flush deletes all documents of the index.
func (e *Engine) Flush(ctx context.Context, index string) error {
	if err := e.client.Index(index).DeleteAllDocuments(ctx); err != nil {
		return engine.Wrap(driver, engine.OpFlush, fmt.Errorf("index %s: %w", index, err))
	}
	return nil
}

// CreateIndex creates the index and declares filterable and sortable fields.
func (e *Engine) CreateIndex(ctx context.Context, index string, opts engine.IndexOptions) error {
	if err := e.client.CreateIndex(ctx, index, opts.PrimaryKey); err != nil {
		return engine.Wrap(driver, engine.OpCreateIndex, fmt.Errorf("index %s: %w", index, err))
	}

	var filterable, sortable []string
	for _, f := range opts.Fields {
		if f.FieldType() != field.Text {
			filterable = append(filterable, f.Name())
		}
		if f.Sortable() {
			sortable = append(sortable, f.Name())
		}
	}
	if opts.SoftDeletes && e.opts.SoftDelete {
		filterable = append(filterable, domain.SoftDeletedField)
	}
	if err := e.client.Configure(ctx, index, filterable, sortable); err != nil {
		return engine.Wrap(driver, engine.OpCreateIndex, fmt.Errorf("configure %s: %w", index, err))
	}
	return nil
}

// DeleteIndex drops the index.
func (e *Engine) DeleteIndex(ctx context.Context, index string) error {
	if err := e.client.DeleteIndex(ctx, index); err != nil {
		return engine.Wrap(driver, engine.OpDeleteIndex, fmt.Errorf("index %s: %w", index, err))
	}
	return nil
}

// Native returns the client.
func (e *Engine) Native() any { return e.client }
