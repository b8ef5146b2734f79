// Package database pushes searches into the record store as SQL. The term
// becomes a LIKE over the searchable columns; filters, order and paging are
// rendered as WHERE, ORDER BY and LIMIT.
package database

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/model/field"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

const driver = "database"

// Catalog resolves model descriptors.
type Catalog interface {
	Get(name string) (*model.Model, error)
}

// Engine queries the store on every search. Writes are no-ops because the
// store is the index.
type Engine struct {
	store  engine.RowStore
	models Catalog
}

var _ engine.Engine = (*Engine)(nil)

// New creates a database engine over store.
func New(store engine.RowStore, models Catalog) *Engine {
	return &Engine{store: store, models: models}
}

// Update does nothing.
func (e *Engine) Update(context.Context, []domain.Record) error { return nil }

// Delete does nothing.
func (e *Engine) Delete(context.Context, []domain.Identity) error { return nil }

// Search runs the request as one SELECT.
func (e *Engine) Search(ctx context.Context, req *request.Request) (*result.Raw, error) {
	return e.search(ctx, req, 0, 0)
}

// Paginate selects one page and counts every match.
func (e *Engine) Paginate(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error) {
	if err := engine.CheckPage(perPage, page); err != nil {
		return nil, err
	}
	return e.search(ctx, req, perPage, page)
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
	m, err := e.models.Get(req.Model())
	if err != nil {
		return nil, engine.Wrap(driver, engine.OpSearch, err)
	}

	q := rowQuery(m, req)
	if perPage > 0 {
		q.Limit, q.Offset = perPage, (page-1)*perPage
	} else if n, ok := req.Limit(); ok {
		q.Limit = n
	}

	var records []domain.Record
	for r, err := range e.store.SelectRows(ctx, req.Model(), q) {
		if err != nil {
			return nil, engine.Wrap(driver, engine.OpSearch, fmt.Errorf("select %s: %w", req.Model(), err))
		}
		records = append(records, r)
	}

	total := len(records)
	if perPage > 0 {
		if total, err = e.store.CountRows(ctx, req.Model(), q); err != nil {
			return nil, engine.Wrap(driver, engine.OpSearch, fmt.Errorf("count %s: %w", req.Model(), err))
		}
	}

	raw := &result.Raw{Hits: make([]map[string]any, 0, len(records)), Total: total, Page: page, PerPage: perPage}
	for _, r := range records {
		body := maps.Clone(r.SearchableProjection())
		if body == nil {
			body = make(map[string]any)
		}
		body[r.SearchKeyName()] = r.SearchKey()
		raw.Hits = append(raw.Hits, body)
	}
	raw.Native = records
	return raw, nil
}

// rowQuery renders the request's term, filters and store clauses.
func rowQuery(m *model.Model, req *request.Request) engine.RowQuery {
	q := engine.RowQuery{
		Mode:        request.WithTrashed,
		Term:        strings.TrimSpace(req.Term()),
		TermColumns: termColumns(m),
		Orders:      req.Orders(),
	}
	if m.SoftDeletes() {
		q.Mode = req.SoftDelete()
	}
	q.Where = append(q.Where, searchableIf(m)...)
	for _, f := range req.Filters() {
		if c, ok := clause(f); ok {
			q.Where = append(q.Where, c)
		}
	}
	q.Where = append(q.Where, req.StoreClauses()...)
	return q
}

// termColumns are the declared searchable columns, or the key plus every
// text field.
func termColumns(m *model.Model) []string {
	if cols := m.Searchable(); len(cols) > 0 {
		return cols
	}
	cols := []string{m.Key()}
	for _, f := range m.Fields() {
		if f.FieldType() == field.Text && f.Name() != m.Key() {
			cols = append(cols, f.Name())
		}
	}
	return cols
}

func searchableIf(m *model.Model) []request.Clause {
	conds := m.SearchableIf()
	cols := slices.Sorted(maps.Keys(conds))
	out := make([]request.Clause, 0, len(cols))
	for _, col := range cols {
		out = append(out, request.Clause{SQL: quoteIdent(col) + " = ?", Args: []any{conds[col]}})
	}
	return out
}

// clause compiles one filter. An empty not_in needs no clause.
func clause(f filter.Filter) (request.Clause, bool) {
	col := quoteIdent(f.Field())
	switch f.Op() {
	case filter.OpEq:
		return request.Clause{SQL: col + " = ?", Args: []any{f.Value()}}, true
	case filter.OpIn:
		if len(f.Values()) == 0 {
			return request.Clause{SQL: "1 = 0"}, true
		}
		return request.Clause{SQL: col + " IN (" + marks(len(f.Values())) + ")", Args: f.Values()}, true
	case filter.OpNotIn:
		if len(f.Values()) == 0 {
			return request.Clause{}, false
		}
		return request.Clause{SQL: col + " NOT IN (" + marks(len(f.Values())) + ")", Args: f.Values()}, true
	}
	return request.Clause{}, false
}

func marks(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// MapIDs returns hit keys in order.
func (e *Engine) MapIDs(raw *result.Raw, keyName string) []string {
	return engine.IDs(engine.Hits(raw, engine.FieldKey(keyName)))
}

// Map returns the selected records without another store round trip.
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

// LazyMap yields the selected records.
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

// TotalCount returns the match count.
func (e *Engine) TotalCount(raw *result.Raw) int { return raw.Total }

// Flush does nothing.
func (e *Engine) Flush(context.Context, string) error { return nil }

// CreateIndex does nothing.
func (e *Engine) CreateIndex(context.Context, string, engine.IndexOptions) error { return nil }

// DeleteIndex does nothing.
func (e *Engine) DeleteIndex(context.Context, string) error { return nil }

// Native returns the store.
func (e *Engine) Native() any { return e.store }
