package request

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
)

// MaxTermLength is the maximum allowed search term length.
const MaxTermLength = 4096

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order is a single sort clause.
type Order struct {
	Field     string
	Direction Direction
}

// SoftDeleteMode controls visibility of trashed records.
type SoftDeleteMode int

// Soft delete modes. The zero value hides trashed records.
const (
	SoftDeleteNone SoftDeleteMode = iota
	WithTrashed
	OnlyTrashed
)

// Kind tags the request variant.
type Kind int

// Request kinds.
const (
	// KindCompiled requests are compiled from filters by the engine.
	KindCompiled Kind = iota
	// KindRawHook requests hand the backend call to a caller-supplied hook.
	KindRawHook
)

// Hook fully owns a backend call. backend is the engine's native handle for
// the target index, opts holds the engine's paging and sort options.
type Hook func(ctx context.Context, backend any, term string, opts map[string]any) (any, error)

// Clause is a SQL condition with ? placeholders. Clauses narrow the rows the
// record store returns when hits are rehydrated.
type Clause struct {
	SQL  string
	Args []any
}

// StoreQuery collects store clauses inside a Builder.Query callback.
type StoreQuery struct {
	clauses []Clause
}

// Where adds a condition. Conditions are ANDed.
func (q *StoreQuery) Where(sql string, args ...any) *StoreQuery {
	q.clauses = append(q.clauses, Clause{SQL: sql, Args: args})
	return q
}

// Target identifies the model a request searches.
type Target struct {
	Model           string
	Index           string
	KeyName         string
	SoftDeletes     bool
	CreatedAtColumn string
}

// TargetOf builds a Target from a model descriptor.
func TargetOf(m *model.Model) Target {
	return Target{
		Model:           m.Name(),
		Index:           m.Index(),
		KeyName:         m.Key(),
		SoftDeletes:     m.SoftDeletes(),
		CreatedAtColumn: m.CreatedAtColumn(),
	}
}

// Request is a backend-agnostic search description. It is read-only once built.
type Request struct {
	target     Target
	term       string
	filters    []filter.Filter
	orders     []Order
	limit      int
	hasLimit   bool
	softDelete SoftDeleteMode
	within     string
	kind       Kind
	hook       Hook
	options    map[string]any
	store      []Clause
}

// Term returns the search term.
func (r *Request) Term() string { return r.term }

// Target returns the searched model.
func (r *Request) Target() Target { return r.target }

// Model returns the model type.
func (r *Request) Model() string { return r.target.Model }

// KeyName returns the key field of the searched model.
func (r *Request) KeyName() string { return r.target.KeyName }

// Index returns the index to search: the Within override or the model's index.
func (r *Request) Index() string {
	if r.within != "" {
		return r.within
	}
	return r.target.Index
}

// Filters returns the caller's filters in insertion order.
func (r *Request) Filters() []filter.Filter { return r.filters }

// EffectiveFilters returns the caller's filters followed by the soft-delete
// marker constraint when trashed records are kept in the index.
func (r *Request) EffectiveFilters(softDeleteIndexed bool) []filter.Filter {
	if !softDeleteIndexed || !r.target.SoftDeletes {
		return r.filters
	}
	out := slices.Clone(r.filters)
	switch r.softDelete {
	case SoftDeleteNone:
		out = append(out, filter.Eq(domain.SoftDeletedField, 0))
	case OnlyTrashed:
		out = append(out, filter.Eq(domain.SoftDeletedField, 1))
	case WithTrashed:
	}
	return out
}

// Orders returns the sort clauses.
func (r *Request) Orders() []Order { return r.orders }

// Limit returns the result cap, if set.
func (r *Request) Limit() (int, bool) { return r.limit, r.hasLimit }

// SoftDelete returns the trashed-record visibility.
func (r *Request) SoftDelete() SoftDeleteMode { return r.softDelete }

// Kind returns the request variant.
func (r *Request) Kind() Kind { return r.kind }

// Hook returns the raw query hook for KindRawHook requests.
func (r *Request) Hook() Hook { return r.hook }

// StoreClauses returns the conditions applied to the record store.
func (r *Request) StoreClauses() []Clause { return r.store }

// Options returns backend-specific search options.
func (r *Request) Options() map[string]any { return r.options }

// Validate checks the term length and every filter.
func (r *Request) Validate() error {
	if len(r.term) > MaxTermLength {
		return fmt.Errorf("%w: term too long (max %d chars)", domain.ErrInvalidFilter, MaxTermLength)
	}
	return filter.Validate(r.filters)
}

// Builder accumulates a Request.
type Builder struct {
	req Request
}

// New starts a request for target.
func New(target Target, term string) *Builder {
	return &Builder{req: Request{target: target, term: term}}
}

// For starts a request for a model descriptor.
func For(m *model.Model, term string) *Builder {
	return New(TargetOf(m), term)
}

// Where adds an equality filter.
func (b *Builder) Where(field string, value any) *Builder {
	b.req.filters = append(b.req.filters, filter.Eq(field, value))
	return b
}

// WhereIn adds a set membership filter.
func (b *Builder) WhereIn(field string, values ...any) *Builder {
	b.req.filters = append(b.req.filters, filter.In(field, values...))
	return b
}

// WhereNotIn adds a set exclusion filter.
func (b *Builder) WhereNotIn(field string, values ...any) *Builder {
	b.req.filters = append(b.req.filters, filter.NotIn(field, values...))
	return b
}

// OrderBy adds a sort clause. Unknown directions sort ascending.
func (b *Builder) OrderBy(field string, dir Direction) *Builder {
	if dir != Desc {
		dir = Asc
	}
	b.req.orders = append(b.req.orders, Order{Field: field, Direction: dir})
	return b
}

// OrderByDesc adds a descending sort clause.
func (b *Builder) OrderByDesc(field string) *Builder { return b.OrderBy(field, Desc) }

// Latest orders by creation time, newest first.
func (b *Builder) Latest() *Builder { return b.OrderBy(b.createdAt(), Desc) }

// Oldest orders by creation time, oldest first.
func (b *Builder) Oldest() *Builder { return b.OrderBy(b.createdAt(), Asc) }

func (b *Builder) createdAt() string {
	if b.req.target.CreatedAtColumn != "" {
		return b.req.target.CreatedAtColumn
	}
	return model.DefaultCreatedAtColumn
}

// Take caps the number of results.
func (b *Builder) Take(n int) *Builder {
	b.req.limit, b.req.hasLimit = n, n > 0
	return b
}

// WithTrashed includes trashed records.
func (b *Builder) WithTrashed() *Builder {
	b.req.softDelete = WithTrashed
	return b
}

// OnlyTrashed restricts results to trashed records.
func (b *Builder) OnlyTrashed() *Builder {
	b.req.softDelete = OnlyTrashed
	return b
}

// Within searches a custom index instead of the model's.
func (b *Builder) Within(index string) *Builder {
	b.req.within = index
	return b
}

// Raw switches the request to the raw hook variant. Filters are then ignored.
func (b *Builder) Raw(hook Hook) *Builder {
	if hook == nil {
		b.req.kind, b.req.hook = KindCompiled, nil
		return b
	}
	b.req.kind, b.req.hook = KindRawHook, hook
	return b
}

// Query narrows the records loaded from the store. fn may be called with
// conditions in SQL; empty conditions are ignored.
func (b *Builder) Query(fn func(q *StoreQuery)) *Builder {
	if fn == nil {
		return b
	}
	q := &StoreQuery{}
	fn(q)
	for _, c := range q.clauses {
		if strings.TrimSpace(c.SQL) != "" {
			b.req.store = append(b.req.store, c)
		}
	}
	return b
}

// Option sets a backend-specific search option.
func (b *Builder) Option(key string, value any) *Builder {
	if b.req.options == nil {
		b.req.options = make(map[string]any)
	}
	b.req.options[key] = value
	return b
}

// Build returns a snapshot of the accumulated request.
func (b *Builder) Build() *Request {
	r := b.req
	r.filters = slices.Clone(b.req.filters)
	r.orders = slices.Clone(b.req.orders)
	r.options = maps.Clone(b.req.options)
	r.store = slices.Clone(b.req.store)
	return &r
}
