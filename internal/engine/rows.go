package engine

import (
	"context"
	"fmt"
	"iter"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
)

// RowQuery selects model rows in the record store. The zero value selects
// every visible row ordered by key.
type RowQuery struct {
	Mode ScanMode
	// Keys restricts rows to these identifiers when non-nil.
	Keys []string
	// Where holds store clauses. They are ANDed.
	Where []request.Clause
	// Term matches rows where any TermColumns value contains it.
	Term        string
	TermColumns []string
	Orders      []request.Order
	Limit       int
	Offset      int
}

// RowStore runs row queries against the record store.
type RowStore interface {
	SelectRows(ctx context.Context, model string, q RowQuery) iter.Seq2[domain.Record, error]
	CountRows(ctx context.Context, model string, q RowQuery) (int, error)
}

// Rows is a RowStore that also serves the plain read interfaces.
type Rows interface {
	RowStore
	Fetcher
	Cursor
	Scanner
}

// Narrow returns store views restricted to where. With no clauses rows is
// returned unchanged.
func Narrow(rows Rows, where []request.Clause) Rows {
	if len(where) == 0 {
		return rows
	}
	return narrowed{store: rows, where: where}
}

// NarrowAny narrows records when they can run row queries. It fails with
// ErrNotSupported when clauses are given and records cannot apply them.
func NarrowAny[T any](records T, where []request.Clause) (T, error) {
	if len(where) == 0 {
		return records, nil
	}
	rows, ok := any(records).(Rows)
	if !ok {
		return records, fmt.Errorf("store clauses: %w", domain.ErrNotSupported)
	}
	out, ok := Narrow(rows, where).(T)
	if !ok {
		return records, fmt.Errorf("store clauses: %w", domain.ErrNotSupported)
	}
	return out, nil
}

type narrowed struct {
	store Rows
	where []request.Clause
}

func (n narrowed) FetchByKeys(ctx context.Context, model string, keys []string) ([]domain.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([]domain.Record, 0, len(keys))
	for r, err := range n.CursorByKeys(ctx, model, keys) {
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (n narrowed) CursorByKeys(ctx context.Context, model string, keys []string) iter.Seq2[domain.Record, error] {
	if len(keys) == 0 {
		return func(func(domain.Record, error) bool) {}
	}
	return n.store.SelectRows(ctx, model, RowQuery{Mode: request.WithTrashed, Keys: keys, Where: n.where})
}

func (n narrowed) Scan(ctx context.Context, model string, mode ScanMode) iter.Seq2[domain.Record, error] {
	return n.store.SelectRows(ctx, model, RowQuery{Mode: mode, Where: n.where})
}

func (n narrowed) SelectRows(ctx context.Context, model string, q RowQuery) iter.Seq2[domain.Record, error] {
	q.Where = append(n.where[:len(n.where):len(n.where)], q.Where...)
	return n.store.SelectRows(ctx, model, q)
}

func (n narrowed) CountRows(ctx context.Context, model string, q RowQuery) (int, error) {
	q.Where = append(n.where[:len(n.where):len(n.where)], q.Where...)
	return n.store.CountRows(ctx, model, q)
}
