package searchsync

import (
	"context"
	"fmt"
)

// ModelOf builds a model descriptor from T's struct tags. Values already set
// in opts win over the tags.
func ModelOf[T any](name string, opts ModelOptions) (*Model, error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	return NewModel(name, meta.modelOptions(opts))
}

// Typed binds a struct type to a registered model.
type Typed[T any] struct {
	client *Client
	model  *Model
	meta   *schemaMeta
}

// Bind creates a typed handle for m. T must be a struct with searchsync tags.
func Bind[T any](client *Client, m *Model) (*Typed[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("bind %q: %w", m.Name(), err)
	}
	if meta.key != m.Key() {
		return nil, fmt.Errorf("bind %q: struct key %q does not match model key %q", m.Name(), meta.key, m.Key())
	}
	return &Typed[T]{client: client, model: m, meta: meta}, nil
}

// Record converts item to a row of the bound model.
func (t *Typed[T]) Record(item T) *Row {
	return NewRow(t.model, t.meta.toAttrs(item))
}

func (t *Typed[T]) records(items []T) []Record {
	out := make([]Record, 0, len(items))
	for _, it := range items {
		out = append(out, t.Record(it))
	}
	return out
}

// Decode converts a store row back to T.
func (t *Typed[T]) Decode(rec Record) (T, error) {
	var zero T
	row, ok := rec.(*Row)
	if !ok {
		return zero, fmt.Errorf("searchsync: cannot decode %T", rec)
	}
	v, err := t.meta.fromAttrs(row.Attributes())
	if err != nil {
		return zero, err
	}
	if item, ok := v.Interface().(T); ok {
		return item, nil
	}
	if item, ok := v.Addr().Interface().(T); ok {
		return item, nil
	}
	return zero, fmt.Errorf("searchsync: type assertion failed for %s", t.meta.typ)
}

// Searchable upserts items regardless of their searchability.
func (t *Typed[T]) Searchable(ctx context.Context, items ...T) error {
	return t.client.Sync().Searchable(ctx, t.records(items)...)
}

// Unsearchable removes items from the index.
func (t *Typed[T]) Unsearchable(ctx context.Context, items ...T) error {
	return t.client.Sync().Unsearchable(ctx, t.records(items)...)
}

// Created reports a new item.
func (t *Typed[T]) Created(ctx context.Context, item T) error {
	return t.client.Sync().Created(ctx, t.Record(item))
}

// Updated reports a saved item.
func (t *Typed[T]) Updated(ctx context.Context, item T, wasSearchable bool, changed ...string) error {
	return t.client.Sync().Updated(ctx, t.Record(item), wasSearchable, changed...)
}

// Trashed reports a soft-deleted item.
func (t *Typed[T]) Trashed(ctx context.Context, item T, wasSearchable bool) error {
	return t.client.Sync().Trashed(ctx, t.Record(item), wasSearchable)
}

// Restored reports a restored item.
func (t *Typed[T]) Restored(ctx context.Context, item T) error {
	return t.client.Sync().Restored(ctx, t.Record(item))
}

// Deleted reports a hard-deleted item.
func (t *Typed[T]) Deleted(ctx context.Context, item T) error {
	return t.client.Sync().Deleted(ctx, t.Record(item))
}

// Search returns a fluent search builder for term.
func (t *Typed[T]) Search(term string) *SearchBuilder[T] {
	return &SearchBuilder[T]{typed: t, req: t.requestFor(term)}
}
