package model

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

// Row is a store row bound to its model. It implements domain.Record.
type Row struct {
	model *Model
	attrs map[string]any
}

var (
	_ domain.Record        = (*Row)(nil)
	_ domain.SoftDeletable = (*Row)(nil)
)

// NewRow binds attrs to m. The map is not copied.
func NewRow(m *Model, attrs map[string]any) *Row {
	return &Row{model: m, attrs: attrs}
}

// Model returns the row's model descriptor.
func (r *Row) Model() *Model { return r.model }

// Attr returns a column value.
func (r *Row) Attr(name string) (any, bool) {
	v, ok := r.attrs[name]
	return v, ok
}

// Attributes returns a copy of all column values.
func (r *Row) Attributes() map[string]any { return maps.Clone(r.attrs) }

// ModelType returns the model name.
func (r *Row) ModelType() string { return r.model.name }

// IndexName returns the model's index.
func (r *Row) IndexName() string { return r.model.index }

// SearchKeyName returns the key column.
func (r *Row) SearchKeyName() string { return r.model.key }

// SearchKey returns the normalized key value.
func (r *Row) SearchKey() string {
	k, ok := domain.KeyString(r.attrs[r.model.key])
	if !ok {
		return fmt.Sprint(r.attrs[r.model.key])
	}
	return k
}

// SearchableProjection returns the declared searchable columns, or every
// column except the soft-delete marker when none are declared.
func (r *Row) SearchableProjection() map[string]any {
	if len(r.model.searchable) == 0 {
		out := maps.Clone(r.attrs)
		if r.model.softDeleteColumn != "" {
			delete(out, r.model.softDeleteColumn)
		}
		return out
	}
	out := make(map[string]any, len(r.model.searchable))
	for _, col := range r.model.searchable {
		if v, ok := r.attrs[col]; ok {
			out[col] = v
		}
	}
	return out
}

// ShouldBeSearchable checks every SearchableIf condition against the row.
func (r *Row) ShouldBeSearchable() bool {
	for col, want := range r.model.searchableIf {
		if !looseEqual(r.attrs[col], want) {
			return false
		}
	}
	return true
}

// SoftDeletes reports whether the model uses soft deletion.
func (r *Row) SoftDeletes() bool { return r.model.SoftDeletes() }

// Trashed reports whether the soft-delete column is set.
func (r *Row) Trashed() bool {
	if !r.model.SoftDeletes() {
		return false
	}
	return r.attrs[r.model.softDeleteColumn] != nil
}

// looseEqual compares store and config values, which may differ in numeric width.
func looseEqual(got, want any) bool {
	if reflect.DeepEqual(got, want) {
		return true
	}
	g, ok1 := domain.KeyString(got)
	w, ok2 := domain.KeyString(want)
	if ok1 && ok2 {
		return g == w
	}
	gb, ok1 := got.(bool)
	wb, ok2 := want.(bool)
	return ok1 && ok2 && gb == wb
}
