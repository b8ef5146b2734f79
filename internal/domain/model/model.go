package model

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/kailas-cloud/searchsync/internal/domain/model/field"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// DefaultPerPage is the page size used when a model does not declare one.
const DefaultPerPage = 15

// DefaultCreatedAtColumn orders latest/oldest queries.
const DefaultCreatedAtColumn = "created_at"

// Model describes one indexable model type (immutable value object).
type Model struct {
	name             string
	table            string
	key              string
	index            string
	searchable       []string
	fields           []field.Field
	softDeleteColumn string
	createdAtColumn  string
	perPage          int
	searchableIf     map[string]any
	reindexOn        []string
}

// Options carries the optional parts of a model definition.
type Options struct {
	// Table defaults to the model name.
	Table string
	// Key defaults to "id".
	Key string
	// Index defaults to the table name. Prefix is prepended to it.
	Index  string
	Prefix string
	// Searchable lists projected columns. Empty projects every column.
	Searchable       []string
	Fields           []field.Field
	SoftDeleteColumn string
	CreatedAtColumn  string
	PerPage          int
	// SearchableIf restricts indexing to rows whose columns equal the given values.
	SearchableIf map[string]any
	// ReindexOn limits update-triggered reindexing to changes of these columns.
	ReindexOn []string
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("model name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("model name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("model name must be alphanumeric with underscores and hyphens")
	}
	return nil
}

func validateFields(fields []field.Field) error {
	if len(fields) > 64 {
		return fmt.Errorf("too many fields (max 64)")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name()] {
			return fmt.Errorf("duplicate field name: %s", f.Name())
		}
		seen[f.Name()] = true
	}
	return nil
}

// New validates and creates a Model.
func New(name string, opts Options) (*Model, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateFields(opts.Fields); err != nil {
		return nil, err
	}
	if opts.PerPage < 0 {
		return nil, fmt.Errorf("per_page must not be negative")
	}

	m := &Model{
		name:             name,
		table:            opts.Table,
		key:              opts.Key,
		index:            opts.Index,
		searchable:       slices.Clone(opts.Searchable),
		fields:           slices.Clone(opts.Fields),
		softDeleteColumn: opts.SoftDeleteColumn,
		createdAtColumn:  opts.CreatedAtColumn,
		perPage:          opts.PerPage,
		searchableIf:     opts.SearchableIf,
		reindexOn:        slices.Clone(opts.ReindexOn),
	}
	if m.table == "" {
		m.table = name
	}
	if m.key == "" {
		m.key = "id"
	}
	if m.index == "" {
		m.index = m.table
	}
	m.index = opts.Prefix + m.index
	if m.createdAtColumn == "" {
		m.createdAtColumn = DefaultCreatedAtColumn
	}
	if m.perPage == 0 {
		m.perPage = DefaultPerPage
	}
	return m, nil
}

// MustNew is New that panics on error. Intended for tests and static definitions.
func MustNew(name string, opts Options) *Model {
	m, err := New(name, opts)
	if err != nil {
		panic(fmt.Sprintf("model: %v", err))
	}
	return m
}

// Name returns the model type identifier.
func (m *Model) Name() string { return m.name }

// Table returns the backing table name.
func (m *Model) Table() string { return m.table }

// Key returns the key column, also used as the search key name.
func (m *Model) Key() string { return m.key }

// Index returns the prefixed index name.
func (m *Model) Index() string { return m.index }

// Searchable returns the projected columns (empty means all).
func (m *Model) Searchable() []string { return m.searchable }

// Fields returns the index schema fields.
func (m *Model) Fields() []field.Field { return m.fields }

// SearchableIf returns the column values a row needs to be indexed.
func (m *Model) SearchableIf() map[string]any { return maps.Clone(m.searchableIf) }

// SoftDeleteColumn returns the trashed-at column, or "".
func (m *Model) SoftDeleteColumn() string { return m.softDeleteColumn }

// SoftDeletes reports whether the model uses soft deletion.
func (m *Model) SoftDeletes() bool { return m.softDeleteColumn != "" }

// CreatedAtColumn returns the column used by latest/oldest ordering.
func (m *Model) CreatedAtColumn() string { return m.createdAtColumn }

// PerPage returns the default page size.
func (m *Model) PerPage() int { return m.perPage }

// ReindexOn returns the columns whose change triggers reindexing on update.
func (m *Model) ReindexOn() []string { return m.reindexOn }

// FieldByName looks up a schema field by name.
func (m *Model) FieldByName(name string) (field.Field, bool) {
	for _, f := range m.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// ShouldReindex is the selective reindex predicate for updates.
// A model without ReindexOn reindexes on every change.
func (m *Model) ShouldReindex(changed []string) bool {
	if len(m.reindexOn) == 0 {
		return true
	}
	for _, c := range changed {
		if slices.Contains(m.reindexOn, c) {
			return true
		}
	}
	return false
}
