package field

import "fmt"

// Type is the indexing type of a field.
type Type string

// Field type constants.
const (
	// Text is a full-text searchable field.
	Text Type = "text"
	// Tag is an exact-match field.
	Tag     Type = "tag"
	Numeric Type = "numeric"
	Bool    Type = "bool"
)

// IsValid reports whether the field type is supported.
func (t Type) IsValid() bool {
	switch t {
	case Text, Tag, Numeric, Bool:
		return true
	}
	return false
}

// Sortable reports whether backends can order by a field of this type.
func (t Type) Sortable() bool { return t == Numeric || t == Tag }

// Field is an immutable value object describing a field in a model's index schema.
type Field struct {
	name      string
	fieldType Type
	sortable  bool
}

// New validates and creates a Field.
// Name must be non-empty and at most 64 chars. Sortable is only honoured for numeric and tag fields.
func New(name string, ft Type, sortable bool) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	return Field{name: name, fieldType: ft, sortable: sortable && ft.Sortable()}, nil
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's indexing type.
func (f Field) FieldType() Type { return f.fieldType }

// Sortable reports whether the field is declared sortable.
func (f Field) Sortable() bool { return f.sortable }
