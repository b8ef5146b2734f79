package searchsync

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

const tagKey = "searchsync"

// schemaMeta holds parsed struct tag metadata for a typed model.
type schemaMeta struct {
	typ     reflect.Type
	columns []column

	key        string
	softDelete string
	createdAt  string
	fields     []Field
}

type column struct {
	structIdx int
	name      string
}

// parseSchema reflects on T and extracts searchsync struct tag metadata.
// Tags read `searchsync:"column[,role...]"` with roles key, text, tag,
// numeric, bool, sortable, soft_delete and created_at.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("searchsync: type parameter is an interface")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("searchsync: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t}
	seen := make(map[string]bool)
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		name, roles, _ := strings.Cut(tag, ",")
		if name == "" {
			return nil, fmt.Errorf("searchsync: empty column name on field %s", f.Name)
		}
		if seen[name] {
			return nil, fmt.Errorf("searchsync: duplicate column %q on field %s", name, f.Name)
		}
		seen[name] = true
		meta.columns = append(meta.columns, column{structIdx: i, name: name})
		if err := meta.applyRoles(name, f.Name, roles); err != nil {
			return nil, err
		}
	}

	if meta.key == "" {
		return nil, fmt.Errorf("searchsync: no field with `searchsync:\"...,key\"` tag in %s", t)
	}
	return meta, nil
}

func (m *schemaMeta) applyRoles(name, fieldName, roles string) error {
	var ft FieldType
	sortable := false
	for _, role := range strings.Split(roles, ",") {
		switch role {
		case "":
		case "key":
			if m.key != "" {
				return fmt.Errorf("searchsync: duplicate key tag on field %s", fieldName)
			}
			m.key = name
		case "soft_delete":
			m.softDelete = name
		case "created_at":
			m.createdAt = name
		case "sortable":
			sortable = true
		case string(FieldText), string(FieldTag), string(FieldNumeric), string(FieldBool):
			ft = FieldType(role)
		default:
			return fmt.Errorf("searchsync: unknown role %q on field %s", role, fieldName)
		}
	}
	if ft == "" {
		if sortable {
			return fmt.Errorf("searchsync: sortable field %s needs a type", fieldName)
		}
		return nil
	}
	f, err := NewField(name, ft, sortable)
	if err != nil {
		return fmt.Errorf("searchsync: field %s: %w", fieldName, err)
	}
	m.fields = append(m.fields, f)
	return nil
}

// modelOptions fills the parts of opts the struct tags declare.
func (m *schemaMeta) modelOptions(opts ModelOptions) ModelOptions {
	if opts.Key == "" {
		opts.Key = m.key
	}
	if len(opts.Fields) == 0 {
		opts.Fields = m.fields
	}
	if opts.SoftDeleteColumn == "" {
		opts.SoftDeleteColumn = m.softDelete
	}
	if opts.CreatedAtColumn == "" {
		opts.CreatedAtColumn = m.createdAt
	}
	return opts
}

// toAttrs converts a typed struct to column values. Nil pointers become nil.
func (m *schemaMeta) toAttrs(item any) map[string]any {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	attrs := make(map[string]any, len(m.columns))
	for _, c := range m.columns {
		fv := v.Field(c.structIdx)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				attrs[c.name] = nil
				continue
			}
			fv = fv.Elem()
		}
		attrs[c.name] = fv.Interface()
	}
	return attrs
}

// fromAttrs converts column values back to a typed struct value.
func (m *schemaMeta) fromAttrs(attrs map[string]any) (reflect.Value, error) {
	v := reflect.New(m.typ).Elem()
	for _, c := range m.columns {
		val, ok := attrs[c.name]
		if !ok || val == nil {
			continue
		}
		if err := assign(v.Field(c.structIdx), val); err != nil {
			return reflect.Value{}, fmt.Errorf("searchsync: column %s: %w", c.name, err)
		}
	}
	return v, nil
}

var timeType = reflect.TypeOf(time.Time{})

func assign(dst reflect.Value, val any) error {
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), val); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	src := reflect.ValueOf(val)
	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case dst.Type() == timeType && src.Kind() == reflect.String:
		ts, err := time.Parse(time.RFC3339Nano, src.String())
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(ts))
	case dst.Kind() == reflect.String && src.Kind() == reflect.Slice && src.Type().Elem().Kind() == reflect.Uint8:
		dst.SetString(string(src.Bytes()))
	case dst.Kind() == reflect.String:
		// reflect converts integers to strings as runes.
		dst.SetString(fmt.Sprint(val))
	case dst.Kind() == reflect.Bool && isInteger(src.Kind()):
		dst.SetBool(src.Int() != 0)
	case src.Type().ConvertibleTo(dst.Type()) && src.Kind() != reflect.String:
		dst.Set(src.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", val, dst.Type())
	}
	return nil
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}
