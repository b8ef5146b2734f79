package filter

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

// Op is a filter operator.
type Op string

// Supported operators.
const (
	OpEq    Op = "eq"
	OpIn    Op = "in"
	OpNotIn Op = "not_in"
)

// Filter is a single constraint on an indexed field.
// Values are validated when compiled, not when built, so builder chains stay fluent.
type Filter struct {
	field  string
	op     Op
	value  any
	values []any
}

// Eq matches records whose field equals value.
func Eq(field string, value any) Filter {
	return Filter{field: field, op: OpEq, value: value}
}

// In matches records whose field equals one of values. An empty set matches nothing.
func In(field string, values ...any) Filter {
	return Filter{field: field, op: OpIn, values: normalize(values)}
}

// NotIn excludes records whose field equals one of values.
func NotIn(field string, values ...any) Filter {
	return Filter{field: field, op: OpNotIn, values: normalize(values)}
}

func normalize(values []any) []any {
	if values == nil {
		return []any{}
	}
	return values
}

// Field returns the field name.
func (f Filter) Field() string { return f.field }

// Op returns the operator.
func (f Filter) Op() Op { return f.op }

// Value returns the eq operand.
func (f Filter) Value() any { return f.value }

// Values returns the in/not_in operands.
func (f Filter) Values() []any { return f.values }

// Validate checks the field name and that every operand is a scalar.
func (f Filter) Validate() error {
	if f.field == "" {
		return domain.NewFilterError(f.field, "field name is required")
	}
	switch f.op {
	case OpEq:
		return checkScalar(f.field, f.value)
	case OpIn, OpNotIn:
		for _, v := range f.values {
			if err := checkScalar(f.field, v); err != nil {
				return err
			}
		}
		return nil
	default:
		return domain.NewFilterError(f.field, fmt.Sprintf("unknown operator %q", f.op))
	}
}

func checkScalar(field string, v any) error {
	if _, ok := Scalar(v); !ok {
		return domain.NewFilterError(field, fmt.Sprintf("non-scalar value of type %T", v))
	}
	return nil
}

// Kind classifies a scalar operand.
type Kind int

// Scalar kinds.
const (
	KindString Kind = iota
	KindNumber
	KindBool
)

// Scalar classifies v. Only strings, bools, integers, floats and json.Number are scalars.
func Scalar(v any) (Kind, bool) {
	switch v.(type) {
	case string:
		return KindString, true
	case bool:
		return KindBool, true
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return KindNumber, true
	default:
		return 0, false
	}
}

// Format renders a scalar without quoting.
func Format(v any) string {
	if b, ok := v.(bool); ok {
		if b {
			return "true"
		}
		return "false"
	}
	if s, ok := domain.KeyString(v); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Parse types a textual operand. Integers and floats only convert when they
// round-trip, so "007" stays a string.
func Parse(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil && strconv.FormatInt(n, 10) == v {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == v {
		return f
	}
	return v
}

// Validate checks every filter in order and returns the first error.
func Validate(filters []Filter) error {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}
