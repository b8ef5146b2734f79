package filter

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

func TestValidate_Scalars(t *testing.T) {
	tests := []struct {
		name string
		f    Filter
	}{
		{"string eq", Eq("status", "draft")},
		{"int eq", Eq("id", 1)},
		{"float eq", Eq("price", 9.5)},
		{"bool eq", Eq("published", true)},
		{"json number", Eq("id", json.Number("12"))},
		{"in mixed", In("id", 1, "2", int64(3))},
		{"empty in", In("id")},
		{"not in", NotIn("id", 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.f.Validate(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_NonScalar(t *testing.T) {
	tests := []struct {
		name string
		f    Filter
	}{
		{"map eq", Eq("meta", map[string]any{"a": 1})},
		{"slice eq", Eq("ids", []int{1, 2})},
		{"nil eq", Eq("id", nil)},
		{"struct in", In("id", 1, struct{}{})},
		{"empty field", Eq("", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidFilter) {
				t.Errorf("error = %v, want ErrInvalidFilter", err)
			}
		})
	}
}

func TestValidate_ReportsField(t *testing.T) {
	err := Validate([]Filter{Eq("ok", 1), Eq("bad", []string{"x"})})
	var fe *domain.FilterError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FilterError", err)
	}
	if fe.Field != "bad" {
		t.Errorf("Field = %q, want bad", fe.Field)
	}
}

func TestIn_NilValuesBecomeEmptySet(t *testing.T) {
	f := In("id")
	if f.Values() == nil {
		t.Fatal("Values() should be an empty, non-nil set")
	}
	if f.Op() != OpIn {
		t.Errorf("Op() = %q, want in", f.Op())
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"bar", "bar"},
		{1, "1"},
		{float64(2), "2"},
		{1.5, "1.5"},
		{true, "true"},
		{false, "false"},
		{json.Number("3"), "3"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"false", false},
		{"42", int64(42)},
		{"-3", int64(-3)},
		{"007", "007"},
		{"1.5", 1.5},
		{"1e3", "1e3"},
		{"draft", "draft"},
	}
	for _, tt := range tests {
		if got := Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
