package field

import (
	"strings"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	tests := []struct {
		name string
		ft   Type
	}{
		{"title", Text},
		{"status", Tag},
		{"priority", Numeric},
		{"published", Bool},
		{strings.Repeat("x", 64), Numeric},
	}

	for _, tt := range tests {
		f, err := New(tt.name, tt.ft, false)
		if err != nil {
			t.Errorf("New(%q, %q) unexpected error: %v", tt.name, tt.ft, err)
			continue
		}
		if f.Name() != tt.name {
			t.Errorf("Name() = %q, want %q", f.Name(), tt.name)
		}
		if f.FieldType() != tt.ft {
			t.Errorf("FieldType() = %q, want %q", f.FieldType(), tt.ft)
		}
	}
}

func TestNew_EmptyName(t *testing.T) {
	_, err := New("", Tag, false)
	if err == nil {
		t.Fatal("expected error for empty name")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want 'required'", err)
	}
}

func TestNew_NameTooLong(t *testing.T) {
	_, err := New(strings.Repeat("x", 65), Tag, false)
	if err == nil {
		t.Fatal("expected error for name too long")
	}
}

func TestNew_InvalidType(t *testing.T) {
	_, err := New("field", Type("vector"), false)
	if err == nil {
		t.Fatal("expected error for invalid type")
	}
}

func TestNew_SortableOnlyForOrderedTypes(t *testing.T) {
	num, _ := New("price", Numeric, true)
	if !num.Sortable() {
		t.Error("numeric field should be sortable")
	}
	txt, _ := New("body", Text, true)
	if txt.Sortable() {
		t.Error("text field must not be sortable")
	}
}
