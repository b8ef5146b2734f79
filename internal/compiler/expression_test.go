package compiler

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
)

func TestExpression_Meili(t *testing.T) {
	tests := []struct {
		name    string
		filters []filter.Filter
		want    string
	}{
		{
			name:    "string eq quoted even when numeric",
			filters: []filter.Filter{filter.Eq("a", "1"), filter.In("b", 1, 2)},
			want:    `a="1" AND b IN [1, 2]`,
		},
		{
			name:    "numbers unquoted",
			filters: []filter.Filter{filter.Eq("foo", 1), filter.Eq("bar", 2)},
			want:    `foo=1 AND bar=2`,
		},
		{
			name: "mixed with not in",
			filters: []filter.Filter{
				filter.Eq("foo", "bar"), filter.Eq("bar", "baz"),
				filter.In("qux", 1, 2), filter.In("quux", 1, 2), filter.NotIn("eaea", 3),
			},
			want: `foo="bar" AND bar="baz" AND qux IN [1, 2] AND quux IN [1, 2] AND eaea NOT IN [3]`,
		},
		{
			name:    "empty in kept",
			filters: []filter.Filter{filter.Eq("foo", "bar"), filter.Eq("bar", "baz"), filter.In("qux")},
			want:    `foo="bar" AND bar="baz" AND qux IN []`,
		},
		{
			name:    "bools and quoted strings in sets",
			filters: []filter.Filter{filter.Eq("published", true), filter.In("tag", "go", `a"b`)},
			want:    `published=true AND tag IN ["go", "a\"b"]`,
		},
		{
			name:    "no filters",
			filters: nil,
			want:    ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expression(Meili, tt.filters)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expression() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpression_Typesense(t *testing.T) {
	got, err := Expression(Typesense, []filter.Filter{
		filter.Eq("status", "published"),
		filter.Eq("author", "Jane Doe"),
		filter.In("id", 1, 2),
		filter.NotIn("lang", "de"),
		filter.In("tags"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "status:=published && author:=`Jane Doe` && id:[1,2] && lang:!=[de] && tags:[]"
	if got != want {
		t.Errorf("Expression() = %q, want %q", got, want)
	}
}

func TestExpression_Deterministic(t *testing.T) {
	filters := []filter.Filter{filter.In("b", 2, 1), filter.Eq("a", 1)}
	first, _ := Expression(Meili, filters)
	for range 10 {
		got, _ := Expression(Meili, filters)
		if got != first {
			t.Fatalf("non-deterministic output: %q vs %q", got, first)
		}
	}
	if first != "b IN [2, 1] AND a=1" {
		t.Errorf("order not preserved: %q", first)
	}
}

func TestExpression_InvalidFilter(t *testing.T) {
	_, err := Expression(Meili, []filter.Filter{filter.Eq("meta", map[string]string{})})
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Errorf("error = %v, want ErrInvalidFilter", err)
	}
}
