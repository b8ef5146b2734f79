package compiler

import (
	"strings"

	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
)

// Dialect renders the parts of a boolean filter expression.
type Dialect struct {
	// Conjunction joins top-level clauses.
	Conjunction string
	Eq          func(field, value string) string
	In          func(field string, values []string) string
	NotIn       func(field string, values []string) string
	// Quote renders a string operand.
	Quote func(s string) string
}

// Meili is the Meilisearch filter dialect: field="value" AND field IN [1, 2].
var Meili = Dialect{
	Conjunction: " AND ",
	Eq:          func(f, v string) string { return f + "=" + v },
	In:          func(f string, vs []string) string { return f + " IN [" + strings.Join(vs, ", ") + "]" },
	NotIn:       func(f string, vs []string) string { return f + " NOT IN [" + strings.Join(vs, ", ") + "]" },
	Quote:       meiliQuote,
}

// Typesense is the Typesense filter_by dialect: field:=value && field:[1,2].
var Typesense = Dialect{
	Conjunction: " && ",
	Eq:          func(f, v string) string { return f + ":=" + v },
	In:          func(f string, vs []string) string { return f + ":[" + strings.Join(vs, ",") + "]" },
	NotIn:       func(f string, vs []string) string { return f + ":!=[" + strings.Join(vs, ",") + "]" },
	Quote:       typesenseQuote,
}

var meiliEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func meiliQuote(s string) string { return `"` + meiliEscaper.Replace(s) + `"` }

// typesenseQuote wraps strings that contain filter syntax in backticks.
func typesenseQuote(s string) string {
	if s == "" || strings.ContainsAny(s, " ,:&|()[]<>=!`") {
		return "`" + strings.ReplaceAll(s, "`", "") + "`"
	}
	return s
}

// Expression compiles filters to a single boolean expression string.
// An empty in-set is emitted, never dropped, so it still matches nothing.
func Expression(d Dialect, filters []filter.Filter) (string, error) {
	if err := filter.Validate(filters); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		switch f.Op() {
		case filter.OpEq:
			parts = append(parts, d.Eq(f.Field(), operand(d, f.Value())))
		case filter.OpIn:
			parts = append(parts, d.In(f.Field(), operands(d, f.Values())))
		case filter.OpNotIn:
			parts = append(parts, d.NotIn(f.Field(), operands(d, f.Values())))
		}
	}
	return strings.Join(parts, d.Conjunction), nil
}

func operand(d Dialect, v any) string {
	kind, _ := filter.Scalar(v)
	if kind == filter.KindString {
		return d.Quote(v.(string))
	}
	return filter.Format(v)
}

func operands(d Dialect, vs []any) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, operand(d, v))
	}
	return out
}
