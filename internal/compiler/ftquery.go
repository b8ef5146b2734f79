package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
)

// ErrUnsatisfiable reports a query that can match nothing, such as an empty in-set.
// Callers short-circuit to an empty result instead of querying the backend.
var ErrUnsatisfiable = errors.New("query can match nothing")

// FTQuery compiles a term and filters into an FT.SEARCH query string.
// Strings and bools become tag clauses, numbers become closed ranges.
func FTQuery(term string, filters []filter.Filter) (string, error) {
	if err := filter.Validate(filters); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(filters)+1)
	for _, f := range filters {
		switch f.Op() {
		case filter.OpEq:
			parts = append(parts, ftClause(f.Field(), []any{f.Value()}))
		case filter.OpIn:
			if len(f.Values()) == 0 {
				return "", fmt.Errorf("%w: empty in-set on %q", ErrUnsatisfiable, f.Field())
			}
			parts = append(parts, ftClause(f.Field(), f.Values()))
		case filter.OpNotIn:
			if len(f.Values()) == 0 {
				continue
			}
			parts = append(parts, "-"+ftClause(f.Field(), f.Values()))
		}
	}

	if term = strings.TrimSpace(term); term != "" {
		parts = append(parts, escapeQuery(term))
	}
	if len(parts) == 0 {
		return "*", nil
	}
	return strings.Join(parts, " "), nil
}

// ftClause renders values of one field. Tags share one {a | b} group,
// numbers become a disjunction of point ranges.
func ftClause(field string, values []any) string {
	var tags, nums []string
	for _, v := range values {
		if kind, _ := filter.Scalar(v); kind == filter.KindNumber {
			n := filter.Format(v)
			nums = append(nums, fmt.Sprintf("@%s:[%s %s]", field, n, n))
			continue
		}
		tags = append(tags, tagEscaper.Replace(filter.Format(v)))
	}

	var clauses []string
	if len(tags) > 0 {
		clauses = append(clauses, fmt.Sprintf("@%s:{%s}", field, strings.Join(tags, " | ")))
	}
	clauses = append(clauses, nums...)
	if len(clauses) == 1 {
		return clauses[0]
	}
	return "(" + strings.Join(clauses, " | ") + ")"
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)
