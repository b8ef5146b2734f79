package engine

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
)

// Matches evaluates filters against a document body in process.
// Values compare by their normalized string form, so 1 matches "1".
func Matches(doc map[string]any, filters []filter.Filter) bool {
	for _, f := range filters {
		v, ok := doc[f.Field()]
		got := ""
		if ok && v != nil {
			got = filter.Format(v)
		}
		switch f.Op() {
		case filter.OpEq:
			if !ok || got != filter.Format(f.Value()) {
				return false
			}
		case filter.OpIn:
			if !ok || !containsFormatted(f.Values(), got) {
				return false
			}
		case filter.OpNotIn:
			if ok && containsFormatted(f.Values(), got) {
				return false
			}
		}
	}
	return true
}

func containsFormatted(values []any, s string) bool {
	for _, v := range values {
		if filter.Format(v) == s {
			return true
		}
	}
	return false
}

// MatchesTerm reports whether any string-rendered field contains term,
// case-insensitively. An empty term matches everything.
func MatchesTerm(doc map[string]any, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, v := range doc {
		if v == nil {
			continue
		}
		if _, ok := filter.Scalar(v); !ok {
			continue
		}
		if strings.Contains(strings.ToLower(filter.Format(v)), term) {
			return true
		}
	}
	return false
}

// SortDocs orders items by the request's orders, falling back to tiebreak.
// It is stable, so equal keys keep their input order.
func SortDocs[T any](items []T, orders []request.Order, body func(T) map[string]any) {
	if len(orders) == 0 {
		return
	}
	slices.SortStableFunc(items, func(a, b T) int {
		da, db := body(a), body(b)
		for _, o := range orders {
			c := compareValues(da[o.Field], db[o.Field])
			if o.Direction == request.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareValues(a, b any) int {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return cmp.Compare(fa, fb)
	}
	sa, sb := "", ""
	if a != nil {
		sa = filter.Format(a)
	}
	if b != nil {
		sb = filter.Format(b)
	}
	return strings.Compare(sa, sb)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Window slices items for a page or a limit. perPage <= 0 means no paging.
func Window[T any](items []T, req *request.Request, perPage, page int) []T {
	if perPage > 0 {
		start := (page - 1) * perPage
		if start >= len(items) || start < 0 {
			return []T{}
		}
		end := min(start+perPage, len(items))
		return items[start:end]
	}
	if n, ok := req.Limit(); ok && n < len(items) {
		return items[:n]
	}
	return items
}
