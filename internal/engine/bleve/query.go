package bleve

import (
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
)

// compile turns a term and filters into one bleve query. An empty term
// matches every document. An empty in-set matches nothing; an empty
// not-in set is dropped.
func compile(term string, filters []filter.Filter) query.Query {
	var base query.Query = bleve.NewMatchAllQuery()
	if term != "" {
		base = bleve.NewMatchQuery(term)
	}

	must := []query.Query{base}
	var mustNot []query.Query
	for _, f := range filters {
		switch f.Op() {
		case filter.OpEq:
			must = append(must, clause(f.Field(), f.Value()))
		case filter.OpIn:
			if len(f.Values()) == 0 {
				return bleve.NewMatchNoneQuery()
			}
			must = append(must, anyOf(f.Field(), f.Values()))
		case filter.OpNotIn:
			for _, v := range f.Values() {
				mustNot = append(mustNot, clause(f.Field(), v))
			}
		}
	}

	if len(must) == 1 && len(mustNot) == 0 {
		return base
	}
	q := bleve.NewBooleanQuery()
	q.AddMust(must...)
	if len(mustNot) > 0 {
		q.AddMustNot(mustNot...)
	}
	return q
}

func anyOf(field string, values []any) query.Query {
	if len(values) == 1 {
		return clause(field, values[0])
	}
	qs := make([]query.Query, 0, len(values))
	for _, v := range values {
		qs = append(qs, clause(field, v))
	}
	return bleve.NewDisjunctionQuery(qs...)
}

// clause matches one scalar: strings as an exact phrase, numbers as a
// closed single-point range, bools as a boolean field.
func clause(field string, v any) query.Query {
	kind, _ := filter.Scalar(v)
	switch kind {
	case filter.KindBool:
		q := bleve.NewBoolFieldQuery(v.(bool))
		q.SetField(field)
		return q
	case filter.KindNumber:
		if n, ok := number(v); ok {
			inclusive := true
			q := bleve.NewNumericRangeInclusiveQuery(&n, &n, &inclusive, &inclusive)
			q.SetField(field)
			return q
		}
	}
	q := bleve.NewMatchPhraseQuery(filter.Format(v))
	q.SetField(field)
	return q
}

func number(v any) (float64, bool) {
	n, err := strconv.ParseFloat(filter.Format(v), 64)
	return n, err == nil
}
