package compiler

import (
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
)

// AlwaysFalse is the clause an empty in-set compiles to.
const AlwaysFalse = "0=1"

// Clauses compiles filters to a flat conjunction of clause groups.
// Each element is a string clause or a []string disjunction.
// Not-in filters expand to one field!=value clause per value.
func Clauses(filters []filter.Filter) ([]any, error) {
	if err := filter.Validate(filters); err != nil {
		return nil, err
	}
	out := make([]any, 0, len(filters))
	for _, f := range filters {
		switch f.Op() {
		case filter.OpEq:
			out = append(out, f.Field()+"="+filter.Format(f.Value()))
		case filter.OpIn:
			if len(f.Values()) == 0 {
				out = append(out, AlwaysFalse)
				continue
			}
			group := make([]string, 0, len(f.Values()))
			for _, v := range f.Values() {
				group = append(group, f.Field()+"="+filter.Format(v))
			}
			out = append(out, group)
		case filter.OpNotIn:
			for _, v := range f.Values() {
				out = append(out, f.Field()+"!="+filter.Format(v))
			}
		}
	}
	return out, nil
}
