// Package record reads model rows from the relational store. It implements
// the fetcher, cursor and scanner interfaces the engines consume.
package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

// catalog is the consumer interface for model lookup (ISP).
type catalog interface {
	Get(name string) (*model.Model, error)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

type dialect int

const (
	sqliteDialect dialect = iota
	postgresDialect
)

// text renders col as text so keys and LIKE work on any column type.
func (d dialect) text(col string) string {
	if d == postgresDialect {
		return quoteIdent(col) + "::text"
	}
	return "CAST(" + quoteIdent(col) + " AS TEXT)"
}

func (d dialect) like() string {
	if d == postgresDialect {
		return "ILIKE"
	}
	return "LIKE"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// selectSQL renders q for m. With count set it selects COUNT(*) and drops
// ordering and paging.
func selectSQL(d dialect, m *model.Model, q engine.RowQuery, count bool) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Keys != nil {
		if d == postgresDialect {
			conds = append(conds, d.text(m.Key())+" = ANY(?)")
			args = append(args, q.Keys)
		} else {
			conds = append(conds, d.text(m.Key())+" IN ("+strings.TrimSuffix(strings.Repeat("?,", len(q.Keys)), ",")+")")
			for _, k := range q.Keys {
				args = append(args, k)
			}
		}
	}
	if m.SoftDeletes() {
		switch q.Mode {
		case request.SoftDeleteNone:
			conds = append(conds, quoteIdent(m.SoftDeleteColumn())+" IS NULL")
		case request.OnlyTrashed:
			conds = append(conds, quoteIdent(m.SoftDeleteColumn())+" IS NOT NULL")
		case request.WithTrashed:
		}
	}
	for _, c := range q.Where {
		conds = append(conds, "("+c.SQL+")")
		args = append(args, c.Args...)
	}
	if q.Term != "" && len(q.TermColumns) > 0 {
		pattern := "%" + likeEscaper.Replace(q.Term) + "%"
		ors := make([]string, len(q.TermColumns))
		for i, col := range q.TermColumns {
			ors[i] = d.text(col) + " " + d.like() + ` ? ESCAPE '\'`
			args = append(args, pattern)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	var sb strings.Builder
	if count {
		sb.WriteString("SELECT COUNT(*) FROM ")
	} else {
		sb.WriteString("SELECT * FROM ")
	}
	sb.WriteString(quoteIdent(m.Table()))
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	if !count {
		writeOrder(&sb, m, q)
		if q.Limit > 0 {
			fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
		}
		if q.Offset > 0 {
			fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
		}
	}

	stmt := sb.String()
	if d == postgresDialect {
		stmt = rebind(stmt)
	}
	return stmt, args
}

// writeOrder sorts by the requested columns. Scans without keys fall back
// to key order so pages are stable.
func writeOrder(sb *strings.Builder, m *model.Model, q engine.RowQuery) {
	if len(q.Orders) == 0 {
		if q.Keys == nil {
			sb.WriteString(" ORDER BY " + quoteIdent(m.Key()))
		}
		return
	}
	parts := make([]string, len(q.Orders))
	for i, o := range q.Orders {
		dir := "ASC"
		if o.Direction == request.Desc {
			dir = "DESC"
		}
		parts[i] = quoteIdent(o.Field) + " " + dir
	}
	sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))
}

// rebind turns ? placeholders into $1..$n. Quoted literals are left alone.
func rebind(stmt string) string {
	var (
		sb     strings.Builder
		n      int
		quoted bool
	)
	sb.Grow(len(stmt) + 8)
	for _, r := range stmt {
		switch {
		case r == '\'':
			quoted = !quoted
			sb.WriteRune(r)
		case r == '?' && !quoted:
			n++
			fmt.Fprintf(&sb, "$%d", n)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// bindRow pairs column names with values and binds them to m.
func bindRow(m *model.Model, cols []string, vals []any) (*model.Row, error) {
	if len(cols) != len(vals) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(vals), len(cols))
	}
	attrs := make(map[string]any, len(cols))
	for i, c := range cols {
		attrs[c] = normalize(vals[i])
	}
	return model.NewRow(m, attrs), nil
}

// normalize maps driver values to the scalar forms engines index.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case [16]byte:
		return uuid.UUID(x).String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
