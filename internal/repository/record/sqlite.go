package record

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	_ "modernc.org/sqlite" // cgo-free driver

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

// SQLite reads rows through database/sql and modernc.org/sqlite.
type SQLite struct {
	db     *sql.DB
	models catalog
}

// OpenSQLite opens the database at dsn.
func OpenSQLite(dsn string, models catalog) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	for _, p := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys = ON"} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma failed: %w", err)
		}
	}
	return NewSQLite(db, models), nil
}

// NewSQLite wraps an open database.
func NewSQLite(db *sql.DB, models catalog) *SQLite {
	return &SQLite{db: db, models: models}
}

// DB returns the underlying handle.
func (s *SQLite) DB() *sql.DB { return s.db }

// Ping checks connectivity.
func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// FetchByKeys loads the rows whose key is in keys. Missing keys are skipped.
func (s *SQLite) FetchByKeys(ctx context.Context, modelName string, keys []string) ([]domain.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([]domain.Record, 0, len(keys))
	for r, err := range s.CursorByKeys(ctx, modelName, keys) {
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// CursorByKeys streams the rows whose key is in keys.
func (s *SQLite) CursorByKeys(ctx context.Context, modelName string, keys []string) iter.Seq2[domain.Record, error] {
	if len(keys) == 0 {
		return func(func(domain.Record, error) bool) {}
	}
	return s.SelectRows(ctx, modelName, engine.RowQuery{Mode: request.WithTrashed, Keys: keys})
}

// Scan streams every row of the model visible in mode.
func (s *SQLite) Scan(ctx context.Context, modelName string, mode request.SoftDeleteMode) iter.Seq2[domain.Record, error] {
	return s.SelectRows(ctx, modelName, engine.RowQuery{Mode: mode})
}

// SelectRows streams the rows matching q.
func (s *SQLite) SelectRows(ctx context.Context, modelName string, q engine.RowQuery) iter.Seq2[domain.Record, error] {
	return s.query(ctx, modelName, func(m *model.Model) (string, []any) {
		return selectSQL(sqliteDialect, m, q, false)
	})
}

// CountRows counts the rows matching q, ignoring its order and paging.
func (s *SQLite) CountRows(ctx context.Context, modelName string, q engine.RowQuery) (int, error) {
	m, err := s.models.Get(modelName)
	if err != nil {
		return 0, err
	}
	stmt, args := selectSQL(sqliteDialect, m, q, true)
	var n int
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", m.Table(), err)
	}
	return n, nil
}

func (s *SQLite) query(
	ctx context.Context, modelName string, build func(*model.Model) (string, []any),
) iter.Seq2[domain.Record, error] {
	return func(yield func(domain.Record, error) bool) {
		m, err := s.models.Get(modelName)
		if err != nil {
			yield(nil, err)
			return
		}
		q, args := build(m)
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			yield(nil, fmt.Errorf("query %s: %w", m.Table(), err))
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			yield(nil, fmt.Errorf("columns %s: %w", m.Table(), err))
			return
		}
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				yield(nil, fmt.Errorf("read %s row: %w", m.Table(), err))
				return
			}
			row, err := bindRow(m, cols, vals)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("query %s: %w", m.Table(), err))
		}
	}
}
