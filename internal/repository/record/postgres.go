package record

import (
	"context"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

// DB is the part of a pgx pool the store uses. *pgxpool.Pool satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Postgres reads rows through pgx.
type Postgres struct {
	db     DB
	models catalog
}

// NewPostgres creates a Postgres record store.
func NewPostgres(db DB, models catalog) *Postgres {
	return &Postgres{db: db, models: models}
}

// Ping checks connectivity.
func (s *Postgres) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

// FetchByKeys loads the rows whose key is in keys. Missing keys are skipped.
func (s *Postgres) FetchByKeys(ctx context.Context, modelName string, keys []string) ([]domain.Record, error) {
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
func (s *Postgres) CursorByKeys(ctx context.Context, modelName string, keys []string) iter.Seq2[domain.Record, error] {
	if len(keys) == 0 {
		return func(func(domain.Record, error) bool) {}
	}
	return s.SelectRows(ctx, modelName, engine.RowQuery{Mode: request.WithTrashed, Keys: keys})
}

// Scan streams every row of the model visible in mode.
func (s *Postgres) Scan(ctx context.Context, modelName string, mode request.SoftDeleteMode) iter.Seq2[domain.Record, error] {
	return s.SelectRows(ctx, modelName, engine.RowQuery{Mode: mode})
}

// SelectRows streams the rows matching q.
func (s *Postgres) SelectRows(ctx context.Context, modelName string, q engine.RowQuery) iter.Seq2[domain.Record, error] {
	return s.query(ctx, modelName, func(m *model.Model) (string, []any) {
		return selectSQL(postgresDialect, m, q, false)
	})
}

// CountRows counts the rows matching q, ignoring its order and paging.
func (s *Postgres) CountRows(ctx context.Context, modelName string, q engine.RowQuery) (int, error) {
	m, err := s.models.Get(modelName)
	if err != nil {
		return 0, err
	}
	sql, args := selectSQL(postgresDialect, m, q, true)
	var n int64
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", m.Table(), err)
	}
	return int(n), nil
}

func (s *Postgres) query(
	ctx context.Context, modelName string, build func(*model.Model) (string, []any),
) iter.Seq2[domain.Record, error] {
	return func(yield func(domain.Record, error) bool) {
		m, err := s.models.Get(modelName)
		if err != nil {
			yield(nil, err)
			return
		}
		sql, args := build(m)
		rows, err := s.db.Query(ctx, sql, args...)
		if err != nil {
			yield(nil, fmt.Errorf("query %s: %w", m.Table(), err))
			return
		}
		defer rows.Close()

		fds := rows.FieldDescriptions()
		cols := make([]string, len(fds))
		for i, fd := range fds {
			cols[i] = fd.Name
		}
		for rows.Next() {
			vals, err := rows.Values()
			if err != nil {
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
