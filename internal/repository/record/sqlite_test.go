package record

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

func newSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "records.db"), newCatalog(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.DB().Exec(`
		CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT, body BLOB, deleted_at TEXT);
		INSERT INTO posts (id, title, body, deleted_at) VALUES
			(1, 'one', x'6869', NULL),
			(2, 'two', NULL, '2026-01-01'),
			(3, 'three', NULL, NULL);
	`)
	require.NoError(t, err)
	return s
}

func TestSQLite_FetchByKeys(t *testing.T) {
	s := newSQLite(t)

	recs, err := s.FetchByKeys(context.Background(), "posts", []string{"3", "1", "9"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "3"}, domain.Keys(recs))

	for _, r := range recs {
		if r.SearchKey() == "1" {
			assert.Equal(t, "hi", r.SearchableProjection()["body"])
		}
	}
}

func TestSQLite_ScanModes(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()

	collect := func(mode request.SoftDeleteMode) []string {
		var keys []string
		for r, err := range s.Scan(ctx, "posts", mode) {
			require.NoError(t, err)
			keys = append(keys, r.SearchKey())
		}
		return keys
	}

	assert.Equal(t, []string{"1", "3"}, collect(request.SoftDeleteNone))
	assert.Equal(t, []string{"2"}, collect(request.OnlyTrashed))
	assert.Equal(t, []string{"1", "2", "3"}, collect(request.WithTrashed))
}

func TestSQLite_TrashedRow(t *testing.T) {
	s := newSQLite(t)

	recs, err := s.FetchByKeys(context.Background(), "posts", []string{"2"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, domain.IsTrashed(recs[0]))
}

func TestSQLite_UnknownModel(t *testing.T) {
	s := newSQLite(t)
	_, err := s.FetchByKeys(context.Background(), "users", []string{"1"})
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestSQLite_SelectRowsAndCount(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()

	q := engine.RowQuery{
		Mode:        request.WithTrashed,
		Term:        "T",
		TermColumns: []string{"title"},
		Where:       []request.Clause{{SQL: `"id" > ?`, Args: []any{1}}},
		Orders:      []request.Order{{Field: "title", Direction: request.Desc}},
	}
	var keys []string
	for r, err := range s.SelectRows(ctx, "posts", q) {
		require.NoError(t, err)
		keys = append(keys, r.SearchKey())
	}
	assert.Equal(t, []string{"2", "3"}, keys)

	n, err := s.CountRows(ctx, "posts", q)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	q.Mode, q.Limit = request.SoftDeleteNone, 1
	n, err = s.CountRows(ctx, "posts", q)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
