package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/model/field"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
	"github.com/kailas-cloud/searchsync/internal/engine/enginetest"
	"github.com/kailas-cloud/searchsync/internal/repository/record"
)

var users = model.MustNew("users", model.Options{
	Searchable:       []string{"id", "name", "email"},
	SoftDeleteColumn: "deleted_at",
})

func newEngine(t *testing.T) *Engine {
	t.Helper()
	cat, err := model.NewCatalog(users)
	require.NoError(t, err)
	s, err := record.OpenSQLite(filepath.Join(t.TempDir(), "users.db"), cat)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.DB().Exec(`
		CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT, deleted_at TEXT);
		INSERT INTO users (id, name, email, deleted_at) VALUES
			(1, 'Taylor Otwell', 'taylor@laravel.com', NULL),
			(2, 'Abigail Otwell', 'abigail@laravel.com', NULL),
			(3, 'Dummy', 'dummy@example.com', '2026-01-01');
	`)
	require.NoError(t, err)
	return New(s, cat)
}

func names(t *testing.T, raw *result.Raw) []string {
	t.Helper()
	out := make([]string, 0, len(raw.Hits))
	for _, h := range raw.Hits {
		out = append(out, h["name"].(string))
	}
	return out
}

func TestSearch_TermAndFilters(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *request.Request
		want []string
	}{
		{"empty term", request.For(users, "").Build(), []string{"Taylor Otwell", "Abigail Otwell"}},
		{"term and eq", request.For(users, "Taylor").Where("email", "taylor@laravel.com").Build(), []string{"Taylor Otwell"}},
		{"term and other eq", request.For(users, "Taylor").Where("email", "abigail@laravel.com").Build(), []string{}},
		{"case insensitive", request.For(users, "otwell").Build(), []string{"Taylor Otwell", "Abigail Otwell"}},
		{"email column", request.For(users, "laravel").Build(), []string{"Taylor Otwell", "Abigail Otwell"}},
		{"no match", request.For(users, "foo").Build(), []string{}},
		{"in", request.For(users, "").WhereIn("id", 2, 9).Build(), []string{"Abigail Otwell"}},
		{"empty in", request.For(users, "").WhereIn("id").Build(), []string{}},
		{"not in", request.For(users, "").WhereNotIn("id", 2).Build(), []string{"Taylor Otwell"}},
		{"empty not in", request.For(users, "").WhereNotIn("id").Build(), []string{"Taylor Otwell", "Abigail Otwell"}},
		{"only trashed", request.For(users, "").OnlyTrashed().Build(), []string{"Dummy"}},
		{"order and take", request.For(users, "laravel").OrderBy("name", request.Asc).Take(1).Build(), []string{"Abigail Otwell"}},
		{"order desc", request.For(users, "laravel").OrderByDesc("name").Take(1).Build(), []string{"Taylor Otwell"}},
		{
			"store clause",
			request.For(users, "Taylor").
				Query(func(q *request.StoreQuery) { q.Where(`"email" LIKE ?`, "taylor@laravel.com") }).
				Build(),
			[]string{"Taylor Otwell"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := e.Search(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(t, raw))
			assert.Equal(t, len(tt.want), e.TotalCount(raw))
		})
	}
}

func TestPaginate_CountsAllMatches(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	dummy := func(q *request.StoreQuery) { q.Where(`"name" <> ?`, "Dummy") }

	raw, err := e.Paginate(ctx, request.For(users, "laravel").Query(dummy).OrderBy("name", request.Asc).Build(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Abigail Otwell"}, names(t, raw))
	assert.Equal(t, 2, e.TotalCount(raw))

	raw, err = e.Paginate(ctx, request.For(users, "laravel").Query(dummy).OrderBy("name", request.Asc).Build(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Taylor Otwell"}, names(t, raw))

	raw, err = e.Paginate(ctx, request.For(users, "laravel").OrderByDesc("name").Build(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Taylor Otwell"}, names(t, raw))

	_, err = e.Paginate(ctx, request.For(users, "").Build(), 0, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidPage)
}

func TestMap_UsesSelectedRecords(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	req := request.For(users, "Abigail").Build()
	store := enginetest.NewStore()

	raw, err := e.Search(ctx, req)
	require.NoError(t, err)
	items, err := e.Map(ctx, req, raw, store)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2", items[0].Record.SearchKey())
	assert.Equal(t, []string{"2"}, e.MapIDs(raw, "id"))
	assert.Zero(t, store.Fetches)

	var lazy []string
	for it, err := range e.LazyMap(ctx, req, raw, store) {
		require.NoError(t, err)
		lazy = append(lazy, it.Record.SearchKey())
	}
	assert.Equal(t, []string{"2"}, lazy)
}

func TestSearch_InvalidFilterFailsFast(t *testing.T) {
	e := newEngine(t)
	_, err := e.Search(context.Background(), request.For(users, "").Where("email", []string{"x"}).Build())
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)
}

func TestSearch_StoreErrorIsWrapped(t *testing.T) {
	e := newEngine(t)
	bad := request.For(users, "").Query(func(q *request.StoreQuery) { q.Where(`"missing" = ?`, 1) }).Build()

	_, err := e.Search(context.Background(), bad)
	var ee *engine.Error
	require.True(t, errors.As(err, &ee), "err = %v", err)
	assert.Equal(t, engine.OpSearch, ee.Op)
}

func TestTermColumns(t *testing.T) {
	title, err := field.New("title", field.Text, false)
	require.NoError(t, err)
	status, err := field.New("status", field.Tag, false)
	require.NoError(t, err)

	m := model.MustNew("posts", model.Options{Fields: []field.Field{title, status}})
	assert.Equal(t, []string{"id", "title"}, termColumns(m))
	assert.Equal(t, []string{"id", "name", "email"}, termColumns(users))
}

func TestRawHookGetsStore(t *testing.T) {
	e := newEngine(t)
	var got any
	req := request.For(users, "x").Raw(func(_ context.Context, backend any, _ string, _ map[string]any) (any, error) {
		got = backend
		return &result.Raw{Total: 7}, nil
	}).Build()

	raw, err := e.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 7, raw.Total)
	assert.Same(t, e.Native(), got)
}
