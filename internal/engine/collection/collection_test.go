package collection

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/engine/enginetest"
	"github.com/kailas-cloud/searchsync/internal/repository/record"
)

var users = model.MustNew("users", model.Options{
	SoftDeleteColumn: "deleted_at",
	SearchableIf:     map[string]any{"active": true},
})

func user(id int, name string, createdAt int, trashed bool) *model.Row {
	var deletedAt any
	if trashed {
		deletedAt = "2026-01-01"
	}
	return model.NewRow(users, map[string]any{
		"id": id, "name": name, "created_at": createdAt, "active": true, "deleted_at": deletedAt,
	})
}

func fixture() *enginetest.Store {
	records := make([]domain.Record, 0, 50)
	for i := 1; i <= 50; i++ {
		records = append(records, user(i, "zonda", i, false))
	}
	records = append(records,
		user(51, "taylor", 51, false),
		user(52, "zonda trashed", 52, true),
		model.NewRow(users, map[string]any{"id": 53, "name": "zonda hidden", "active": false, "deleted_at": nil}),
	)
	return enginetest.NewStore(records...)
}

func TestPaginate_TotalBeforeSlicing(t *testing.T) {
	e := New(fixture())
	req := request.For(users, "zonda").Build()

	raw, err := e.Paginate(context.Background(), req, 15, 4)
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if e.TotalCount(raw) != 50 {
		t.Errorf("TotalCount = %d, want 50", e.TotalCount(raw))
	}
	if len(raw.Hits) != 5 {
		t.Errorf("page 4 hits = %d, want 5", len(raw.Hits))
	}
}

func TestSearch_FiltersAndTrashed(t *testing.T) {
	ctx := context.Background()
	e := New(fixture())

	raw, _ := e.Search(ctx, request.For(users, "zonda").WhereIn("id", 1, 52, 53).Build())
	if got := e.MapIDs(raw, "id"); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("default ids = %v, want [1]", got)
	}

	raw, _ = e.Search(ctx, request.For(users, "zonda").WhereIn("id", 1, 52).WithTrashed().Build())
	if got := e.MapIDs(raw, "id"); !reflect.DeepEqual(got, []string{"1", "52"}) {
		t.Errorf("with trashed ids = %v", got)
	}

	raw, _ = e.Search(ctx, request.For(users, "").OnlyTrashed().Build())
	if got := e.MapIDs(raw, "id"); !reflect.DeepEqual(got, []string{"52"}) {
		t.Errorf("only trashed ids = %v", got)
	}
}

func TestSearch_LatestAndEmptyIn(t *testing.T) {
	ctx := context.Background()
	e := New(fixture())

	raw, _ := e.Search(ctx, request.For(users, "").Latest().Take(2).Build())
	if got := e.MapIDs(raw, "id"); !reflect.DeepEqual(got, []string{"51", "50"}) {
		t.Errorf("latest ids = %v, want [51 50]", got)
	}

	raw, _ = e.Search(ctx, request.For(users, "").WhereIn("id").Build())
	if raw.Total != 0 {
		t.Errorf("empty in total = %d, want 0", raw.Total)
	}
}

func TestMap_UsesScannedRecords(t *testing.T) {
	ctx := context.Background()
	store := fixture()
	e := New(store)
	req := request.For(users, "taylor").Build()

	raw, _ := e.Search(ctx, req)
	items, err := e.Map(ctx, req, raw, store)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(items) != 1 || items[0].Record.SearchKey() != "51" {
		t.Errorf("items = %v", items)
	}
	if store.Fetches != 0 {
		t.Errorf("Fetches = %d, want no extra store round trip", store.Fetches)
	}
}

func TestSearch_ScanError(t *testing.T) {
	store := fixture()
	store.Err = errors.New("db down")
	_, err := New(store).Search(context.Background(), request.For(users, "").Build())
	if !errors.Is(err, store.Err) {
		t.Errorf("error = %v, want store error", err)
	}
}

var members = model.MustNew("members", model.Options{})

func memberStore(t *testing.T) *record.SQLite {
	t.Helper()
	cat, err := model.NewCatalog(members)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	s, err := record.OpenSQLite(filepath.Join(t.TempDir(), "members.db"), cat)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if _, err := s.DB().Exec(`CREATE TABLE members (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("schema: %v", err)
	}
	for i := 1; i <= 50; i++ {
		if _, err := s.DB().Exec(`INSERT INTO members (id, name) VALUES (?, ?)`, i, fmt.Sprintf("Laravel %d", i)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return s
}

func TestPaginate_StoreClausesNarrowTotal(t *testing.T) {
	ctx := context.Background()
	e := New(memberStore(t))

	raw, err := e.Paginate(ctx, request.For(members, "Laravel").Build(), 15, 1)
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if e.TotalCount(raw) != 50 {
		t.Errorf("TotalCount = %d, want 50", e.TotalCount(raw))
	}

	req := request.For(members, "Laravel").
		Query(func(q *request.StoreQuery) { q.Where("id < ?", 11) }).
		Build()
	raw, err = e.Paginate(ctx, req, 15, 1)
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if e.TotalCount(raw) != 10 || len(raw.Hits) != 10 {
		t.Errorf("total = %d, hits = %d, want 10 and 10", e.TotalCount(raw), len(raw.Hits))
	}
}

func TestSearch_StoreClausesNeedRowStore(t *testing.T) {
	req := request.For(users, "").
		Query(func(q *request.StoreQuery) { q.Where("id < ?", 11) }).
		Build()
	_, err := New(fixture()).Search(context.Background(), req)
	if !errors.Is(err, domain.ErrNotSupported) {
		t.Errorf("error = %v, want ErrNotSupported", err)
	}
}
