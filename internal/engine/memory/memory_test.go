package memory

import (
	"context"
	"reflect"
	"testing"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/snapshot"
	"github.com/kailas-cloud/searchsync/internal/engine"
	"github.com/kailas-cloud/searchsync/internal/engine/enginetest"
)

var posts = model.MustNew("posts", model.Options{SoftDeleteColumn: "deleted_at"})

func post(id int, title string) *model.Row {
	return model.NewRow(posts, map[string]any{"id": id, "title": title, "deleted_at": nil})
}

func TestUpdate_IdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	e := New(engine.Options{SoftDelete: false})
	records := []domain.Record{post(1, "first"), post(2, "second")}

	if err := e.Update(ctx, records); err != nil {
		t.Fatalf("first update: %v", err)
	}
	once := e.Documents("posts")

	if err := e.Update(ctx, records); err != nil {
		t.Fatalf("second update: %v", err)
	}
	twice := e.Documents("posts")

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("state after two upserts differs:\n once=%v\ntwice=%v", once, twice)
	}
	if e.Batches("posts") != 2 {
		t.Errorf("Batches = %d, want one batch per call", e.Batches("posts"))
	}
}

func TestUpdate_EmptyInputNoop(t *testing.T) {
	e := New(engine.Options{SoftDelete: false})
	if err := e.Update(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Delete(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Batches("posts") != 0 {
		t.Error("empty update must not reach the index")
	}
}

func TestDelete_SnapshotsAfterRowGone(t *testing.T) {
	ctx := context.Background()
	e := New(engine.Options{SoftDelete: false})
	p := post(1, "gone")
	_ = e.Update(ctx, []domain.Record{p, post(2, "kept")})

	snaps := snapshot.Identities([]snapshot.Removable{snapshot.Of(p)})
	if err := e.Delete(ctx, snaps); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// second delete of the same snapshot is harmless
	if err := e.Delete(ctx, snaps); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	docs := e.Documents("posts")
	if len(docs) != 1 || docs[0].Key != "2" {
		t.Errorf("documents = %v", docs)
	}
}

func TestPaginate_TotalFromBackend(t *testing.T) {
	ctx := context.Background()
	e := New(engine.Options{SoftDelete: false})
	store := enginetest.NewStore(post(1, "zonda a"), post(2, "zonda b"))
	_ = e.Update(ctx, []domain.Record{post(1, "zonda a"), post(2, "zonda b")})

	req := request.For(posts, "zonda").Build()
	raw, err := e.Paginate(ctx, req, 1, 2)
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	items, err := e.Map(ctx, req, raw, store)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(items) != 1 || items[0].Record.SearchKey() != "2" {
		t.Errorf("items = %v", items)
	}
	if e.TotalCount(raw) != 2 {
		t.Errorf("TotalCount = %d, want 2", e.TotalCount(raw))
	}
}

func TestSearch_SoftDeleteMarker(t *testing.T) {
	ctx := context.Background()
	e := New(engine.Options{SoftDelete: true})
	trashed := model.NewRow(posts, map[string]any{"id": 3, "title": "old", "deleted_at": "2026-01-01"})
	_ = e.Update(ctx, []domain.Record{post(1, "new"), trashed})

	visible, _ := e.Search(ctx, request.For(posts, "").Build())
	if got := e.MapIDs(visible, "id"); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("default ids = %v, want [1]", got)
	}
	only, _ := e.Search(ctx, request.For(posts, "").OnlyTrashed().Build())
	if got := e.MapIDs(only, "id"); !reflect.DeepEqual(got, []string{"3"}) {
		t.Errorf("only trashed ids = %v, want [3]", got)
	}
	all, _ := e.Search(ctx, request.For(posts, "").WithTrashed().Build())
	if all.Total != 2 {
		t.Errorf("with trashed total = %d, want 2", all.Total)
	}
}

func TestSearch_RawHookOwnsCall(t *testing.T) {
	e := New(engine.Options{SoftDelete: false})
	req := request.For(posts, "q").Where("id", 1).Raw(
		func(_ context.Context, backend any, term string, _ map[string]any) (any, error) {
			if backend != e {
				t.Error("hook should receive the native engine")
			}
			return term + "!", nil
		}).Build()

	raw, err := e.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if raw.Native != "q!" {
		t.Errorf("Native = %v", raw.Native)
	}
}

func TestSearch_OrdersAndLimit(t *testing.T) {
	ctx := context.Background()
	e := New(engine.Options{SoftDelete: false})
	_ = e.Update(ctx, []domain.Record{post(1, "b"), post(2, "c"), post(3, "a")})

	raw, _ := e.Search(ctx, request.For(posts, "").OrderBy("title", request.Asc).Take(2).Build())
	if got := e.MapIDs(raw, "id"); !reflect.DeepEqual(got, []string{"3", "1"}) {
		t.Errorf("ids = %v, want [3 1]", got)
	}
	if raw.Total != 3 {
		t.Errorf("Total = %d, want 3", raw.Total)
	}
}
