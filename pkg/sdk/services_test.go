package searchsync

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/usecase/changesync"
	healthuc "github.com/kailas-cloud/searchsync/internal/usecase/health"
)

var testPosts = model.MustNew("posts", model.Options{})

func testRow(id int) *Row {
	return NewRow(testPosts, map[string]any{"id": id, "title": "hello"})
}

// --- SearchService ---

func TestSearchService_Query(t *testing.T) {
	mock := &mockSearchUC{
		queryFn: func(modelName, term string) (*request.Builder, error) {
			if modelName != "posts" || term != "zonda" {
				t.Errorf("Query(%q, %q)", modelName, term)
			}
			return request.For(testPosts, term), nil
		},
	}

	svc := &SearchService{model: "posts", svc: mock}
	b, err := svc.Query("zonda")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Build().Term() != "zonda" {
		t.Errorf("Term() = %q", b.Build().Term())
	}
}

func TestSearchService_Query_UnknownModel(t *testing.T) {
	mock := &mockSearchUC{
		queryFn: func(string, string) (*request.Builder, error) {
			return nil, domain.ErrModelNotFound
		},
	}

	svc := &SearchService{model: "ghosts", svc: mock}
	_, err := svc.Query("x")
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("error = %v, want ErrModelNotFound", err)
	}
}

func TestSearchService_Get(t *testing.T) {
	mock := &mockSearchUC{
		searchFn: func(context.Context, *request.Request) ([]result.Item, error) {
			return []result.Item{
				{Record: testRow(2), Metadata: map[string]any{"_score": 1.5}},
				{Record: testRow(1)},
			}, nil
		},
	}

	svc := &SearchService{model: "posts", svc: mock}
	items, err := svc.Get(context.Background(), request.For(testPosts, "").Build())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].Record.SearchKey() != "2" {
		t.Errorf("items = %v", items)
	}
	if items[0].Metadata["_score"] != 1.5 {
		t.Errorf("metadata = %v", items[0].Metadata)
	}
}

func TestSearchService_Errors(t *testing.T) {
	boom := errors.New("backend down")
	mock := &mockSearchUC{
		searchFn: func(context.Context, *request.Request) ([]result.Item, error) { return nil, boom },
		rawFn:    func(context.Context, *request.Request) (*result.Raw, error) { return nil, boom },
		keysFn:   func(context.Context, *request.Request) ([]string, error) { return nil, boom },
		paginateFn: func(context.Context, *request.Request, int, int) (result.Page, error) {
			return result.Page{}, boom
		},
		paginateRawFn: func(context.Context, *request.Request, int, int) (*result.Raw, error) {
			return nil, boom
		},
	}
	svc := &SearchService{model: "posts", svc: mock}
	req := request.For(testPosts, "").Build()
	ctx := context.Background()

	calls := map[string]func() error{
		"get":  func() error { _, err := svc.Get(ctx, req); return err },
		"raw":  func() error { _, err := svc.Raw(ctx, req); return err },
		"keys": func() error { _, err := svc.Keys(ctx, req); return err },
		"paginate": func() error {
			_, err := svc.Paginate(ctx, req, 15, 1)
			return err
		},
		"paginate raw": func() error {
			_, err := svc.PaginateRaw(ctx, req, 15, 1)
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, boom) {
				t.Errorf("error = %v, want wrapped backend error", err)
			}
		})
	}
}

func TestSearchService_Paginate(t *testing.T) {
	mock := &mockSearchUC{
		paginateFn: func(_ context.Context, _ *request.Request, perPage, page int) (result.Page, error) {
			if perPage != 1 || page != 2 {
				t.Errorf("Paginate(%d, %d)", perPage, page)
			}
			return result.Page{Items: []result.Item{{Record: testRow(2)}}, Total: 3, PerPage: 1, CurrentPage: 2}, nil
		},
	}

	svc := &SearchService{model: "posts", svc: mock}
	p, err := svc.Paginate(context.Background(), request.For(testPosts, "").Build(), 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.LastPage() != 3 || !p.HasMore() {
		t.Errorf("page = %+v", p)
	}
}

func TestSearchService_Cursor(t *testing.T) {
	mock := &mockSearchUC{
		searchFn: func(context.Context, *request.Request) ([]result.Item, error) {
			return []result.Item{{Record: testRow(1)}, {Record: testRow(2)}}, nil
		},
	}

	svc := &SearchService{model: "posts", svc: mock}
	var keys []string
	for it, err := range svc.Cursor(context.Background(), request.For(testPosts, "").Build()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		keys = append(keys, it.Record.SearchKey())
	}
	if len(keys) != 2 || keys[0] != "1" {
		t.Errorf("keys = %v", keys)
	}
}

// --- SyncService ---

func TestSyncService_LifecycleHelpers(t *testing.T) {
	var got []changesync.Event
	mock := &mockSyncUC{
		handleFn: func(_ context.Context, events ...changesync.Event) error {
			got = append(got, events...)
			return nil
		},
	}
	svc := &SyncService{svc: mock, registry: changesync.NewRegistry()}
	ctx := context.Background()
	r := testRow(1)

	if err := svc.Created(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := svc.Updated(ctx, r, true, "title"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Trashed(ctx, r, true); err != nil {
		t.Fatal(err)
	}
	if err := svc.Restored(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := svc.Deleted(ctx, r); err != nil {
		t.Fatal(err)
	}

	want := []EventKind{EventCreated, EventUpdated, EventTrashed, EventRestored, EventDeleted}
	if len(got) != len(want) {
		t.Fatalf("events = %d, want %d", len(got), len(want))
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("event[%d] = %v, want %v", i, got[i].Kind, k)
		}
	}
	if !got[1].WasSearchable || len(got[1].Changed) != 1 {
		t.Errorf("updated event = %+v", got[1])
	}
}

func TestSyncService_Errors(t *testing.T) {
	mock := &mockSyncUC{
		handleFn: func(context.Context, ...changesync.Event) error {
			return domain.ErrPredicate
		},
		searchableFn:   func(context.Context, ...domain.Record) error { return errors.New("upsert failed") },
		unsearchableFn: func(context.Context, ...domain.Record) error { return errors.New("delete failed") },
	}
	loader := &mockLoaderUC{
		applyFn: func(context.Context, string, []changesync.Ref) error { return domain.ErrModelNotFound },
	}
	svc := &SyncService{svc: mock, loader: loader, registry: changesync.NewRegistry()}
	ctx := context.Background()

	if err := svc.Created(ctx, testRow(1)); !errors.Is(err, ErrPredicate) {
		t.Errorf("Created error = %v, want ErrPredicate", err)
	}
	if err := svc.Searchable(ctx, testRow(1)); err == nil {
		t.Error("Searchable: expected error")
	}
	if err := svc.Unsearchable(ctx, testRow(1)); err == nil {
		t.Error("Unsearchable: expected error")
	}
	if err := svc.Apply(ctx, "ghosts", nil); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Apply error = %v, want ErrModelNotFound", err)
	}
}

func TestSyncService_Apply(t *testing.T) {
	loader := &mockLoaderUC{
		applyFn: func(_ context.Context, modelName string, refs []changesync.Ref) error {
			if modelName != "posts" || len(refs) != 1 || refs[0].Key != "7" {
				t.Errorf("Apply(%q, %+v)", modelName, refs)
			}
			return nil
		},
	}
	svc := &SyncService{loader: loader}
	err := svc.Apply(context.Background(), "posts", []EventRef{{Kind: EventUpdated, Key: "7"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSyncService_Registry(t *testing.T) {
	svc := &SyncService{registry: changesync.NewRegistry()}

	svc.Disable("posts")
	if svc.Enabled("posts") {
		t.Error("posts should be disabled")
	}
	svc.Enable("posts")

	err := svc.Without("posts", func() error {
		if svc.Enabled("posts") {
			t.Error("posts should be disabled inside Without")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !svc.Enabled("posts") {
		t.Error("Without should restore the prior state")
	}
}

// --- IndexService ---

func TestIndexService(t *testing.T) {
	var calls []string
	record := func(op string) func(context.Context, string) error {
		return func(_ context.Context, name string) error {
			calls = append(calls, op+":"+name)
			return nil
		}
	}
	mock := &mockIndexUC{
		importFn:   func(context.Context, string) (int, error) { return 2, nil },
		unimportFn: func(context.Context, string) (int, error) { return 3, nil },
		flushFn:    record("flush"),
		createFn:   record("create"),
		deleteFn:   record("delete"),
	}
	svc := &IndexService{svc: mock}
	ctx := context.Background()

	if n, err := svc.Import(ctx, "posts"); err != nil || n != 2 {
		t.Errorf("Import = %d, %v", n, err)
	}
	if n, err := svc.Unimport(ctx, "posts"); err != nil || n != 3 {
		t.Errorf("Unimport = %d, %v", n, err)
	}
	for _, fn := range []func(context.Context, string) error{svc.Flush, svc.Create, svc.Delete} {
		if err := fn(ctx, "posts"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	want := []string{"flush:posts", "create:posts", "delete:posts"}
	for i, w := range want {
		if calls[i] != w {
			t.Errorf("call[%d] = %q, want %q", i, calls[i], w)
		}
	}
}

func TestIndexService_Errors(t *testing.T) {
	mock := &mockIndexUC{
		importFn:   func(context.Context, string) (int, error) { return 0, domain.ErrModelNotFound },
		unimportFn: func(context.Context, string) (int, error) { return 0, domain.ErrModelNotFound },
		flushFn:    func(context.Context, string) error { return domain.ErrNotSupported },
		createFn:   func(context.Context, string) error { return domain.ErrNotSupported },
		deleteFn:   func(context.Context, string) error { return domain.ErrNotSupported },
	}
	svc := &IndexService{svc: mock}
	ctx := context.Background()

	if _, err := svc.Import(ctx, "x"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Import error = %v", err)
	}
	if _, err := svc.Unimport(ctx, "x"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Unimport error = %v", err)
	}
	if err := svc.Flush(ctx, "x"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Flush error = %v", err)
	}
	if err := svc.Create(ctx, "x"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Create error = %v", err)
	}
	if err := svc.Delete(ctx, "x"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Delete error = %v", err)
	}
}

// --- Health ---

func TestClient_Health(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "queue": healthuc.CheckError},
	}}}

	h := c.Health(context.Background())
	if h.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", h.Status)
	}
	if h.Checks["queue"] != "error" || h.Checks["database"] != "ok" {
		t.Errorf("Checks = %v", h.Checks)
	}
	if h.Healthy() {
		t.Error("degraded status should not be healthy")
	}
	if got := h.Failing(); len(got) != 1 || got[0] != "queue" {
		t.Errorf("Failing() = %v, want [queue]", got)
	}
}

func TestClient_HealthAllOK(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "engine": healthuc.CheckOK},
	}}}

	h := c.Health(context.Background())
	if !h.Healthy() || len(h.Failing()) != 0 {
		t.Errorf("health = %+v", h)
	}
}
