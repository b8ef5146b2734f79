package searchsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/searchsync/internal/config"
	"github.com/kailas-cloud/searchsync/internal/domain"
)

// openPosts creates a sqlite store holding three posts, one of them a draft.
func openPosts(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "posts.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE posts (
			id INTEGER PRIMARY KEY, title TEXT, status TEXT, views INTEGER,
			published INTEGER, deleted_at TEXT, created_at TEXT
		);
		INSERT INTO posts VALUES
			(1, 'hello world', 'published', 10, 1, NULL, '2026-01-01T00:00:00Z'),
			(2, 'hello draft', 'draft', 99, 0, NULL, '2026-01-02T00:00:00Z'),
			(3, 'hello again', 'published', 30, 1, NULL, '2026-01-03T00:00:00Z');
	`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func postModel(t *testing.T) *Model {
	t.Helper()
	m, err := ModelOf[post]("posts", ModelOptions{SearchableIf: map[string]any{"status": "published"}})
	if err != nil {
		t.Fatalf("ModelOf: %v", err)
	}
	return m
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *sql.DB, *Model) {
	t.Helper()
	db := openPosts(t)
	m := postModel(t)
	base := []Option{WithMemory(), WithSQLite(db), WithModels(m)}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, db, m
}

func TestNew_NoModels(t *testing.T) {
	_, err := New(context.Background(), WithMemory())
	if err == nil || !strings.Contains(err.Error(), "model") {
		t.Errorf("error = %v, want model required", err)
	}
}

func TestNew_NoRecordStore(t *testing.T) {
	_, err := New(context.Background(), WithMemory(), WithModels(postModel(t)))
	if err == nil || !strings.Contains(err.Error(), "record store") {
		t.Errorf("error = %v, want record store required", err)
	}
}

func TestNew_DuplicateModels(t *testing.T) {
	m := postModel(t)
	_, err := New(context.Background(), WithMemory(), WithSQLite(openPosts(t)), WithModels(m, m))
	if err == nil {
		t.Fatal("expected error for duplicate models")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	bogus := optionFunc(func(c *clientConfig) { c.engine.Driver = "solr" })
	_, err := New(context.Background(), WithSQLite(openPosts(t)), WithModels(postModel(t)), bogus)
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("error = %v, want ErrUnknownDriver", err)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := defaultConfig()
	if cfg.engine.Driver != config.DriverNull {
		t.Errorf("default driver = %q, want null", cfg.engine.Driver)
	}

	opts := []Option{
		WithTypesense("http://localhost:8108", "key", 3*time.Second, map[string]string{"posts": "title"}),
		WithSoftDelete(),
		WithChunkSize(100, 0),
		WithConcurrency(8),
		WithPredicate("posts", func([]string) (bool, error) { return true, nil }),
		WithAfterCommit(),
		WithLogger(slog.Default()),
		WithPrometheus(prometheus.NewRegistry()),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.engine.Driver != config.DriverTypesense {
		t.Errorf("driver = %q, want typesense", cfg.engine.Driver)
	}
	if !cfg.engine.SoftDelete {
		t.Error("SoftDelete not set")
	}
	if cfg.engine.Chunk.Searchable != 100 || cfg.engine.Chunk.Unsearchable != 500 {
		t.Errorf("chunk = %+v, zero sizes should keep the default", cfg.engine.Chunk)
	}
	if cfg.engine.Concurrency != 8 {
		t.Errorf("concurrency = %d", cfg.engine.Concurrency)
	}
	if len(cfg.predicates) != 1 || !cfg.afterCommit {
		t.Errorf("predicates = %d, afterCommit = %v", len(cfg.predicates), cfg.afterCommit)
	}
	if cfg.logger == nil || cfg.metricsReg == nil {
		t.Error("observability options not applied")
	}
}

func TestClient_ImportAndSearch(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()

	n, err := c.Indexes().Import(ctx, "posts")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 {
		t.Errorf("imported = %d, want 2", n)
	}

	b, err := c.Search("posts").Query("hello")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	keys, err := c.Search("posts").Keys(ctx, b.OrderByDesc("views").Build())
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if strings.Join(keys, ",") != "3,1" {
		t.Errorf("keys = %v, want [3 1]", keys)
	}

	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if h := c.Health(ctx); h.Status != "ok" {
		t.Errorf("Health = %+v", h)
	}
}

func TestClient_UnknownModel(t *testing.T) {
	c, _, _ := newTestClient(t)
	if _, err := c.Search("ghosts").Query(""); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("error = %v, want ErrModelNotFound", err)
	}
}

func TestClient_SyncEvents(t *testing.T) {
	c, db, m := newTestClient(t)
	ctx := context.Background()

	if _, err := db.Exec(`INSERT INTO posts VALUES (4, 'fresh news', 'published', 1, 1, NULL, '2026-02-01T00:00:00Z')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	row := NewRow(m, map[string]any{"id": int64(4), "title": "fresh news", "status": "published"})
	if err := c.Sync().Created(ctx, row); err != nil {
		t.Fatalf("Created: %v", err)
	}
	if got := searchKeys(t, c, "fresh"); len(got) != 1 || got[0] != "4" {
		t.Fatalf("after create: keys = %v", got)
	}

	if err := c.Sync().Apply(ctx, "posts", []EventRef{{Kind: EventDeleted, Key: "4"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := searchKeys(t, c, "fresh"); len(got) != 0 {
		t.Errorf("after delete: keys = %v", got)
	}
}

func TestClient_SyncDisabled(t *testing.T) {
	c, _, m := newTestClient(t)
	ctx := context.Background()

	err := c.Sync().Without("posts", func() error {
		return c.Sync().Created(ctx, NewRow(m, map[string]any{"id": int64(1), "status": "published"}))
	})
	if err != nil {
		t.Fatalf("Without: %v", err)
	}
	if got := searchKeys(t, c, ""); len(got) != 0 {
		t.Errorf("disabled model indexed %v", got)
	}
}

func TestClient_AfterCommit(t *testing.T) {
	c, _, m := newTestClient(t, WithAfterCommit())
	row := NewRow(m, map[string]any{"id": int64(1), "title": "hello world", "status": "published"})

	ctx, tx := c.BeginTx(context.Background())
	if err := c.Sync().Created(ctx, row); err != nil {
		t.Fatalf("Created: %v", err)
	}
	if got := searchKeys(t, c, ""); len(got) != 0 {
		t.Fatalf("dispatched before commit: %v", got)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := searchKeys(t, c, ""); len(got) != 1 {
		t.Errorf("after commit: keys = %v", got)
	}
	if err := tx.Commit(ctx); !errors.Is(err, ErrTxDone) {
		t.Errorf("second Commit error = %v, want ErrTxDone", err)
	}
}

func TestClient_Native(t *testing.T) {
	c, _, _ := newTestClient(t)
	if c.Native() == nil {
		t.Error("Native() should expose the memory engine")
	}
}

func searchKeys(t *testing.T, c *Client, term string) []string {
	t.Helper()
	b, err := c.Search("posts").Query(term)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	keys, err := c.Search("posts").Keys(context.Background(), b.Build())
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	return keys
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", "posts", time.Now(), nil)
	obs.observe("test", "", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("search.get", "posts", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("search.get", "posts", time.Now(), errors.New("fail"))
	obs.observe("search.get", "ghosts", time.Now(), fmt.Errorf("search ghosts: %w", domain.ErrModelNotFound))
	obs.observe("sync.handle", "", time.Now(), nil)

	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search.get", "ghosts", "not_found")); got != 1 {
		t.Errorf("not_found samples = %v, want 1", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("sync.handle", anyModel, "ok")); got != 1 {
		t.Errorf("cross-model samples = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "searchsync_sdk_operations_total" {
			found = true
			if len(f.GetMetric()) != 4 {
				t.Errorf("expected 4 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("searchsync_sdk_operations_total not found")
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first newObserver: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second newObserver should reuse collectors: %v", err)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", "posts", time.Now(), nil)
	obs.observe("test.op", "posts", time.Now(), errors.New("test error"))
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{domain.ErrModelNotFound, "not_found"},
		{fmt.Errorf("wrap: %w", domain.ErrInvalidFilter), "invalid"},
		{domain.ErrPredicate, "invalid"},
		{domain.ErrNotSupported, "unsupported"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
