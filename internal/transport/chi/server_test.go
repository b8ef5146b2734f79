package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/usecase/changesync"
	healthuc "github.com/kailas-cloud/searchsync/internal/usecase/health"
)

var posts = model.MustNew("posts", model.Options{SoftDeleteColumn: "deleted_at"})

// --- Mocks ---

type mockSearcher struct {
	lastReq     *request.Request
	lastPerPage int
	lastPage    int
	page        result.Page
	err         error
}

func (m *mockSearcher) Query(name, term string) (*request.Builder, error) {
	if name != "posts" {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, name)
	}
	return request.For(posts, term), nil
}

func (m *mockSearcher) Paginate(_ context.Context, req *request.Request, perPage, page int) (result.Page, error) {
	m.lastReq, m.lastPerPage, m.lastPage = req, perPage, page
	return m.page, m.err
}

type mockIndexer struct {
	imported int
	flushed  []string
	err      error
}

func (m *mockIndexer) Import(context.Context, string) (int, error) { return m.imported, m.err }

func (m *mockIndexer) Flush(_ context.Context, name string) error {
	m.flushed = append(m.flushed, name)
	return m.err
}

type mockSink struct {
	model string
	refs  []changesync.Ref
	err   error
}

func (m *mockSink) Apply(_ context.Context, name string, refs []changesync.Ref) error {
	m.model, m.refs = name, refs
	return m.err
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newTestRouter(s *mockSearcher, ix *mockIndexer) http.Handler {
	return newTestRouterWithSink(s, ix, &mockSink{})
}

func newTestRouterWithSink(s *mockSearcher, ix *mockIndexer, sink *mockSink) http.Handler {
	srv := NewServer(s, ix, sink, healthuc.New(okPinger{}, nil, nil), zap.NewNop())
	return NewRouter(srv, nil, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, http.NoBody))
	return rr
}

// --- Tests ---

func TestSearchModel_BindsParams(t *testing.T) {
	s := &mockSearcher{page: result.Page{
		Items: []result.Item{{
			Record:   model.NewRow(posts, map[string]any{"id": 1, "title": "go"}),
			Metadata: map[string]any{"_rankingScore": 0.9},
		}},
		Total: 31, PerPage: 15, CurrentPage: 2,
	}}
	h := newTestRouter(s, &mockIndexer{})

	rr := do(t, h, http.MethodGet,
		"/v1/models/posts/search?q=zonda&page=2&where.status=draft&where.id=1&where.id=2&order_by=price:desc&trashed=only")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}

	req := s.lastReq
	if req.Term() != "zonda" || s.lastPage != 2 || s.lastPerPage != 0 {
		t.Errorf("term %q page %d perPage %d", req.Term(), s.lastPage, s.lastPerPage)
	}
	fs := req.Filters()
	if len(fs) != 2 {
		t.Fatalf("filters = %d, want 2", len(fs))
	}
	if fs[0].Field() != "id" || fs[0].Op() != filter.OpIn || len(fs[0].Values()) != 2 || fs[0].Values()[0] != int64(1) {
		t.Errorf("filter[0] = %s %s %v", fs[0].Field(), fs[0].Op(), fs[0].Values())
	}
	if fs[1].Field() != "status" || fs[1].Value() != "draft" {
		t.Errorf("filter[1] = %s %v", fs[1].Field(), fs[1].Value())
	}
	if o := req.Orders(); len(o) != 1 || o[0] != (request.Order{Field: "price", Direction: request.Desc}) {
		t.Errorf("orders = %v", o)
	}
	if req.SoftDelete() != request.OnlyTrashed {
		t.Errorf("soft delete = %v", req.SoftDelete())
	}

	var body PageResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 31 || body.LastPage != 3 || len(body.Items) != 1 || body.Items[0].Key != "1" {
		t.Errorf("body = %+v", body)
	}
}

func TestSearchModel_Errors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		err      error
		wantCode int
		wantBody ErrorCode
	}{
		{"unknown model", "/v1/models/ghosts/search", nil, http.StatusNotFound, CodeModelNotFound},
		{"bad page", "/v1/models/posts/search?page=abc", nil, http.StatusBadRequest, CodeBadRequest},
		{"bad trashed", "/v1/models/posts/search?trashed=all", nil, http.StatusBadRequest, CodeBadRequest},
		{"invalid page", "/v1/models/posts/search", domain.ErrInvalidPage, http.StatusBadRequest, CodeInvalidPage},
		{"invalid filter", "/v1/models/posts/search", domain.NewFilterError("x", "bad"),
			http.StatusBadRequest, CodeInvalidFilter},
		{"backend", "/v1/models/posts/search", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&mockSearcher{err: tt.err}, &mockIndexer{})
			rr := do(t, h, http.MethodGet, tt.target)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.wantCode, rr.Body)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantBody {
				t.Errorf("code = %s, want %s", body.Code, tt.wantBody)
			}
		})
	}
}

func TestFlushAndImport(t *testing.T) {
	ix := &mockIndexer{imported: 12}
	h := newTestRouter(&mockSearcher{}, ix)

	if rr := do(t, h, http.MethodPost, "/v1/models/posts/flush"); rr.Code != http.StatusNoContent {
		t.Errorf("flush status = %d", rr.Code)
	}
	if len(ix.flushed) != 1 || ix.flushed[0] != "posts" {
		t.Errorf("flushed = %v", ix.flushed)
	}

	rr := do(t, h, http.MethodPost, "/v1/models/posts/import")
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["imported"] != float64(12) {
		t.Errorf("body = %v", body)
	}
}

func TestHealthCheck(t *testing.T) {
	rr := do(t, newTestRouter(&mockSearcher{}, &mockIndexer{}), http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestPostEvents(t *testing.T) {
	sink := &mockSink{}
	h := newTestRouterWithSink(&mockSearcher{}, &mockIndexer{}, sink)

	body := `{"events":[{"kind":"updated","key":"1","was_searchable":true,"changed":["title"]},{"kind":"deleted","key":"2"}]}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/models/posts/events", strings.NewReader(body)))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	if sink.model != "posts" || len(sink.refs) != 2 {
		t.Fatalf("sink got %s %+v", sink.model, sink.refs)
	}
	if r := sink.refs[0]; r.Kind != changesync.KindUpdated || !r.WasSearchable || r.Changed[0] != "title" {
		t.Errorf("ref[0] = %+v", r)
	}
	if sink.refs[1].Kind != changesync.KindDeleted {
		t.Errorf("ref[1] = %+v", sink.refs[1])
	}
}

func TestPostEvents_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		sinkErr  error
		wantCode int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"unknown kind", `{"events":[{"kind":"archived","key":"1"}]}`, nil, http.StatusBadRequest},
		{"missing key", `{"events":[{"kind":"created"}]}`, nil, http.StatusBadRequest},
		{"predicate", `{"events":[{"kind":"updated","key":"1"}]}`, domain.ErrPredicate, http.StatusUnprocessableEntity},
		{"unknown model", `{"events":[{"kind":"created","key":"1"}]}`, domain.ErrModelNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouterWithSink(&mockSearcher{}, &mockIndexer{}, &mockSink{err: tt.sinkErr})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/models/posts/events", strings.NewReader(tt.body)))
			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (%s)", rr.Code, tt.wantCode, rr.Body)
			}
		})
	}
}
