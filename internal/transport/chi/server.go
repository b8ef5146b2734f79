package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/searchsync/internal/logger"
	"github.com/kailas-cloud/searchsync/internal/usecase/changesync"
	healthuc "github.com/kailas-cloud/searchsync/internal/usecase/health"
)

const (
	// wherePrefix marks equality filters in the query string: where.status=draft.
	wherePrefix  = "where."
	maxEvents    = 1000
	maxBodyBytes = 4 << 20
)

// Searcher runs paginated model searches.
type Searcher interface {
	Query(model, term string) (*request.Builder, error)
	Paginate(ctx context.Context, req *request.Request, perPage, page int) (result.Page, error)
}

// Indexer runs bulk index operations.
type Indexer interface {
	Import(ctx context.Context, model string) (int, error)
	Flush(ctx context.Context, model string) error
}

// EventSink applies lifecycle events reported by external writers.
type EventSink interface {
	Apply(ctx context.Context, model string, refs []changesync.Ref) error
}

// Server serves the search HTTP API.
type Server struct {
	search        Searcher
	index         Indexer
	events        EventSink
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, index Indexer, events EventSink, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{
		search:        search,
		index:         index,
		events:        events,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1/models/{model}", func(r chi.Router) {
		r.Use(modelLogger)
		r.Get("/search", s.SearchModel)
		r.Post("/import", s.ImportModel)
		r.Post("/flush", s.FlushModel)
		r.Post("/events", s.PostEvents)
	})
}

// modelLogger tags the request logger with the model path parameter.
func modelLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logpkg.With(r.Context(), zap.String("model", chi.URLParam(r, "model")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SearchParams are the query parameters of GET /v1/models/{model}/search.
type SearchParams struct {
	Q       *string   `form:"q,omitempty"`
	Page    *int      `form:"page,omitempty"`
	PerPage *int      `form:"per_page,omitempty"`
	OrderBy *[]string `form:"order_by,omitempty"`
	Trashed *string   `form:"trashed,omitempty"`
}

// ItemResponse is one rehydrated hit.
type ItemResponse struct {
	Key      string         `json:"key"`
	Record   map[string]any `json:"record"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PageResponse is a page of search results.
type PageResponse struct {
	Items       []ItemResponse `json:"items"`
	Total       int            `json:"total"`
	PerPage     int            `json:"per_page"`
	CurrentPage int            `json:"current_page"`
	LastPage    int            `json:"last_page"`
}

// SearchModel handles GET /v1/models/{model}/search.
func (s *Server) SearchModel(w http.ResponseWriter, r *http.Request) {
	modelName, ok := s.bindModel(w, r)
	if !ok {
		return
	}
	params, err := bindSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	b, err := s.search.Query(modelName, deref(params.Q))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := applyParams(b, params, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	page := 1
	if params.Page != nil {
		page = *params.Page
	}
	perPage := 0
	if params.PerPage != nil {
		perPage = *params.PerPage
	}

	p, err := s.search.Paginate(r.Context(), b.Build(), perPage, page)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(p))
}

// ImportModel handles POST /v1/models/{model}/import.
func (s *Server) ImportModel(w http.ResponseWriter, r *http.Request) {
	modelName, ok := s.bindModel(w, r)
	if !ok {
		return
	}
	n, err := s.index.Import(r.Context(), modelName)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"model": modelName, "imported": n})
}

// FlushModel handles POST /v1/models/{model}/flush.
func (s *Server) FlushModel(w http.ResponseWriter, r *http.Request) {
	modelName, ok := s.bindModel(w, r)
	if !ok {
		return
	}
	if err := s.index.Flush(r.Context(), modelName); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EventRequest is one lifecycle transition in POST /v1/models/{model}/events.
type EventRequest struct {
	Kind          string   `json:"kind"`
	Key           string   `json:"key"`
	WasSearchable bool     `json:"was_searchable"`
	Changed       []string `json:"changed,omitempty"`
	Restoring     bool     `json:"restoring,omitempty"`
}

// EventsRequest is the body of POST /v1/models/{model}/events.
type EventsRequest struct {
	Events []EventRequest `json:"events"`
}

// PostEvents handles POST /v1/models/{model}/events.
func (s *Server) PostEvents(w http.ResponseWriter, r *http.Request) {
	modelName, ok := s.bindModel(w, r)
	if !ok {
		return
	}
	var body EventsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if len(body.Events) > maxEvents {
		writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("at most %d events per request", maxEvents))
		return
	}

	refs := make([]changesync.Ref, 0, len(body.Events))
	for i, ev := range body.Events {
		kind, err := changesync.ParseKind(ev.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("events[%d]: %v", i, err))
			return
		}
		if ev.Key == "" {
			writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("events[%d]: key is required", i))
			return
		}
		refs = append(refs, changesync.Ref{
			Kind:          kind,
			Key:           ev.Key,
			WasSearchable: ev.WasSearchable,
			Changed:       ev.Changed,
			Restoring:     ev.Restoring,
		})
	}

	if err := s.events.Apply(r.Context(), modelName, refs); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": len(refs)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) bindModel(w http.ResponseWriter, r *http.Request) (string, bool) {
	var modelName string
	err := runtime.BindStyledParameterWithOptions("simple", "model", chi.URLParam(r, "model"), &modelName,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid model: %v", err))
		return "", false
	}
	return modelName, true
}

func bindSearchParams(q url.Values) (SearchParams, error) {
	var p SearchParams
	binds := []struct {
		name string
		dest any
	}{
		{"q", &p.Q},
		{"page", &p.Page},
		{"per_page", &p.PerPage},
		{"order_by", &p.OrderBy},
		{"trashed", &p.Trashed},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return SearchParams{}, fmt.Errorf("invalid %s: %w", b.name, err)
		}
	}
	return p, nil
}

// applyParams adds filters in field name order, orders and the trashed mode to b.
// order_by entries are field or field:desc.
func applyParams(b *request.Builder, p SearchParams, q url.Values) error {
	keys := make([]string, 0, len(q))
	for key := range q {
		if strings.HasPrefix(key, wherePrefix) && len(key) > len(wherePrefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	for _, key := range keys {
		field, values := strings.TrimPrefix(key, wherePrefix), q[key]
		if len(values) == 1 {
			b.Where(field, filter.Parse(values[0]))
			continue
		}
		in := make([]any, 0, len(values))
		for _, v := range values {
			in = append(in, filter.Parse(v))
		}
		b.WhereIn(field, in...)
	}

	if p.OrderBy != nil {
		for _, o := range *p.OrderBy {
			field, dir, _ := strings.Cut(o, ":")
			b.OrderBy(field, request.Direction(strings.ToLower(dir)))
		}
	}

	switch deref(p.Trashed) {
	case "":
	case "with":
		b.WithTrashed()
	case "only":
		b.OnlyTrashed()
	default:
		return fmt.Errorf("invalid trashed %q: want with or only", *p.Trashed)
	}
	return nil
}

func pageToResponse(p result.Page) PageResponse {
	items := make([]ItemResponse, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, ItemResponse{
			Key:      it.Record.SearchKey(),
			Record:   it.Record.SearchableProjection(),
			Metadata: it.Metadata,
		})
	}
	return PageResponse{
		Items:       items,
		Total:       p.Total,
		PerPage:     p.PerPage,
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage(),
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.String("model", chi.URLParam(r, "model")), zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
