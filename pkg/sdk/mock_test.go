package searchsync

import (
	"context"
	"iter"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/usecase/changesync"
	healthuc "github.com/kailas-cloud/searchsync/internal/usecase/health"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	queryFn       func(modelName, term string) (*request.Builder, error)
	searchFn      func(ctx context.Context, req *request.Request) ([]result.Item, error)
	rawFn         func(ctx context.Context, req *request.Request) (*result.Raw, error)
	keysFn        func(ctx context.Context, req *request.Request) ([]string, error)
	paginateFn    func(ctx context.Context, req *request.Request, perPage, page int) (result.Page, error)
	paginateRawFn func(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error)
}

func (m *mockSearchUC) Query(modelName, term string) (*request.Builder, error) {
	return m.queryFn(modelName, term)
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) ([]result.Item, error) {
	return m.searchFn(ctx, req)
}

func (m *mockSearchUC) RawResult(ctx context.Context, req *request.Request) (*result.Raw, error) {
	return m.rawFn(ctx, req)
}

func (m *mockSearchUC) Keys(ctx context.Context, req *request.Request) ([]string, error) {
	return m.keysFn(ctx, req)
}

func (m *mockSearchUC) Cursor(ctx context.Context, req *request.Request) iter.Seq2[result.Item, error] {
	return func(yield func(result.Item, error) bool) {
		items, err := m.searchFn(ctx, req)
		if err != nil {
			yield(result.Item{}, err)
			return
		}
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
	}
}

func (m *mockSearchUC) Paginate(
	ctx context.Context, req *request.Request, perPage, page int,
) (result.Page, error) {
	return m.paginateFn(ctx, req, perPage, page)
}

func (m *mockSearchUC) PaginateRaw(
	ctx context.Context, req *request.Request, perPage, page int,
) (*result.Raw, error) {
	return m.paginateRawFn(ctx, req, perPage, page)
}

// --- indexUseCase mock ---

type mockIndexUC struct {
	importFn   func(ctx context.Context, modelName string) (int, error)
	unimportFn func(ctx context.Context, modelName string) (int, error)
	flushFn    func(ctx context.Context, modelName string) error
	createFn   func(ctx context.Context, modelName string) error
	deleteFn   func(ctx context.Context, modelName string) error
}

func (m *mockIndexUC) Import(ctx context.Context, modelName string) (int, error) {
	return m.importFn(ctx, modelName)
}

func (m *mockIndexUC) Unimport(ctx context.Context, modelName string) (int, error) {
	return m.unimportFn(ctx, modelName)
}

func (m *mockIndexUC) Flush(ctx context.Context, modelName string) error {
	return m.flushFn(ctx, modelName)
}

func (m *mockIndexUC) CreateIndex(ctx context.Context, modelName string) error {
	return m.createFn(ctx, modelName)
}

func (m *mockIndexUC) DeleteIndex(ctx context.Context, modelName string) error {
	return m.deleteFn(ctx, modelName)
}

// --- syncUseCase mock ---

type mockSyncUC struct {
	handleFn       func(ctx context.Context, events ...changesync.Event) error
	searchableFn   func(ctx context.Context, records ...domain.Record) error
	unsearchableFn func(ctx context.Context, records ...domain.Record) error
}

func (m *mockSyncUC) Handle(ctx context.Context, events ...changesync.Event) error {
	return m.handleFn(ctx, events...)
}

func (m *mockSyncUC) Searchable(ctx context.Context, records ...domain.Record) error {
	return m.searchableFn(ctx, records...)
}

func (m *mockSyncUC) Unsearchable(ctx context.Context, records ...domain.Record) error {
	return m.unsearchableFn(ctx, records...)
}

// --- loaderUseCase mock ---

type mockLoaderUC struct {
	applyFn func(ctx context.Context, modelName string, refs []changesync.Ref) error
}

func (m *mockLoaderUC) Apply(ctx context.Context, modelName string, refs []changesync.Ref) error {
	return m.applyFn(ctx, modelName, refs)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }
