package engine

import (
	"context"
	"iter"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model/field"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
)

// Engine is the capability set every search backend implements.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Engine interface {
	Updater
	Deleter
	Searcher
	Mapper
	IndexManager
	// Native exposes the backend client for features the contract cannot express.
	Native() any
}

// Updater upserts records.
type Updater interface {
	// Update sends one batched upsert per index. Records with an empty
	// projection are skipped. Empty input is a no-op.
	Update(ctx context.Context, records []domain.Record) error
}

// Deleter removes records by identity. Empty input is a no-op.
type Deleter interface {
	Delete(ctx context.Context, items []domain.Identity) error
}

// Searcher runs queries.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (*result.Raw, error)
	Paginate(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error)
}

// Mapper turns raw results into identifiers or reconciled records.
type Mapper interface {
	MapIDs(raw *result.Raw, keyName string) []string
	Map(ctx context.Context, req *request.Request, raw *result.Raw, f Fetcher) ([]result.Item, error)
	LazyMap(ctx context.Context, req *request.Request, raw *result.Raw, c Cursor) iter.Seq2[result.Item, error]
	TotalCount(raw *result.Raw) int
}

// IndexManager manages index lifecycle.
type IndexManager interface {
	// Flush removes every document of the index.
	Flush(ctx context.Context, index string) error
	CreateIndex(ctx context.Context, index string, opts IndexOptions) error
	DeleteIndex(ctx context.Context, index string) error
}

// IndexOptions carries index creation settings.
type IndexOptions struct {
	PrimaryKey string
	Fields     []field.Field
	// SoftDeletes adds the trashed marker to the schema.
	SoftDeletes bool
}

// Fetcher bulk-loads records by key. Order of the result is irrelevant.
type Fetcher interface {
	FetchByKeys(ctx context.Context, model string, keys []string) ([]domain.Record, error)
}

// Cursor streams records by key.
type Cursor interface {
	CursorByKeys(ctx context.Context, model string, keys []string) iter.Seq2[domain.Record, error]
}

// ScanMode selects which rows a scan yields.
type ScanMode = request.SoftDeleteMode

// Scanner streams every record of a model.
type Scanner interface {
	Scan(ctx context.Context, model string, mode ScanMode) iter.Seq2[domain.Record, error]
}

// Pinger is implemented by drivers that can ping their backend cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerOf returns the Pinger behind e, looking through instrumentation.
func PingerOf(e Engine) (Pinger, bool) {
	if w, ok := e.(interface{ Unwrap() Engine }); ok {
		e = w.Unwrap()
	}
	p, ok := e.(Pinger)
	return p, ok
}

// Options is the driver-independent engine configuration.
type Options struct {
	// SoftDelete keeps trashed records indexed with a marker field.
	SoftDelete bool
}
