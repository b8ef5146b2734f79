package algolia

import (
	"context"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
)

// SearchParams is an Algolia query. Page is zero-based.
type SearchParams struct {
	// NumericFilters holds string clauses and []string disjunctions.
	NumericFilters []any
	HitsPerPage    int
	Page           int
}

// SearchResponse is the part of an Algolia response the engine reads.
type SearchResponse struct {
	Hits        []map[string]any
	NbHits      int
	Page        int
	HitsPerPage int
}

// Index is the part of an Algolia index the engine drives.
type Index interface {
	SaveObjects(ctx context.Context, objects []map[string]any) error
	DeleteObjects(ctx context.Context, ids []string) error
	ClearObjects(ctx context.Context) error
	Delete(ctx context.Context) error
	Search(ctx context.Context, query string, params SearchParams) (*SearchResponse, error)
}

// Client opens indexes.
type Client interface {
	Index(name string) Index
}

type sdkClient struct {
	client *search.Client
}

// NewClient creates an Algolia search client.
func NewClient(appID, apiKey string) Client {
	return &sdkClient{client: search.NewClient(appID, apiKey)}
}

func (c *sdkClient) Index(name string) Index {
	return &sdkIndex{idx: c.client.InitIndex(name)}
}

// objectIndex is the subset of *search.Index the wrapper calls. The SDK
// transport picks a context.Context out of the variadic options.
type objectIndex interface {
	SaveObjects(objects interface{}, opts ...interface{}) (search.GroupBatchRes, error)
	DeleteObjects(objectIDs []string, opts ...interface{}) (search.BatchRes, error)
	ClearObjects(opts ...interface{}) (search.UpdateTaskRes, error)
	Delete(opts ...interface{}) (search.DeleteTaskRes, error)
	Search(query string, opts ...interface{}) (search.QueryRes, error)
}

type sdkIndex struct {
	idx objectIndex
}

func (i *sdkIndex) SaveObjects(ctx context.Context, objects []map[string]any) error {
	_, err := i.idx.SaveObjects(objects, ctx)
	return err
}

func (i *sdkIndex) DeleteObjects(ctx context.Context, ids []string) error {
	_, err := i.idx.DeleteObjects(ids, ctx)
	return err
}

func (i *sdkIndex) ClearObjects(ctx context.Context) error {
	_, err := i.idx.ClearObjects(ctx)
	return err
}

func (i *sdkIndex) Delete(ctx context.Context) error {
	_, err := i.idx.Delete(ctx)
	return err
}

func (i *sdkIndex) Search(ctx context.Context, query string, p SearchParams) (*SearchResponse, error) {
	opts := []interface{}{ctx}
	if len(p.NumericFilters) > 0 {
		and := make([]interface{}, 0, len(p.NumericFilters))
		for _, clause := range p.NumericFilters {
			switch c := clause.(type) {
			case []string:
				or := make([]interface{}, 0, len(c))
				for _, s := range c {
					or = append(or, s)
				}
				and = append(and, opt.NumericFilterOr(or...))
			default:
				and = append(and, c)
			}
		}
		opts = append(opts, opt.NumericFilterAnd(and...))
	}
	if p.HitsPerPage > 0 {
		opts = append(opts, opt.HitsPerPage(p.HitsPerPage))
	}
	if p.Page > 0 {
		opts = append(opts, opt.Page(p.Page))
	}

	res, err := i.idx.Search(query, opts...)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{Hits: res.Hits, NbHits: res.NbHits, Page: res.Page, HitsPerPage: res.HitsPerPage}, nil
}
