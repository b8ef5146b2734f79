package meilisearch

import (
	"context"
	"encoding/json"

	meili "github.com/meilisearch/meilisearch-go"
)

// Index is the part of a Meilisearch index the engine drives.
type Index interface {
	AddDocuments(ctx context.Context, docs []map[string]any, primaryKey string) error
	DeleteDocuments(ctx context.Context, keys []string) error
	DeleteAllDocuments(ctx context.Context) error
	// Search returns the undecoded response body.
	Search(ctx context.Context, term string, params *meili.SearchRequest) (json.RawMessage, error)
}

// Client opens indexes and manages their lifecycle.
type Client interface {
	Index(uid string) Index
	CreateIndex(ctx context.Context, uid, primaryKey string) error
	// Configure sets the filterable and sortable attributes of an index.
	Configure(ctx context.Context, uid string, filterable, sortable []string) error
	DeleteIndex(ctx context.Context, uid string) error
}

type sdkClient struct {
	sm meili.ServiceManager
}

// NewClient connects to a Meilisearch server.
func NewClient(host, apiKey string) Client {
	return &sdkClient{sm: meili.New(host, meili.WithAPIKey(apiKey))}
}

func (c *sdkClient) Index(uid string) Index {
	return &sdkIndex{idx: c.sm.Index(uid)}
}

func (c *sdkClient) CreateIndex(_ context.Context, uid, primaryKey string) error {
	_, err := c.sm.CreateIndex(&meili.IndexConfig{Uid: uid, PrimaryKey: primaryKey})
	return err
}

func (c *sdkClient) Configure(_ context.Context, uid string, filterable, sortable []string) error {
	idx := c.sm.Index(uid)
	if len(filterable) > 0 {
		if _, err := idx.UpdateFilterableAttributes(&filterable); err != nil {
			return err
		}
	}
	if len(sortable) > 0 {
		if _, err := idx.UpdateSortableAttributes(&sortable); err != nil {
			return err
		}
	}
	return nil
}

func (c *sdkClient) DeleteIndex(_ context.Context, uid string) error {
	_, err := c.sm.DeleteIndex(uid)
	return err
}

type sdkIndex struct {
	idx meili.IndexManager
}

func (i *sdkIndex) AddDocuments(_ context.Context, docs []map[string]any, primaryKey string) error {
	_, err := i.idx.AddDocuments(docs, primaryKey)
	return err
}

func (i *sdkIndex) DeleteDocuments(_ context.Context, keys []string) error {
	_, err := i.idx.DeleteDocuments(keys)
	return err
}

func (i *sdkIndex) DeleteAllDocuments(context.Context) error {
	_, err := i.idx.DeleteAllDocuments()
	return err
}

func (i *sdkIndex) Search(_ context.Context, term string, params *meili.SearchRequest) (json.RawMessage, error) {
	raw, err := i.idx.SearchRaw(term, params)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return *raw, nil
}
