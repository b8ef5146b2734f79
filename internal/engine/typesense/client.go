package typesense

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/typesense/typesense-go/typesense"
	"github.com/typesense/typesense-go/typesense/api"
	"github.com/typesense/typesense-go/typesense/api/pointer"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

// SearchParams is a Typesense search request.
type SearchParams struct {
	Q        string
	QueryBy  string
	FilterBy string
	SortBy   string
	Page     int
	PerPage  int
}

// SearchResponse is the part of a Typesense search response the engine reads.
type SearchResponse struct {
	// Hits are documents with text_match merged in.
	Hits  []map[string]any
	Found int
	Page  int
}

// FieldSchema declares one collection field.
type FieldSchema struct {
	Name     string
	Type     string
	Facet    bool
	Sort     bool
	Optional bool
}

// deleteBatch caps the ids packed into one filter_by delete.
const deleteBatch = 250

// Client is the part of the Typesense API the engine drives.
// Missing collections surface as domain.ErrNotFound, existing ones on
// create as domain.ErrAlreadyExists.
type Client interface {
	Import(ctx context.Context, collection string, docs []map[string]any) error
	// DeleteByIDs removes documents by id. Unknown ids are ignored.
	DeleteByIDs(ctx context.Context, collection string, ids []string) error
	Search(ctx context.Context, collection string, params SearchParams) (*SearchResponse, error)
	CreateCollection(ctx context.Context, name string, fields []FieldSchema) error
	// CollectionFields returns the schema of an existing collection.
	CollectionFields(ctx context.Context, name string) ([]FieldSchema, error)
	DeleteCollection(ctx context.Context, name string) error
}

type sdkClient struct {
	client *typesense.Client
}

// NewClient connects to a Typesense server.
func NewClient(url, apiKey string, timeout time.Duration) Client {
	return &sdkClient{client: typesense.NewClient(
		typesense.WithServer(url),
		typesense.WithAPIKey(apiKey),
		typesense.WithConnectionTimeout(timeout),
	)}
}

func (c *sdkClient) Import(ctx context.Context, collection string, docs []map[string]any) error {
	batch := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		batch = append(batch, d)
	}
	params := &api.ImportDocumentsParams{Action: pointer.String("upsert")}
	resp, err := c.client.Collection(collection).Documents().Import(ctx, batch, params)
	if err != nil {
		return translate(err)
	}
	for _, r := range resp {
		if r != nil && !r.Success {
			return fmt.Errorf("import document: %s", r.Error)
		}
	}
	return nil
}

func (c *sdkClient) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	for start := 0; start < len(ids); start += deleteBatch {
		end := min(start+deleteBatch, len(ids))
		params := &api.DeleteDocumentsParams{FilterBy: pointer.String(idFilter(ids[start:end]))}
		if _, err := c.client.Collection(collection).Documents().Delete(ctx, params); err != nil {
			return translate(err)
		}
	}
	return nil
}

// idFilter renders id:[`a`,`b`]. Backticks keep commas and colons in ids literal.
func idFilter(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = "`" + strings.ReplaceAll(id, "`", "") + "`"
	}
	return idField + ":[" + strings.Join(quoted, ",") + "]"
}

func (c *sdkClient) Search(ctx context.Context, collection string, p SearchParams) (*SearchResponse, error) {
	params := &api.SearchCollectionParams{Q: p.Q, QueryBy: p.QueryBy}
	if p.FilterBy != "" {
		params.FilterBy = pointer.String(p.FilterBy)
	}
	if p.SortBy != "" {
		params.SortBy = pointer.String(p.SortBy)
	}
	if p.Page > 0 {
		params.Page = pointer.Int(p.Page)
	}
	if p.PerPage > 0 {
		params.PerPage = pointer.Int(p.PerPage)
	}

	res, err := c.client.Collection(collection).Documents().Search(ctx, params)
	if err != nil {
		return nil, translate(err)
	}

	out := &SearchResponse{Hits: []map[string]any{}, Page: p.Page}
	if res.Found != nil {
		out.Found = *res.Found
	}
	if res.Hits == nil {
		return out, nil
	}
	for _, h := range *res.Hits {
		if h.Document == nil {
			continue
		}
		doc := make(map[string]any, len(*h.Document)+1)
		for k, v := range *h.Document {
			doc[k] = v
		}
		if h.TextMatch != nil {
			doc[textMatchField] = *h.TextMatch
		}
		out.Hits = append(out.Hits, doc)
	}
	return out, nil
}

func (c *sdkClient) CreateCollection(ctx context.Context, name string, fields []FieldSchema) error {
	schema := &api.CollectionSchema{Name: name, Fields: make([]api.Field, 0, len(fields))}
	for _, f := range fields {
		af := api.Field{Name: f.Name, Type: f.Type}
		if f.Facet {
			af.Facet = pointer.True()
		}
		if f.Sort {
			af.Sort = pointer.True()
		}
		if f.Optional {
			af.Optional = pointer.True()
		}
		schema.Fields = append(schema.Fields, af)
	}
	_, err := c.client.Collections().Create(ctx, schema)
	return translate(err)
}

func (c *sdkClient) CollectionFields(ctx context.Context, name string) ([]FieldSchema, error) {
	resp, err := c.client.Collection(name).Retrieve(ctx)
	if err != nil {
		return nil, translate(err)
	}
	fields := make([]FieldSchema, 0, len(resp.Fields))
	for _, f := range resp.Fields {
		fields = append(fields, FieldSchema{
			Name:     f.Name,
			Type:     f.Type,
			Facet:    f.Facet != nil && *f.Facet,
			Sort:     f.Sort != nil && *f.Sort,
			Optional: f.Optional != nil && *f.Optional,
		})
	}
	return fields, nil
}

func (c *sdkClient) DeleteCollection(ctx context.Context, name string) error {
	_, err := c.client.Collection(name).Delete(ctx)
	return translate(err)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var he *typesense.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	switch he.Status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case http.StatusConflict:
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)
	default:
		return err
	}
}
