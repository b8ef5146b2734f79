package search

import (
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

// Engine runs queries and maps hits back to records.
type Engine interface {
	engine.Searcher
	engine.Mapper
}

// Records loads the rows behind search hits.
type Records interface {
	engine.Fetcher
	engine.Cursor
}

// Catalog resolves model descriptors.
type Catalog interface {
	Get(name string) (*model.Model, error)
}
