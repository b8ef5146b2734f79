package index

import (
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/engine"
)

// Engine is the engine surface bulk operations need.
type Engine interface {
	engine.Updater
	engine.Deleter
	engine.IndexManager
}

// Catalog resolves model descriptors.
type Catalog interface {
	Get(name string) (*model.Model, error)
}
