// Package drivers registers the built-in engine drivers with a manager.
package drivers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/config"
	dbvalkey "github.com/kailas-cloud/searchsync/internal/db/valkey"
	"github.com/kailas-cloud/searchsync/internal/engine"
	"github.com/kailas-cloud/searchsync/internal/engine/algolia"
	"github.com/kailas-cloud/searchsync/internal/engine/bleve"
	"github.com/kailas-cloud/searchsync/internal/engine/collection"
	"github.com/kailas-cloud/searchsync/internal/engine/database"
	"github.com/kailas-cloud/searchsync/internal/engine/meilisearch"
	"github.com/kailas-cloud/searchsync/internal/engine/memory"
	"github.com/kailas-cloud/searchsync/internal/engine/null"
	"github.com/kailas-cloud/searchsync/internal/engine/typesense"
	"github.com/kailas-cloud/searchsync/internal/engine/valkey"
)

// Deps carries collaborators some drivers need.
type Deps struct {
	// Records backs the collection and database drivers. The database
	// driver needs it to run row queries too.
	Records engine.Scanner
	// Models resolves searchable columns for the database driver.
	Models database.Catalog
}

// NewManager creates a manager with every built-in driver registered and
// cfg.Driver as the default.
func NewManager(cfg config.EngineConfig, deps Deps, logger *zap.Logger) *engine.Manager {
	m := engine.NewManager(cfg.Driver, logger)
	Register(m, cfg, deps)
	return m
}

// Register adds the built-in drivers to m. Backends are dialled on first use.
func Register(m *engine.Manager, cfg config.EngineConfig, deps Deps) {
	opts := engine.Options{SoftDelete: cfg.SoftDelete}

	m.Extend(config.DriverMeilisearch, func(context.Context) (engine.Engine, error) {
		if cfg.Meilisearch.Host == "" {
			return nil, fmt.Errorf("meilisearch host is not configured")
		}
		return meilisearch.New(meilisearch.NewClient(cfg.Meilisearch.Host, cfg.Meilisearch.APIKey), opts), nil
	})

	m.Extend(config.DriverTypesense, func(context.Context) (engine.Engine, error) {
		if cfg.Typesense.URL == "" {
			return nil, fmt.Errorf("typesense url is not configured")
		}
		timeout := time.Duration(cfg.Typesense.TimeoutSec) * time.Second
		client := typesense.NewClient(cfg.Typesense.URL, cfg.Typesense.APIKey, timeout)
		return typesense.New(client, opts, typesense.Settings{QueryBy: cfg.Typesense.QueryBy}), nil
	})

	m.Extend(config.DriverAlgolia, func(context.Context) (engine.Engine, error) {
		if cfg.Algolia.AppID == "" {
			return nil, fmt.Errorf("algolia app id is not configured")
		}
		return algolia.New(algolia.NewClient(cfg.Algolia.AppID, cfg.Algolia.APIKey), opts), nil
	})

	m.Extend(config.DriverValkey, func(ctx context.Context) (engine.Engine, error) {
		store, err := dbvalkey.NewStore(dbvalkey.Config{Addrs: cfg.Valkey.Addrs, Password: cfg.Valkey.Password})
		if err != nil {
			return nil, fmt.Errorf("valkey store: %w", err)
		}
		timeout := time.Duration(cfg.Valkey.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, err
		}
		return valkey.New(store, opts, valkey.Settings{MaxResults: cfg.Valkey.MaxResults}), nil
	})

	m.Extend(config.DriverBleve, func(context.Context) (engine.Engine, error) {
		return bleve.New(opts, bleve.Settings{Dir: cfg.Bleve.Dir, MaxResults: cfg.Bleve.MaxResults}), nil
	})

	m.Extend(config.DriverCollection, func(context.Context) (engine.Engine, error) {
		if deps.Records == nil {
			return nil, fmt.Errorf("collection driver needs a record store")
		}
		return collection.New(deps.Records), nil
	})

	m.Extend(config.DriverDatabase, func(context.Context) (engine.Engine, error) {
		rows, ok := deps.Records.(engine.RowStore)
		if !ok || deps.Models == nil {
			return nil, fmt.Errorf("database driver needs a SQL record store and a model catalog")
		}
		return database.New(rows, deps.Models), nil
	})

	m.Extend(config.DriverMemory, func(context.Context) (engine.Engine, error) {
		return memory.New(opts), nil
	})

	m.Extend(config.DriverNull, func(context.Context) (engine.Engine, error) {
		return null.New(), nil
	})
}
