package searchsync

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/engine"
	"github.com/kailas-cloud/searchsync/internal/engine/drivers"
	"github.com/kailas-cloud/searchsync/internal/repository/record"
	"github.com/kailas-cloud/searchsync/internal/usecase/changesync"
	"github.com/kailas-cloud/searchsync/internal/usecase/dispatch"
	healthuc "github.com/kailas-cloud/searchsync/internal/usecase/health"
	indexuc "github.com/kailas-cloud/searchsync/internal/usecase/index"
	searchuc "github.com/kailas-cloud/searchsync/internal/usecase/search"
)

// Internal interfaces for substitution in tests.
type searchUseCase interface {
	Query(modelName, term string) (*request.Builder, error)
	Search(ctx context.Context, req *request.Request) ([]result.Item, error)
	RawResult(ctx context.Context, req *request.Request) (*result.Raw, error)
	Keys(ctx context.Context, req *request.Request) ([]string, error)
	Cursor(ctx context.Context, req *request.Request) iter.Seq2[result.Item, error]
	Paginate(ctx context.Context, req *request.Request, perPage, page int) (result.Page, error)
	PaginateRaw(ctx context.Context, req *request.Request, perPage, page int) (*result.Raw, error)
}

type indexUseCase interface {
	Import(ctx context.Context, modelName string) (int, error)
	Unimport(ctx context.Context, modelName string) (int, error)
	Flush(ctx context.Context, modelName string) error
	CreateIndex(ctx context.Context, modelName string) error
	DeleteIndex(ctx context.Context, modelName string) error
}

type syncUseCase interface {
	Handle(ctx context.Context, events ...changesync.Event) error
	Searchable(ctx context.Context, records ...domain.Record) error
	Unsearchable(ctx context.Context, records ...domain.Record) error
}

type loaderUseCase interface {
	Apply(ctx context.Context, modelName string, refs []changesync.Ref) error
}

type syncRegistry interface {
	Disable(modelType string)
	Enable(modelType string)
	Enabled(modelType string) bool
	Without(modelType string, fn func() error) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Client is the searchsync SDK entry point.
type Client struct {
	engines   *engine.Manager
	engine    engine.Engine
	runner    dispatch.Runner
	logger    *zap.Logger
	pinger    pinger
	searchSvc searchUseCase
	indexSvc  indexUseCase
	syncSvc   syncUseCase
	loader    loaderUseCase
	registry  syncRegistry
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. The provided context is used to dial the engine.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.models) == 0 {
		return nil, errors.New("searchsync: at least one model required (use WithModels)")
	}
	models, err := model.NewCatalog(cfg.models...)
	if err != nil {
		return nil, fmt.Errorf("searchsync: %w", err)
	}

	records, err := createRecords(cfg, models)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	logger := cfg.zapLogger
	if logger == nil {
		logger = zap.NewNop()
	}

	engines := engine.NewManager(cfg.engine.Driver, logger)
	drivers.Register(engines, cfg.engine, drivers.Deps{Records: records, Models: models})
	e, err := engines.Default(ctx)
	if err != nil {
		return nil, fmt.Errorf("searchsync: create engine: %w", err)
	}

	return wireClient(e, engines, records, models, cfg, obs, logger), nil
}

func createRecords(cfg *clientConfig, models *model.Catalog) (RecordStore, error) {
	switch {
	case cfg.records != nil:
		return cfg.records, nil
	case cfg.pgDB != nil:
		return record.NewPostgres(cfg.pgDB, models), nil
	case cfg.sqliteDB != nil:
		return record.NewSQLite(cfg.sqliteDB, models), nil
	default:
		return nil, errors.New("searchsync: record store required (use WithPostgres, WithSQLite or WithRecords)")
	}
}

func wireClient(
	e engine.Engine,
	engines *engine.Manager,
	records RecordStore,
	models *model.Catalog,
	cfg *clientConfig,
	obs *observer,
	logger *zap.Logger,
) *Client {
	executor := dispatch.NewExecutor(e, records, logger)

	var queue dispatch.Queue = dispatch.NewInline(executor)
	if cfg.publisher != nil {
		queue = dispatch.NewJetStream(cfg.publisher, cfg.subject, logger)
	}

	registry := changesync.NewRegistry()
	decider := changesync.NewDecider(registry, models, cfg.engine.SoftDelete)
	for name, p := range cfg.predicates {
		decider.WithPredicate(name, p)
	}
	syncSvc := changesync.New(decider, dispatch.NewBridge(queue, dispatch.Options{AfterCommit: cfg.afterCommit}), logger)

	indexSvc := indexuc.New(e, records, models, indexuc.Options{
		SearchableChunk:   cfg.engine.Chunk.Searchable,
		UnsearchableChunk: cfg.engine.Chunk.Unsearchable,
		Concurrency:       cfg.engine.Concurrency,
		SoftDelete:        cfg.engine.SoftDelete,
	}, logger)

	// Pass nil interfaces, not typed nil pointers, for absent checks.
	var p pinger = noopPinger{}
	if rp, ok := records.(pinger); ok {
		p = rp
	}
	var queueChecker healthuc.QueueChecker
	if qc, ok := cfg.publisher.(healthuc.QueueChecker); ok {
		queueChecker = qc
	}
	var enginePinger healthuc.EnginePinger
	if ep, ok := engine.PingerOf(e); ok {
		enginePinger = ep
	}

	return &Client{
		engines:   engines,
		engine:    e,
		runner:    executor,
		logger:    logger,
		pinger:    p,
		searchSvc: searchuc.New(e, records, models),
		indexSvc:  indexSvc,
		syncSvc:   syncSvc,
		loader:    changesync.NewLoader(syncSvc, models, records, logger),
		registry:  registry,
		healthSvc: healthuc.New(p, queueChecker, enginePinger),
		obs:       obs,
	}
}

// Close releases engine resources. The record store stays open.
func (c *Client) Close() error {
	if c.engines == nil {
		return nil
	}
	return c.engines.Close()
}

// Ping checks record store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", "", start, err) }()

	if err = c.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Native exposes the backend client for features the SDK cannot express.
func (c *Client) Native() any { return c.engine.Native() }

// Search returns the search service for a model.
func (c *Client) Search(modelName string) *SearchService {
	return &SearchService{model: modelName, svc: c.searchSvc, obs: c.obs}
}

// Sync returns the change synchronization service.
func (c *Client) Sync() *SyncService {
	return &SyncService{svc: c.syncSvc, loader: c.loader, registry: c.registry, obs: c.obs}
}

// Indexes returns the index management service.
func (c *Client) Indexes() *IndexService {
	return &IndexService{svc: c.indexSvc, obs: c.obs}
}

// BeginTx returns a context whose dispatches are held by tx until
// tx.Commit when the client was built WithAfterCommit.
func (c *Client) BeginTx(ctx context.Context) (context.Context, *Tx) {
	return dispatch.WithTx(ctx)
}

// Work consumes units published WithPublisher. The returned func unsubscribes.
func (c *Client) Work(sub Subscriber, subject, group string) (func() error, error) {
	stop, err := dispatch.NewWorker(sub, c.runner, subject, group, c.logger).Start()
	if err != nil {
		return nil, fmt.Errorf("searchsync: start worker: %w", err)
	}
	return stop, nil
}

// noopPinger reports healthy for stores that cannot be pinged.
type noopPinger struct{}

func (noopPinger) Ping(context.Context) error { return nil }
