package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/config"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/engine"
	"github.com/kailas-cloud/searchsync/internal/engine/drivers"
	logpkg "github.com/kailas-cloud/searchsync/internal/logger"
	"github.com/kailas-cloud/searchsync/internal/metrics"
	"github.com/kailas-cloud/searchsync/internal/repository/record"
	natsbus "github.com/kailas-cloud/searchsync/internal/transport/nats"
	"github.com/kailas-cloud/searchsync/internal/usecase/changesync"
	"github.com/kailas-cloud/searchsync/internal/usecase/dispatch"
	healthuc "github.com/kailas-cloud/searchsync/internal/usecase/health"
	indexuc "github.com/kailas-cloud/searchsync/internal/usecase/index"
	searchuc "github.com/kailas-cloud/searchsync/internal/usecase/search"
	"github.com/kailas-cloud/searchsync/internal/version"
)

// recordStore is what the composition root needs from a record store.
type recordStore interface {
	engine.Fetcher
	engine.Cursor
	engine.Scanner
	Ping(ctx context.Context) error
}

// app is the composition root shared by every command.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	models   *model.Catalog
	records  recordStore
	engines  *engine.Manager
	engine   engine.Engine
	bus      *natsbus.Bus
	executor *dispatch.Executor
	sync     *changesync.Service
	loader   *changesync.Loader
	search   *searchuc.Service
	index    *indexuc.Service
	health   *healthuc.Service
	closers  []func() error
}

// newApp loads configuration and builds every service. The NATS connection
// is opened only when withQueue is set and the nats queue is configured.
func newApp(ctx context.Context, opts *rootOptions, withQueue bool) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(opts.env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.build(ctx, withQueue); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context, withQueue bool) error {
	cfg := a.cfg

	a.logger.Info("Starting searchsync",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("engine", cfg.Engine.Driver),
		zap.String("queue", cfg.Queue.Driver),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Register engine and sync metrics explicitly (no init())
	metrics.RegisterSyncMetrics()

	built, err := cfg.BuildModels()
	if err != nil {
		return fmt.Errorf("failed to build models: %w", err)
	}
	if a.models, err = model.NewCatalog(built...); err != nil {
		return fmt.Errorf("failed to build model catalog: %w", err)
	}

	if err := a.openRecords(ctx); err != nil {
		return err
	}

	a.engines = drivers.NewManager(cfg.Engine, drivers.Deps{Records: a.records, Models: a.models}, a.logger)
	a.closers = append(a.closers, a.engines.Close)
	if a.engine, err = a.engines.Default(ctx); err != nil {
		return fmt.Errorf("failed to create search engine: %w", err)
	}

	a.executor = dispatch.NewExecutor(a.engine, a.records, a.logger)
	queue, err := a.openQueue(withQueue)
	if err != nil {
		return err
	}

	decider := changesync.NewDecider(changesync.NewRegistry(), a.models, cfg.Engine.SoftDelete)
	bridge := dispatch.NewBridge(queue, dispatch.Options{AfterCommit: cfg.Queue.AfterCommit})
	a.sync = changesync.New(decider, bridge, a.logger)
	a.loader = changesync.NewLoader(a.sync, a.models, a.records, a.logger)

	a.search = searchuc.New(a.engine, a.records, a.models)
	a.index = indexuc.New(a.engine, a.records, a.models, indexuc.Options{
		SearchableChunk:   cfg.Engine.Chunk.Searchable,
		UnsearchableChunk: cfg.Engine.Chunk.Unsearchable,
		Concurrency:       cfg.Engine.Concurrency,
		SoftDelete:        cfg.Engine.SoftDelete,
	}, a.logger)

	// Pass a nil interface, not a typed nil pointer, when units run inline.
	var queueChecker healthuc.QueueChecker
	if a.bus != nil {
		queueChecker = a.bus
	}
	var enginePinger healthuc.EnginePinger
	if p, ok := engine.PingerOf(a.engine); ok {
		enginePinger = p
	}
	a.health = healthuc.New(a.records, queueChecker, enginePinger)

	return nil
}

func (a *app) openRecords(ctx context.Context) error {
	db := a.cfg.Database
	switch db.Driver {
	case config.DatabaseSQLite:
		s, err := record.OpenSQLite(db.DSN, a.models)
		if err != nil {
			return fmt.Errorf("failed to open sqlite: %w", err)
		}
		a.records = s
		a.closers = append(a.closers, s.Close)
	default:
		pool, err := pgxpool.New(ctx, db.DSN)
		if err != nil {
			return fmt.Errorf("failed to create postgres pool: %w", err)
		}
		a.records = record.NewPostgres(pool, a.models)
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
	}
	a.logger.Info("Record store ready", zap.String("driver", db.Driver))
	return nil
}

func (a *app) openQueue(withQueue bool) (dispatch.Queue, error) {
	q := a.cfg.Queue
	if !withQueue || q.Driver != config.QueueNATS {
		return dispatch.NewInline(a.executor), nil
	}

	bus, err := natsbus.Connect(q.NATS.URL, "searchsync", a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	a.bus = bus
	a.closers = append(a.closers, bus.Close)

	if err := bus.EnsureStream(q.NATS.Stream, q.NATS.Subject); err != nil {
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}
	return dispatch.NewJetStream(bus, q.NATS.Subject, a.logger), nil
}

// startWorker consumes queued units. The returned func unsubscribes.
func (a *app) startWorker() (func() error, error) {
	if a.bus == nil {
		return nil, errors.New("worker requires queue.driver nats")
	}
	q := a.cfg.Queue.NATS
	w := dispatch.NewWorker(a.bus, a.executor, q.Subject, q.Group, a.logger)
	stop, err := w.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	a.logger.Info("Worker started", zap.String("subject", q.Subject), zap.String("group", q.Group))
	return stop, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
