package searchsync

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/config"
	"github.com/kailas-cloud/searchsync/internal/repository/record"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	engine config.EngineConfig

	records    RecordStore
	pgDB       record.DB
	sqliteDB   *sql.DB
	models     []*Model
	predicates map[string]Predicate

	publisher   Publisher
	subject     string
	afterCommit bool

	logger     *slog.Logger
	zapLogger  *zap.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		engine: config.EngineConfig{
			Driver:      config.DriverNull,
			Chunk:       config.ChunkConfig{Searchable: 500, Unsearchable: 500},
			Concurrency: 4,
		},
		predicates: make(map[string]Predicate),
		subject:    "searchsync.units",
	}
}

// WithMemory keeps indexes in process memory. Intended for tests.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.engine.Driver = config.DriverMemory
	})
}

// WithNull discards every write and returns no hits.
func WithNull() Option {
	return optionFunc(func(c *clientConfig) {
		c.engine.Driver = config.DriverNull
	})
}

// WithCollection searches the record store directly without an external index.
func WithCollection() Option {
	return optionFunc(func(c *clientConfig) {
		c.engine.Driver = config.DriverCollection
	})
}

// WithDatabase runs searches as SQL against the record store.
func WithDatabase() Option {
	return optionFunc(func(c *clientConfig) {
		c.engine.Driver = config.DriverDatabase
	})
}

// WithBleve uses an embedded bleve index. An empty dir keeps indexes in memory.
func WithBleve(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.engine.Driver = config.DriverBleve
		c.engine.Bleve.Dir = dir
	})
}

// WithMeilisearch connects to a Meilisearch server.
func WithMeilisearch(host, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.engine.Driver = config.DriverMeilisearch
		c.engine.Meilisearch = config.MeilisearchConfig{Host: host, APIKey: apiKey}
	})
}

// WithTypesense connects to a Typesense server. queryBy maps a collection
// to its comma-separated query_by fields.
func WithTypesense(url, apiKey string, timeout time.Duration, queryBy map[string]string) Option {
	return optionFunc(func(c *clientConfig) {
		c.engine.Driver = config.DriverTypesense
		c.engine.Typesense = config.TypesenseConfig{
			URL:        url,
			APIKey:     apiKey,
			TimeoutSec: max(int(timeout/time.Second), 1),
			QueryBy:    queryBy,
		}
	})
}

// WithAlgolia uses the Algolia hosted service.
func WithAlgolia(appID, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.engine.Driver = config.DriverAlgolia
		c.engine.Algolia = config.AlgoliaConfig{AppID: appID, APIKey: apiKey}
	})
}

// WithValkey uses Valkey or Redis with the search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.engine.Driver = config.DriverValkey
		c.engine.Valkey = config.ValkeyConfig{Addrs: []string{addr}, Password: password, ReadinessTimeout: 10}
	})
}

// WithSoftDelete keeps trashed records indexed with a marker field.
func WithSoftDelete() Option {
	return optionFunc(func(c *clientConfig) {
		c.engine.SoftDelete = true
	})
}

// WithChunkSize sets import and removal batch sizes. Default: 500 each.
func WithChunkSize(searchable, unsearchable int) Option {
	return optionFunc(func(c *clientConfig) {
		if searchable > 0 {
			c.engine.Chunk.Searchable = searchable
		}
		if unsearchable > 0 {
			c.engine.Chunk.Unsearchable = unsearchable
		}
	})
}

// WithConcurrency caps in-flight import batches. Default: 4.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		if n > 0 {
			c.engine.Concurrency = n
		}
	})
}

// WithRecords sets a custom record store.
func WithRecords(s RecordStore) Option {
	return optionFunc(func(c *clientConfig) {
		c.records = s
	})
}

// WithPostgres reads records through a pgx pool.
func WithPostgres(db record.DB) Option {
	return optionFunc(func(c *clientConfig) {
		c.pgDB = db
	})
}

// WithSQLite reads records through an open database/sql handle.
func WithSQLite(db *sql.DB) Option {
	return optionFunc(func(c *clientConfig) {
		c.sqliteDB = db
	})
}

// WithModels registers the indexable models.
func WithModels(models ...*Model) Option {
	return optionFunc(func(c *clientConfig) {
		c.models = append(c.models, models...)
	})
}

// WithPredicate overrides the reindex decision for one model's updates.
func WithPredicate(modelType string, p Predicate) Option {
	return optionFunc(func(c *clientConfig) {
		c.predicates[modelType] = p
	})
}

// WithPublisher sends units of work to a bus instead of running them inline.
// Run a worker with Client.Work to consume them.
func WithPublisher(pub Publisher, subject string) Option {
	return optionFunc(func(c *clientConfig) {
		c.publisher = pub
		if subject != "" {
			c.subject = subject
		}
	})
}

// WithAfterCommit holds units dispatched under BeginTx until Commit.
func WithAfterCommit() Option {
	return optionFunc(func(c *clientConfig) {
		c.afterCommit = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithZapLogger sets the logger used by the sync pipeline and engines.
func WithZapLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.zapLogger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
