package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Engine drivers.
const (
	DriverMeilisearch = "meilisearch"
	DriverTypesense   = "typesense"
	DriverAlgolia     = "algolia"
	DriverValkey      = "valkey"
	DriverBleve       = "bleve"
	DriverCollection  = "collection"
	DriverDatabase    = "database"
	DriverMemory      = "memory"
	DriverNull        = "null"
)

// Queue drivers.
const (
	QueueSync = "sync"
	QueueNATS = "nats"
)

// Database drivers.
const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Config holds the searchsync configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Engine   EngineConfig   `yaml:"engine"`
	Queue    QueueConfig    `yaml:"queue"`
	Database DatabaseConfig `yaml:"database"`
	Models   []ModelConfig  `yaml:"models"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EngineConfig selects and configures the search backend.
type EngineConfig struct {
	Driver string `yaml:"driver"`
	// Prefix is prepended to every model index name.
	Prefix string `yaml:"prefix"`
	// SoftDelete keeps trashed records indexed with a marker field.
	SoftDelete  bool              `yaml:"soft_delete"`
	Chunk       ChunkConfig       `yaml:"chunk"`
	Concurrency int               `yaml:"concurrency"`
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
	Typesense   TypesenseConfig   `yaml:"typesense"`
	Algolia     AlgoliaConfig     `yaml:"algolia"`
	Valkey      ValkeyConfig      `yaml:"valkey"`
	Bleve       BleveConfig       `yaml:"bleve"`
}

// ChunkConfig sets bulk import and removal batch sizes.
type ChunkConfig struct {
	Searchable   int `yaml:"searchable"`
	Unsearchable int `yaml:"unsearchable"`
}

// MeilisearchConfig holds Meilisearch connection settings.
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
}

// TypesenseConfig holds Typesense connection settings.
type TypesenseConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
	// QueryBy maps a collection to its comma-separated query_by fields.
	QueryBy map[string]string `yaml:"query_by"`
}

// AlgoliaConfig holds Algolia credentials.
type AlgoliaConfig struct {
	AppID  string `yaml:"app_id"`
	APIKey string `yaml:"api_key"`
}

// ValkeyConfig holds Valkey/Redis connection settings.
type ValkeyConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	MaxResults       int      `yaml:"max_results"`
}

// BleveConfig holds embedded index settings. An empty Dir keeps indexes in memory.
type BleveConfig struct {
	Dir        string `yaml:"dir"`
	MaxResults int    `yaml:"max_results"`
}

// QueueConfig selects how sync work is dispatched.
type QueueConfig struct {
	Driver string `yaml:"driver"` // sync, nats (default: sync)
	// AfterCommit defers units until the surrounding transaction commits.
	AfterCommit bool       `yaml:"after_commit"`
	NATS        NATSConfig `yaml:"nats"`
}

// NATSConfig holds JetStream settings.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
	Group   string `yaml:"group"`
}

// DatabaseConfig holds record store settings.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres, sqlite (default: postgres)
	DSN    string `yaml:"dsn"`
}

// ModelConfig declares one indexable model.
type ModelConfig struct {
	Name             string         `yaml:"name"`
	Table            string         `yaml:"table"`
	Key              string         `yaml:"key"`
	Index            string         `yaml:"index"`
	Searchable       []string       `yaml:"searchable"`
	Fields           []FieldConfig  `yaml:"fields"`
	SoftDeleteColumn string         `yaml:"soft_delete_column"`
	CreatedAtColumn  string         `yaml:"created_at_column"`
	PerPage          int            `yaml:"per_page"`
	SearchableIf     map[string]any `yaml:"searchable_if"`
	ReindexOn        []string       `yaml:"reindex_on"`
}

// FieldConfig declares a typed index field.
type FieldConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // text, tag, numeric, bool
	Sortable bool   `yaml:"sortable"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Engine.Driver == "" {
		c.Engine.Driver = DriverNull
	}
	if c.Engine.Chunk.Searchable <= 0 {
		c.Engine.Chunk.Searchable = 500
	}
	if c.Engine.Chunk.Unsearchable <= 0 {
		c.Engine.Chunk.Unsearchable = 500
	}
	if c.Engine.Concurrency <= 0 {
		c.Engine.Concurrency = 4
	}
	if c.Engine.Typesense.TimeoutSec <= 0 {
		c.Engine.Typesense.TimeoutSec = 5
	}
	if c.Engine.Valkey.ReadinessTimeout <= 0 {
		c.Engine.Valkey.ReadinessTimeout = 10
	}
	if c.Queue.Driver == "" {
		c.Queue.Driver = QueueSync
	}
	if c.Queue.NATS.Stream == "" {
		c.Queue.NATS.Stream = "SEARCHSYNC"
	}
	if c.Queue.NATS.Subject == "" {
		c.Queue.NATS.Subject = "searchsync.units"
	}
	if c.Queue.NATS.Group == "" {
		c.Queue.NATS.Group = "searchsync-workers"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DatabasePostgres
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	switch c.Queue.Driver {
	case QueueSync:
	case QueueNATS:
		if c.Queue.NATS.URL == "" {
			return fmt.Errorf("queue.nats.url is required for the nats queue")
		}
	default:
		return fmt.Errorf("queue.driver must be %q or %q, got %q", QueueSync, QueueNATS, c.Queue.Driver)
	}
	switch c.Database.Driver {
	case DatabasePostgres, DatabaseSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DatabasePostgres, DatabaseSQLite, c.Database.Driver)
	}
	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("models[%d].name is required", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("models[%d]: duplicate model %q", i, m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

func (c *Config) validateEngine() error {
	e := c.Engine
	switch e.Driver {
	case DriverMeilisearch:
		if e.Meilisearch.Host == "" {
			return fmt.Errorf("engine.meilisearch.host is required")
		}
	case DriverTypesense:
		if e.Typesense.URL == "" {
			return fmt.Errorf("engine.typesense.url is required")
		}
	case DriverAlgolia:
		if e.Algolia.AppID == "" || e.Algolia.APIKey == "" {
			return fmt.Errorf("engine.algolia.app_id and engine.algolia.api_key are required")
		}
	case DriverValkey:
		if len(e.Valkey.Addrs) == 0 {
			return fmt.Errorf("engine.valkey.addrs is required")
		}
	case DriverBleve, DriverCollection, DriverDatabase, DriverMemory, DriverNull:
	default:
		return fmt.Errorf("engine.driver %q is not supported", e.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
