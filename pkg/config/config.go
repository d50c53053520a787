// Package config handles engine configuration via environment variables,
// mirroring the teacher's NEO4J_*/NORNICDB_* convention with a CORVID_*
// namespace (spec §11.3). All values have sensible defaults, so
// LoadFromEnv() can be called without any environment variables set.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corvid-graph/corvid/pkg/optimizer"
)

// Config holds every engine-tunable knob: optimizer pass toggles, the
// plan cache's size (a TTL is loaded but not applied), and storage/logging
// settings.
type Config struct {
	// Optimizer controls which of the five rewrite passes run and the
	// join-reorder enumeration budget (spec §4.5).
	Optimizer optimizer.Config

	// Cache controls the plan cache pkg/engine keeps in front of planning
	// + optimizing a normalized query string.
	Cache CacheConfig

	// Storage controls whether pkg/engine persists to disk via badger or
	// stays purely in-memory.
	Storage StorageConfig

	// Logging holds the logging settings. They are loaded and carried on
	// Config, but no package in this module reads them and nothing logs.
	Logging LoggingConfig
}

// CacheConfig tunes the compiled-plan cache. Enabled and Size are applied;
// TTL is loaded but nothing reads it, so cached plans never expire.
type CacheConfig struct {
	Enabled bool
	Size    int
	TTL     time.Duration
}

// StorageConfig selects and tunes the persistent engine backend.
type StorageConfig struct {
	PersistenceEnabled bool
	DataDir            string
}

// LoggingConfig mirrors the teacher's logging section (level, format,
// query-log toggle) without its HTTP/audit settings. The engine emits no
// logs, so these values have no effect.
type LoggingConfig struct {
	Level           string
	Format          string
	QueryLogEnabled bool
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults for anything unset. Variables follow Neo4j/NornicDB's
// convention, renamed to the CORVID_ namespace (spec §11.3):
//
//	CORVID_OPTIMIZER_FILTER_PUSHDOWN=true
//	CORVID_OPTIMIZER_JOIN_REORDER=true
//	CORVID_OPTIMIZER_PREDICATE_REORDER=true
//	CORVID_OPTIMIZER_REDUNDANT_TRAVERSAL_ELIMINATION=true
//	CORVID_OPTIMIZER_AGGREGATE_PUSHDOWN=true
//	CORVID_OPTIMIZER_REORDER_BUDGET=1000
//	CORVID_CACHE_ENABLED=true
//	CORVID_CACHE_SIZE=256
//	CORVID_CACHE_TTL=10m
//	CORVID_STORAGE_PERSISTENCE_ENABLED=false
//	CORVID_STORAGE_DATA_DIR=./data
//	CORVID_LOG_LEVEL=INFO
//	CORVID_LOG_FORMAT=json
//	CORVID_LOG_QUERY_ENABLED=false
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.Optimizer.FilterPushdown = getEnvBool("CORVID_OPTIMIZER_FILTER_PUSHDOWN", true)
	cfg.Optimizer.JoinReorder = getEnvBool("CORVID_OPTIMIZER_JOIN_REORDER", true)
	cfg.Optimizer.PredicateReorder = getEnvBool("CORVID_OPTIMIZER_PREDICATE_REORDER", true)
	cfg.Optimizer.RedundantTraversalElimination = getEnvBool("CORVID_OPTIMIZER_REDUNDANT_TRAVERSAL_ELIMINATION", true)
	cfg.Optimizer.AggregatePushdown = getEnvBool("CORVID_OPTIMIZER_AGGREGATE_PUSHDOWN", true)
	cfg.Optimizer.JoinReorderBudget = getEnvInt("CORVID_OPTIMIZER_REORDER_BUDGET", 1000)

	cfg.Cache.Enabled = getEnvBool("CORVID_CACHE_ENABLED", true)
	cfg.Cache.Size = getEnvInt("CORVID_CACHE_SIZE", 256)
	cfg.Cache.TTL = getEnvDuration("CORVID_CACHE_TTL", 10*time.Minute)

	cfg.Storage.PersistenceEnabled = getEnvBool("CORVID_STORAGE_PERSISTENCE_ENABLED", false)
	cfg.Storage.DataDir = getEnv("CORVID_STORAGE_DATA_DIR", "./data")

	cfg.Logging.Level = getEnv("CORVID_LOG_LEVEL", "INFO")
	cfg.Logging.Format = getEnv("CORVID_LOG_FORMAT", "json")
	cfg.Logging.QueryLogEnabled = getEnvBool("CORVID_LOG_QUERY_ENABLED", false)

	return cfg
}

// fileOverlay is the subset of Config a YAML file may override, one
// section at a time: a section the file omits (nil here) keeps
// LoadFromEnv's values, while a section the file names replaces that whole
// section, so any field the file leaves out of it takes its zero value.
type fileOverlay struct {
	Optimizer *optimizer.Config `yaml:"optimizer"`
	Cache     *CacheConfig      `yaml:"cache"`
	Storage   *StorageConfig    `yaml:"storage"`
	Logging   *LoggingConfig    `yaml:"logging"`
}

// LoadFromFile reads an optional YAML file and overlays it onto a
// LoadFromEnv() base, so deployments can keep most settings in env vars
// and override a handful from a checked-in file.
func LoadFromFile(path string) (*Config, error) {
	cfg := LoadFromEnv()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if overlay.Optimizer != nil {
		cfg.Optimizer = *overlay.Optimizer
	}
	if overlay.Cache != nil {
		cfg.Cache = *overlay.Cache
	}
	if overlay.Storage != nil {
		cfg.Storage = *overlay.Storage
	}
	if overlay.Logging != nil {
		cfg.Logging = *overlay.Logging
	}
	return cfg, nil
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	if c.Optimizer.JoinReorderBudget <= 0 {
		return fmt.Errorf("config: join-reorder budget must be positive, got %d", c.Optimizer.JoinReorderBudget)
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		return fmt.Errorf("config: cache size must be positive when caching is enabled, got %d", c.Cache.Size)
	}
	if c.Storage.PersistenceEnabled && c.Storage.DataDir == "" {
		return fmt.Errorf("config: storage data dir required when persistence is enabled")
	}
	return nil
}

// String returns a log-safe summary (no secrets exist in this config, but
// the shape mirrors the teacher's String() for consistency).
func (c *Config) String() string {
	return fmt.Sprintf("Config{optimizer: %+v, cache: %+v, storage: %+v}",
		c.Optimizer, c.Cache, c.Storage)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
