// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Dataset, Tokenizer, Index, Search, Server, Redis, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Stemmer names accepted by TokenizerConfig.Stemmer.
const (
	StemmerPorter   = "porter"
	StemmerSnowball = "snowball"
	StemmerNone     = "none"
)

// Snapshot backends accepted by IndexConfig.Backend.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Search modes and match fields accepted by SearchConfig.
const (
	ModeScan = "scan"
	ModeBM25 = "bm25"

	MatchTitle            = "title"
	MatchTitleDescription = "title_description"
)

// Config is the top-level application configuration.
type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// DatasetConfig points at the movie dataset and the stopword list.
type DatasetConfig struct {
	MoviesPath    string `yaml:"moviesPath"`
	StopwordsPath string `yaml:"stopwordsPath"`
}

// TokenizerConfig selects the stemming algorithm. It must be identical for
// build and search.
type TokenizerConfig struct {
	Stemmer          string `yaml:"stemmer"`
	DisableStopwords bool   `yaml:"disableStopwords"`
}

// IndexConfig controls where index snapshots are persisted.
type IndexConfig struct {
	CacheDir string `yaml:"cacheDir"`
	Backend  string `yaml:"backend"`
}

// SearchConfig controls query execution defaults.
type SearchConfig struct {
	DefaultLimit int    `yaml:"defaultLimit"`
	MaxResults   int    `yaml:"maxResults"`
	Mode         string `yaml:"mode"`
	MatchFields  string `yaml:"matchFields"`
}

// ServerConfig holds HTTP server settings for the serve command.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit   int      `yaml:"rateLimit"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SQLiteConfig holds the SQLite database path.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings for search analytics.
type KafkaConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Brokers        []string      `yaml:"brokers"`
	AnalyticsTopic string        `yaml:"analyticsTopic"`
	BufferSize     int           `yaml:"bufferSize"`
	BatchSize      int           `yaml:"batchSize"`
	FlushInterval  time.Duration `yaml:"flushInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects enum values the rest of the program does not understand.
func (c *Config) Validate() error {
	switch c.Tokenizer.Stemmer {
	case StemmerPorter, StemmerSnowball, StemmerNone:
	default:
		return fmt.Errorf("invalid tokenizer.stemmer %q", c.Tokenizer.Stemmer)
	}
	switch c.Index.Backend {
	case BackendFile, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("invalid index.backend %q", c.Index.Backend)
	}
	switch c.Search.Mode {
	case ModeScan, ModeBM25:
	default:
		return fmt.Errorf("invalid search.mode %q", c.Search.Mode)
	}
	switch c.Search.MatchFields {
	case MatchTitle, MatchTitleDescription:
	default:
		return fmt.Errorf("invalid search.matchFields %q", c.Search.MatchFields)
	}
	if c.Search.DefaultLimit < 0 {
		return fmt.Errorf("search.defaultLimit must not be negative")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			MoviesPath:    "data/data.json",
			StopwordsPath: "data/stopwords.txt",
		},
		Tokenizer: TokenizerConfig{
			Stemmer: StemmerPorter,
		},
		Index: IndexConfig{
			CacheDir: "cache",
			Backend:  BackendFile,
		},
		Search: SearchConfig{
			DefaultLimit: 5,
			MaxResults:   100,
			Mode:         ModeScan,
			MatchFields:  MatchTitle,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "moviesearch",
			User:            "moviesearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "cache/snapshots.db",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:        []string{"localhost:9092"},
			AnalyticsTopic: "movie-search-events",
			BufferSize:     10000,
			BatchSize:      100,
			FlushInterval:  5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// applyEnvOverrides reads MS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MS_DATASET_MOVIES_PATH"); v != "" {
		cfg.Dataset.MoviesPath = v
	}
	if v := os.Getenv("MS_DATASET_STOPWORDS_PATH"); v != "" {
		cfg.Dataset.StopwordsPath = v
	}
	if v := os.Getenv("MS_TOKENIZER_STEMMER"); v != "" {
		cfg.Tokenizer.Stemmer = v
	}
	if v := os.Getenv("MS_INDEX_CACHE_DIR"); v != "" {
		cfg.Index.CacheDir = v
	}
	if v := os.Getenv("MS_INDEX_BACKEND"); v != "" {
		cfg.Index.Backend = v
	}
	if v := os.Getenv("MS_SEARCH_DEFAULT_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Search.DefaultLimit = limit
		}
	}
	if v := os.Getenv("MS_SEARCH_MODE"); v != "" {
		cfg.Search.Mode = v
	}
	if v := os.Getenv("MS_SEARCH_MATCH_FIELDS"); v != "" {
		cfg.Search.MatchFields = v
	}
	if v := os.Getenv("MS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("MS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("MS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("MS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("MS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("MS_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("MS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("MS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("MS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("MS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
