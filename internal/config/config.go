package config

import "time"

// Store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

// Upstream providers.
const (
	ProviderHTTP    = "http"
	ProviderPolygon = "polygon"
)

// Config is the root configuration shared by the CLI and the warmer.
type Config struct {
	Cache    CacheConfig    `yaml:"cache"`
	Store    StoreConfig    `yaml:"store"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Warmer   WarmerConfig   `yaml:"warmer"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// CacheConfig holds request-path settings.
type CacheConfig struct {
	Workers      int           `yaml:"workers"`       // Max concurrent upstream calls per request
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // Per upstream call
}

// StoreConfig selects and configures the persisted store.
type StoreConfig struct {
	Backend  string      `yaml:"backend"`
	File     FileConfig  `yaml:"file"`
	Postgres DBConfig    `yaml:"postgres"`
	Redis    RedisConfig `yaml:"redis"`
	Mongo    MongoConfig `yaml:"mongo"`
}

// FileConfig holds the file store root.
type FileConfig struct {
	Root string `yaml:"root"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds the Redis store connection.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	LockTTL  time.Duration `yaml:"lock_ttl"` // Expiry of an abandoned write lock
}

// MongoConfig holds the MongoDB store connection.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// UpstreamConfig holds market-data provider settings.
type UpstreamConfig struct {
	Provider       string        `yaml:"provider"`
	RestURL        string        `yaml:"rest_url"`
	APIKey         string        `yaml:"api_key"`          // Sent as a bearer token
	KeyID          string        `yaml:"key_id"`           // Enables RSA-PSS signing with PrivateKeyPath
	PrivateKeyPath string        `yaml:"private_key_path"` // Path to RSA private key PEM file
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
	Polygon        PolygonConfig `yaml:"polygon"`
}

// PolygonConfig holds Polygon.io settings.
type PolygonConfig struct {
	APIKey   string `yaml:"api_key"`
	Adjusted bool   `yaml:"adjusted"`
}

// WarmerConfig holds scheduled pre-fetch settings.
type WarmerConfig struct {
	Interval     time.Duration `yaml:"interval"`
	LookbackDays int           `yaml:"lookback_days"`
	Concurrency  int           `yaml:"concurrency"`
	Timeout      time.Duration `yaml:"timeout"` // Per target
	Targets      []Target      `yaml:"targets"`
}

// Target is one ticker kept warm.
type Target struct {
	Ticker string   `yaml:"ticker"`
	Fields []string `yaml:"fields"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
