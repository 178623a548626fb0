package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWorkers         = 4
	DefaultFetchTimeout    = 30 * time.Second
	DefaultBackend         = BackendFile
	DefaultFileRoot        = "./data/cache"
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultRedisAddr       = "localhost:6379"
	DefaultRedisPrefix     = "spreadcache"
	DefaultRedisLockTTL    = 30 * time.Second
	DefaultMongoURI        = "mongodb://localhost:27017"
	DefaultMongoDatabase   = "spreadcache"
	DefaultMongoCollection = "series"
	DefaultProvider        = ProviderHTTP
	DefaultRestURL         = "http://localhost:8080/v1"
	DefaultAPITimeout      = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryBackoff    = 1 * time.Second
	DefaultWarmInterval    = 1 * time.Hour
	DefaultLookbackDays    = 365
	DefaultWarmConcurrency = 4
	DefaultWarmTimeout     = 5 * time.Minute
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
)

// ApplyDefaults fills every unset optional field.
func (c *Config) ApplyDefaults() {
	// Cache defaults
	if c.Cache.Workers == 0 {
		c.Cache.Workers = DefaultWorkers
	}
	if c.Cache.FetchTimeout == 0 {
		c.Cache.FetchTimeout = DefaultFetchTimeout
	}

	// Store defaults
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultBackend
	}
	if c.Store.File.Root == "" {
		c.Store.File.Root = DefaultFileRoot
	}
	applyDBDefaults(&c.Store.Postgres)
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = DefaultRedisAddr
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = DefaultRedisPrefix
	}
	if c.Store.Redis.LockTTL == 0 {
		c.Store.Redis.LockTTL = DefaultRedisLockTTL
	}
	if c.Store.Mongo.URI == "" {
		c.Store.Mongo.URI = DefaultMongoURI
	}
	if c.Store.Mongo.Database == "" {
		c.Store.Mongo.Database = DefaultMongoDatabase
	}
	if c.Store.Mongo.Collection == "" {
		c.Store.Mongo.Collection = DefaultMongoCollection
	}

	// Upstream defaults
	if c.Upstream.Provider == "" {
		c.Upstream.Provider = DefaultProvider
	}
	if c.Upstream.RestURL == "" {
		c.Upstream.RestURL = DefaultRestURL
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultAPITimeout
	}
	if c.Upstream.MaxRetries == 0 {
		c.Upstream.MaxRetries = DefaultMaxRetries
	}
	if c.Upstream.RetryBackoff == 0 {
		c.Upstream.RetryBackoff = DefaultRetryBackoff
	}

	// Warmer defaults
	if c.Warmer.Interval == 0 {
		c.Warmer.Interval = DefaultWarmInterval
	}
	if c.Warmer.LookbackDays == 0 {
		c.Warmer.LookbackDays = DefaultLookbackDays
	}
	if c.Warmer.Concurrency == 0 {
		c.Warmer.Concurrency = DefaultWarmConcurrency
	}
	if c.Warmer.Timeout == 0 {
		c.Warmer.Timeout = DefaultWarmTimeout
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
