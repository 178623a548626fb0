package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks that all required fields are set and values are valid.
// Only the selected store backend and provider are checked.
func (c *Config) Validate() error {
	if c.Cache.Workers < 1 {
		return errors.New("cache.workers must be >= 1")
	}
	if c.Cache.FetchTimeout <= 0 {
		return errors.New("cache.fetch_timeout must be > 0")
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.File.Root == "" {
			return errors.New("store.file.root is required")
		}
	case BackendPostgres:
		if err := c.Store.Postgres.validate("store.postgres"); err != nil {
			return err
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required")
		}
		if c.Store.Redis.DB < 0 {
			return errors.New("store.redis.db must be >= 0")
		}
		if c.Store.Redis.LockTTL < time.Second {
			return errors.New("store.redis.lock_ttl must be at least 1s")
		}
	case BackendMongo:
		if c.Store.Mongo.URI == "" {
			return errors.New("store.mongo.uri is required")
		}
		if c.Store.Mongo.Database == "" || c.Store.Mongo.Collection == "" {
			return errors.New("store.mongo.database and store.mongo.collection are required")
		}
	default:
		return fmt.Errorf("store.backend must be one of file, postgres, redis, mongo, got %q", c.Store.Backend)
	}

	switch c.Upstream.Provider {
	case ProviderHTTP:
		if c.Upstream.RestURL == "" {
			return errors.New("upstream.rest_url is required")
		}
		if (c.Upstream.KeyID == "") != (c.Upstream.PrivateKeyPath == "") {
			return errors.New("upstream.key_id and upstream.private_key_path must be set together")
		}
	case ProviderPolygon:
		if c.Upstream.Polygon.APIKey == "" {
			return errors.New("upstream.polygon.api_key is required")
		}
	default:
		return fmt.Errorf("upstream.provider must be http or polygon, got %q", c.Upstream.Provider)
	}
	if c.Upstream.MaxRetries < 0 {
		return errors.New("upstream.max_retries must be >= 0")
	}

	if c.Warmer.Concurrency < 1 {
		return errors.New("warmer.concurrency must be >= 1")
	}
	if c.Warmer.LookbackDays < 1 {
		return errors.New("warmer.lookback_days must be >= 1")
	}
	for i, t := range c.Warmer.Targets {
		if strings.TrimSpace(t.Ticker) == "" {
			return fmt.Errorf("warmer.targets[%d].ticker is required", i)
		}
		if len(t.Fields) == 0 {
			return fmt.Errorf("warmer.targets[%d].fields is required", i)
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
