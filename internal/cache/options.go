package cache

import (
	"log/slog"
	"time"

	"github.com/rickgao/spreadcache/internal/metrics"
)

// Option configures a Cache.
type Option func(*Cache)

// WithWorkers bounds concurrent upstream calls per request.
func WithWorkers(n int) Option {
	return func(c *Cache) {
		c.fetchCfg.Workers = n
	}
}

// WithFetchTimeout sets the per-call upstream timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.fetchCfg.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithMetrics records cache activity on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}
