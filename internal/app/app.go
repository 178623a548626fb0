// Package app assembles a Cache and its collaborators from configuration.
// Both binaries build through it so they share one wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rickgao/spreadcache/internal/api"
	"github.com/rickgao/spreadcache/internal/auth"
	"github.com/rickgao/spreadcache/internal/cache"
	"github.com/rickgao/spreadcache/internal/config"
	"github.com/rickgao/spreadcache/internal/database"
	"github.com/rickgao/spreadcache/internal/fetch"
	"github.com/rickgao/spreadcache/internal/metrics"
	"github.com/rickgao/spreadcache/internal/polygon"
	"github.com/rickgao/spreadcache/internal/store"
)

// App owns the long-lived resources behind a Cache.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    store.Store
	Provider fetch.Provider
	Cache    *cache.Cache
	Metrics  *metrics.Recorder
	Registry *prometheus.Registry

	ping    func(ctx context.Context) error
	closers []func()
}

// New opens the configured store and provider and builds the cache.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	p, err := NewProvider(cfg.Upstream, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Provider = p

	a.Cache = cache.New(a.Store, a.Provider,
		cache.WithWorkers(cfg.Cache.Workers),
		cache.WithFetchTimeout(cfg.Cache.FetchTimeout),
		cache.WithLogger(logger),
		cache.WithMetrics(a.Metrics),
	)
	return a, nil
}

// Ping checks the store backend.
func (a *App) Ping(ctx context.Context) error {
	if a.ping == nil {
		return nil
	}
	return a.ping(ctx)
}

// Close releases backend connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore(ctx context.Context) error {
	sc := a.Config.Store
	logger := a.Logger.With("backend", sc.Backend)

	switch sc.Backend {
	case config.BackendFile:
		st, err := store.NewFileStore(sc.File.Root, a.Logger)
		if err != nil {
			return fmt.Errorf("open file store: %w", err)
		}
		a.Store = st
		logger.Info("store opened", "root", st.Root())

	case config.BackendPostgres:
		st, pool, err := database.OpenStore(ctx, sc.Postgres)
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		a.Store = st
		a.ping = pool.Ping
		a.closers = append(a.closers, pool.Close)
		logger.Info("store opened", "host", sc.Postgres.Host, "database", sc.Postgres.Name)

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return fmt.Errorf("open redis store: %w", err)
		}
		a.Store = store.NewRedisStore(rdb, sc.Redis.Prefix, store.WithLockTTL(sc.Redis.LockTTL))
		a.ping = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		a.closers = append(a.closers, func() { rdb.Close() })
		logger.Info("store opened", "addr", sc.Redis.Addr, "prefix", sc.Redis.Prefix)

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(sc.Mongo.URI))
		if err != nil {
			return fmt.Errorf("open mongo store: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			client.Disconnect(context.Background())
			return fmt.Errorf("open mongo store: %w", err)
		}
		coll := client.Database(sc.Mongo.Database).Collection(sc.Mongo.Collection)
		a.Store = store.NewMongoStore(coll)
		a.ping = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		a.closers = append(a.closers, func() { client.Disconnect(context.Background()) })
		logger.Info("store opened", "database", sc.Mongo.Database, "collection", sc.Mongo.Collection)

	default:
		return fmt.Errorf("unknown store backend %q", sc.Backend)
	}
	return nil
}

// NewProvider builds the configured upstream provider.
func NewProvider(uc config.UpstreamConfig, logger *slog.Logger) (fetch.Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch uc.Provider {
	case config.ProviderHTTP:
		opts := []api.ClientOption{
			api.WithLogger(logger),
			api.WithTimeout(uc.Timeout),
			api.WithRetries(uc.MaxRetries, uc.RetryBackoff),
		}
		if uc.KeyID != "" {
			creds, err := auth.LoadCredentials(uc.KeyID, uc.PrivateKeyPath)
			if err != nil {
				return nil, fmt.Errorf("load upstream credentials: %w", err)
			}
			opts = append(opts, api.WithSigner(creds))
		}
		return api.NewClient(uc.RestURL, uc.APIKey, opts...), nil

	case config.ProviderPolygon:
		return polygon.New(uc.Polygon.APIKey, uc.Polygon.Adjusted, logger), nil

	default:
		return nil, fmt.Errorf("unknown upstream provider %q", uc.Provider)
	}
}
