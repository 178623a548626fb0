package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/rickgao/spreadcache/internal/api"
	"github.com/rickgao/spreadcache/internal/config"
	"github.com/rickgao/spreadcache/internal/polygon"
	"github.com/rickgao/spreadcache/internal/store"
)

func gateway(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fields": {"YIELD": [
			{"date": "2024-01-02", "value": 4.1},
			{"date": "2024-01-03", "value": 4.2}
		]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_FileBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.File.Root = t.TempDir()
	cfg.Upstream.RestURL = gateway(t).URL

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if _, ok := a.Store.(*store.FileStore); !ok {
		t.Errorf("Store = %T, want *store.FileStore", a.Store)
	}
	if err := a.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	tbl, err := a.Cache.GetField(context.Background(), "BOND_A", "YIELD",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetField() error = %v", err)
	}
	if tbl.Len() != 2 {
		t.Errorf("rows = %d, want 2", tbl.Len())
	}
}

func TestNew_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Upstream.RestURL = gateway(t).URL

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if _, ok := a.Store.(*store.RedisStore); !ok {
		t.Errorf("Store = %T, want *store.RedisStore", a.Store)
	}
	if err := a.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	if _, err := a.Cache.GetField(context.Background(), "BOND_A", "YIELD",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("GetField() error = %v", err)
	}
	if !mr.Exists("spreadcache:series:BOND_A:YIELD") {
		t.Errorf("series not written to redis; keys = %v", mr.Keys())
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "s3"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewProvider(t *testing.T) {
	uc := config.Default().Upstream

	p, err := NewProvider(uc, nil)
	if err != nil {
		t.Fatalf("NewProvider(http) error = %v", err)
	}
	if _, ok := p.(*api.Client); !ok {
		t.Errorf("provider = %T, want *api.Client", p)
	}

	uc.Provider = config.ProviderPolygon
	uc.Polygon.APIKey = "pk_test"
	p, err = NewProvider(uc, nil)
	if err != nil {
		t.Fatalf("NewProvider(polygon) error = %v", err)
	}
	if _, ok := p.(*polygon.Provider); !ok {
		t.Errorf("provider = %T, want *polygon.Provider", p)
	}

	uc = config.Default().Upstream
	uc.KeyID = "key"
	uc.PrivateKeyPath = "/nonexistent/key.pem"
	if _, err := NewProvider(uc, nil); err == nil {
		t.Error("expected error for unreadable signing key")
	}

	uc.Provider = "ftp"
	if _, err := NewProvider(uc, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}
