package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rickgao/spreadcache/internal/app"
	"github.com/rickgao/spreadcache/internal/config"
	"github.com/rickgao/spreadcache/internal/warmer"
)

func TestHandler(t *testing.T) {
	cfg := config.Default()
	cfg.Store.File.Root = t.TempDir()

	a, err := app.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer a.Close()

	w := warmer.New(warmer.Config{}, a.Cache, nil, nil)
	w.RunOnce(context.Background())

	srv := httptest.NewServer(newHandler(a, w, "/metrics"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var health struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.StatusCode != http.StatusOK || health.Status != "healthy" {
		t.Errorf("health = %d %+v", resp.StatusCode, health)
	}
	if health.Components["store"] != "connected" {
		t.Errorf("store component = %v", health.Components["store"])
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "spreadcache_requests_total") {
		t.Error("metrics output missing spreadcache_requests_total")
	}
}
