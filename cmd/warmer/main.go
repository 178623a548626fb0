package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/spreadcache/internal/app"
	"github.com/rickgao/spreadcache/internal/config"
	"github.com/rickgao/spreadcache/internal/logging"
	"github.com/rickgao/spreadcache/internal/version"
	"github.com/rickgao/spreadcache/internal/warmer"
)

func main() {
	configPath := flag.String("config", "configs/warmer.local.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting warmer",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"backend", cfg.Store.Backend,
		"provider", cfg.Upstream.Provider,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	targets := make([]warmer.Target, len(cfg.Warmer.Targets))
	for i, t := range cfg.Warmer.Targets {
		targets[i] = warmer.Target{Ticker: t.Ticker, Fields: t.Fields}
	}
	w := warmer.New(warmer.Config{
		Interval:     cfg.Warmer.Interval,
		LookbackDays: cfg.Warmer.LookbackDays,
		Concurrency:  cfg.Warmer.Concurrency,
		Timeout:      cfg.Warmer.Timeout,
	}, a.Cache, targets, logger)

	// Start health and metrics server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: newHandler(a, w, cfg.Metrics.Path),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start warmer", "error", err)
		os.Exit(1)
	}

	logger.Info("warmer running",
		"targets", len(targets),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := w.Stop(shutdownCtx); err != nil {
		logger.Error("warmer did not stop cleanly", "error", err)
	}
	server.Shutdown(shutdownCtx)

	logger.Info("warmer stopped")
}

// newHandler serves /health and the Prometheus metrics endpoint.
func newHandler(a *app.App, w *warmer.Warmer, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(metricsPath, promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Version    string         `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.Version,
			Components: make(map[string]any),
		}

		if err := a.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["store"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["store"] = "connected"
		}

		health.Components["warmer"] = map[string]any{
			"cycles": w.Cycles(),
		}

		rw.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			rw.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(rw).Encode(health)
	})

	return mux
}
