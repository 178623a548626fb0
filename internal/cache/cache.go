package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/spreadcache/internal/coverage"
	"github.com/rickgao/spreadcache/internal/fetch"
	"github.com/rickgao/spreadcache/internal/merge"
	"github.com/rickgao/spreadcache/internal/metrics"
	"github.com/rickgao/spreadcache/internal/model"
	"github.com/rickgao/spreadcache/internal/store"
)

// ErrInvalidRequest is returned for a missing ticker or field list.
var ErrInvalidRequest = errors.New("invalid request")

// Cache is a read-through cache in front of a Provider.
type Cache struct {
	store    store.Store
	provider fetch.Provider
	fetchCfg fetch.Config
	logger   *slog.Logger
	metrics  *metrics.Recorder

	orch   *fetch.Orchestrator
	engine *merge.Engine
}

// New creates a Cache backed by st and p.
func New(st store.Store, p fetch.Provider, opts ...Option) *Cache {
	c := &Cache{
		store:    st,
		provider: p,
		fetchCfg: fetch.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	var calls fetch.CallObserver
	var writes merge.WriteObserver
	if c.metrics != nil {
		calls, writes = c.metrics, c.metrics
	}
	c.orch = fetch.New(c.fetchCfg, p, calls, c.logger)
	c.engine = merge.NewEngine(st, writes, c.logger)
	return c
}

// GetField is GetTimeSeries for a single field.
func (c *Cache) GetField(ctx context.Context, ticker, field string, start, end time.Time) (*model.Table, error) {
	return c.GetTimeSeries(ctx, ticker, []string{field}, start, end)
}

// GetTimeSeries returns fields for ticker over [start, end], one column per
// field that has data in the window. Fields that could not be served are
// listed in the table's Missing. An empty table is not an error.
func (c *Cache) GetTimeSeries(ctx context.Context, ticker string, fields []string, start, end time.Time) (*model.Table, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrInvalidRequest)
	}
	fields = cleanFields(fields)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrInvalidRequest)
	}
	for _, f := range fields {
		if err := (model.Key{Ticker: ticker, Field: f}).Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	window, err := model.NewRange(start, end)
	if err != nil {
		return nil, err
	}

	c.metrics.Request()
	logger := c.logger.With(
		"request_id", uuid.NewString(),
		"ticker", ticker,
	)
	began := time.Now()

	// Cached series by field, replaced by the merged superset after a fetch.
	data := make(map[string]model.Series, len(fields))
	req := fetch.Request{
		Ticker: ticker,
		Range:  window,
		Gaps:   make(map[string][]model.Range),
	}

	for _, f := range fields {
		key := model.Key{Ticker: ticker, Field: f}
		cached := c.load(ctx, logger, key)
		gaps := coverage.ForSeries(window, cached)
		result := coverage.Classify(gaps, len(cached) > 0)
		c.metrics.Lookup(string(result))

		logger.Debug("coverage",
			"field", f,
			"result", result,
			"gaps", len(gaps),
		)

		data[f] = cached
		switch result {
		case coverage.Miss:
			req.Full = append(req.Full, f)
		case coverage.Partial:
			req.Gaps[f] = gaps
		}
	}

	if len(req.Full) > 0 || len(req.Gaps) > 0 {
		var mu sync.Mutex
		rep := c.orch.Run(ctx, req, func(field string, pieces []model.Series) {
			key := model.Key{Ticker: ticker, Field: field}
			merged, err := c.engine.Apply(ctx, key, pieces...)
			if err != nil {
				logger.Error("failed to store series",
					"field", field,
					"error", err,
				)
				if merged == nil {
					// Serve what was fetched even if the store is unusable.
					mu.Lock()
					merged = merge.Merge(append([]model.Series{data[field]}, pieces...)...)
					mu.Unlock()
				}
			}
			mu.Lock()
			data[field] = merged
			mu.Unlock()
		})

		for f, ferr := range rep.Failed {
			logger.Warn("field fetch incomplete",
				"field", f,
				"error", ferr,
			)
		}
		logger.Debug("upstream fetch finished",
			"calls", rep.Calls,
			"failed", len(rep.Failed),
		)
	}

	sliced := make(map[string]model.Series, len(data))
	for f, s := range data {
		sliced[f] = s.Slice(window)
	}
	tbl := model.NewTable(fields, sliced)

	logger.Info("request served",
		"fields", len(fields),
		"rows", tbl.Len(),
		"missing", len(tbl.Missing),
		"duration", time.Since(began),
	)
	return tbl, nil
}

// load reads the stored series for key. Absent and unreadable records both
// come back empty so the key is refetched in full; the merge engine counts
// the corruption when it replaces the record.
func (c *Cache) load(ctx context.Context, logger *slog.Logger, key model.Key) model.Series {
	s, err := c.store.Load(ctx, key)
	if err == nil {
		return s
	}

	var corrupt *store.CorruptionError
	switch {
	case errors.Is(err, store.ErrNotFound):
	case errors.As(err, &corrupt):
		logger.Warn("stored series unreadable, refetching",
			"field", key.Field,
			"error", err,
		)
	default:
		logger.Error("failed to load series",
			"field", key.Field,
			"error", err,
		)
	}
	return nil
}

// cleanFields trims names, drops blanks and removes duplicates, keeping the
// first occurrence.
func cleanFields(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
