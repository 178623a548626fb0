package warmer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/rickgao/spreadcache/internal/dates"
	"github.com/rickgao/spreadcache/internal/model"
)

// Fetcher serves time-series requests. *cache.Cache satisfies it.
type Fetcher interface {
	GetTimeSeries(ctx context.Context, ticker string, fields []string, start, end time.Time) (*model.Table, error)
}

// Target is one ticker kept warm.
type Target struct {
	Ticker string
	Fields []string
}

// Config holds warmer configuration.
type Config struct {
	Interval     time.Duration // Cycle interval (default: 1h)
	LookbackDays int           // Window length ending today (default: 365)
	Concurrency  int           // Max concurrent targets (default: 4)
	Timeout      time.Duration // Per-target timeout (default: 5m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     time.Hour,
		LookbackDays: 365,
		Concurrency:  4,
		Timeout:      5 * time.Minute,
	}
}

// Summary reports one cycle.
type Summary struct {
	Targets  int
	Warmed   int // Served with every field present
	Partial  int // Served with some fields missing
	Failed   int
	Duration time.Duration
}

// Warmer periodically refreshes targets through a Fetcher.
type Warmer struct {
	cfg     Config
	fetcher Fetcher
	targets []Target
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	sched   *gocron.Scheduler
	cancel  context.CancelFunc
	cycleMu sync.Mutex // Held for the length of a scheduled cycle
	cycles  atomic.Int64
}

// New creates a new Warmer.
func New(cfg Config, fetcher Fetcher, targets []Target, logger *slog.Logger) *Warmer {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = def.LookbackDays
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Warmer{
		cfg:     cfg,
		fetcher: fetcher,
		targets: targets,
		logger:  logger,
		now:     time.Now,
	}
}

// Cycles returns the number of completed cycles.
func (w *Warmer) Cycles() int64 {
	return w.cycles.Load()
}

// Start schedules the refresh cycle. The first cycle runs immediately.
func (w *Warmer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sched != nil {
		return errors.New("warmer already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	sched := gocron.NewScheduler(time.UTC)
	sched.SingletonModeAll()

	_, err := sched.Every(w.cfg.Interval).Do(func() {
		w.cycleMu.Lock()
		defer w.cycleMu.Unlock()
		if runCtx.Err() != nil {
			return
		}
		w.RunOnce(runCtx)
	})
	if err != nil {
		cancel()
		return err
	}

	sched.StartAsync()
	w.sched = sched
	w.cancel = cancel

	w.logger.Info("warmer started",
		"interval", w.cfg.Interval,
		"targets", len(w.targets),
		"lookback_days", w.cfg.LookbackDays,
	)
	return nil
}

// Stop halts scheduling and waits for a running cycle to finish.
func (w *Warmer) Stop(ctx context.Context) error {
	w.mu.Lock()
	sched, cancel := w.sched, w.cancel
	w.sched, w.cancel = nil, nil
	w.mu.Unlock()

	if sched == nil {
		return nil
	}
	cancel()
	sched.Stop()

	done := make(chan struct{})
	go func() {
		w.cycleMu.Lock()
		w.cycleMu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("warmer stopped", "cycles", w.cycles.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce refreshes every target once.
func (w *Warmer) RunOnce(ctx context.Context) Summary {
	start := time.Now()
	window := dates.Lookback(w.now(), w.cfg.LookbackDays)

	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup
	var warmed, partial, failed atomic.Int64

	for _, t := range w.targets {
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				failed.Add(1)
				return
			}

			tctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
			defer cancel()

			tbl, err := w.fetcher.GetTimeSeries(tctx, t.Ticker, t.Fields, window.Start, window.End)
			switch {
			case err != nil:
				w.logger.Warn("failed to warm target",
					"ticker", t.Ticker,
					"error", err,
				)
				failed.Add(1)
			case len(tbl.Missing) > 0:
				w.logger.Debug("target partially warmed",
					"ticker", t.Ticker,
					"missing", tbl.Missing,
				)
				partial.Add(1)
			default:
				warmed.Add(1)
			}
		}(t)
	}

	wg.Wait()
	w.cycles.Add(1)

	sum := Summary{
		Targets:  len(w.targets),
		Warmed:   int(warmed.Load()),
		Partial:  int(partial.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}
	w.logger.Info("warm cycle complete",
		"targets", sum.Targets,
		"warmed", sum.Warmed,
		"partial", sum.Partial,
		"failed", sum.Failed,
		"window", window.String(),
		"duration", sum.Duration,
	)
	return sum
}
