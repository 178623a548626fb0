package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/spreadcache/internal/merge"
	"github.com/rickgao/spreadcache/internal/model"
)

// Provider is the upstream data source.
type Provider interface {
	// FetchRange returns one series per field it has data for. Fields
	// without data may be omitted from the map.
	FetchRange(ctx context.Context, ticker string, fields []string, start, end time.Time) (map[string]model.Series, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, ticker string, fields []string, start, end time.Time) (map[string]model.Series, error)

func (f ProviderFunc) FetchRange(ctx context.Context, ticker string, fields []string, start, end time.Time) (map[string]model.Series, error) {
	return f(ctx, ticker, fields, start, end)
}

// Mode labels the kind of upstream call.
type Mode string

const (
	ModeFull Mode = "full" // All uncached fields over the whole request
	ModeGap  Mode = "gap"  // One field over one uncovered sub-range
)

// ErrNoData is recorded for a field the upstream returned nothing for.
var ErrNoData = errors.New("no data returned")

// UpstreamError reports a failed fetch for one field.
type UpstreamError struct {
	Ticker string
	Field  string
	Mode   Mode
	Range  model.Range
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s fetch %s/%s %s: %v", e.Mode, e.Ticker, e.Field, e.Range, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// CallObserver is notified after every upstream call. *metrics.Recorder
// satisfies it.
type CallObserver interface {
	UpstreamCall(mode string, d time.Duration, err error)
}

// Config holds orchestrator configuration.
type Config struct {
	Workers int           // Max concurrent upstream calls (default: 4)
	Timeout time.Duration // Per-call timeout (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers: 4,
		Timeout: 30 * time.Second,
	}
}

// Request describes the work for one facade call.
type Request struct {
	Ticker string
	Range  model.Range              // Whole requested range
	Full   []string                 // Fields with nothing cached
	Gaps   map[string][]model.Range // Partially cached fields, gaps in fetch order
}

// Sink receives the successfully fetched pieces of a field, in call order.
// It is called at most once per field, and only if at least one piece was
// fetched.
type Sink func(field string, pieces []model.Series)

// Report summarizes a Run.
type Report struct {
	Calls  int
	Failed map[string]error // Per field; joined when several gaps failed
}

// Orchestrator runs upstream calls on a bounded pool.
type Orchestrator struct {
	cfg      Config
	provider Provider
	observer CallObserver
	logger   *slog.Logger
}

// New creates an Orchestrator. observer may be nil.
func New(cfg Config, p Provider, observer CallObserver, logger *slog.Logger) *Orchestrator {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		provider: p,
		observer: observer,
		logger:   logger,
	}
}

// fieldState tracks one field's outstanding calls.
type fieldState struct {
	pieces    []model.Series // Indexed by call slot
	errs      []error
	remaining int
}

type run struct {
	o      *Orchestrator
	ticker string
	sink   Sink
	calls  atomic.Int64

	mu     sync.Mutex
	fields map[string]*fieldState
}

// Run issues every call in req and hands results to sink as each field
// completes. It returns once all calls have finished. Failures never abort
// other calls; they are reported per field.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) Report {
	r := &run{
		o:      o,
		ticker: req.Ticker,
		sink:   sink,
		fields: make(map[string]*fieldState, len(req.Full)+len(req.Gaps)),
	}

	for _, f := range req.Full {
		r.fields[f] = &fieldState{pieces: make([]model.Series, 1), remaining: 1}
	}
	for f, gaps := range req.Gaps {
		if len(gaps) == 0 {
			continue
		}
		r.fields[f] = &fieldState{pieces: make([]model.Series, len(gaps)), remaining: len(gaps)}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	if len(req.Full) > 0 {
		fields := append([]string(nil), req.Full...)
		g.Go(func() error {
			r.call(gctx, ModeFull, fields, req.Range, 0)
			return nil
		})
	}

	// Gap calls are submitted field by field in coverage order.
	for _, f := range gapOrder(req) {
		for slot, gap := range req.Gaps[f] {
			g.Go(func() error {
				r.call(gctx, ModeGap, []string{f}, gap, slot)
				return nil
			})
		}
	}

	_ = g.Wait()

	rep := Report{Calls: int(r.calls.Load())}
	for f, st := range r.fields {
		if len(st.errs) == 0 {
			continue
		}
		if rep.Failed == nil {
			rep.Failed = make(map[string]error)
		}
		rep.Failed[f] = errors.Join(st.errs...)
	}
	return rep
}

// call performs one upstream request and settles each of its fields.
func (r *run) call(ctx context.Context, mode Mode, fields []string, rng model.Range, slot int) {
	r.calls.Add(1)

	cctx, cancel := context.WithTimeout(ctx, r.o.cfg.Timeout)
	start := time.Now()
	res, err := r.o.provider.FetchRange(cctx, r.ticker, fields, rng.Start, rng.End)
	cancel()
	elapsed := time.Since(start)

	if r.o.observer != nil {
		r.o.observer.UpstreamCall(string(mode), elapsed, err)
	}

	if err != nil {
		r.o.logger.Warn("upstream call failed",
			"ticker", r.ticker,
			"fields", fields,
			"mode", mode,
			"range", rng.String(),
			"duration", elapsed,
			"error", err,
		)
	}

	for _, f := range fields {
		var s model.Series
		ferr := err
		if ferr == nil {
			s = clean(res[f], rng)
			if len(s) == 0 {
				ferr = ErrNoData
				r.o.logger.Debug("upstream returned no data",
					"ticker", r.ticker,
					"field", f,
					"mode", mode,
					"range", rng.String(),
				)
			}
		}
		if ferr != nil {
			ferr = &UpstreamError{Ticker: r.ticker, Field: f, Mode: mode, Range: rng, Err: ferr}
		}
		r.settle(f, slot, s, ferr)
	}
}

// settle records one call's outcome for field and fires the sink once the
// field's last call is in.
func (r *run) settle(field string, slot int, s model.Series, err error) {
	r.mu.Lock()
	st := r.fields[field]
	if err != nil {
		st.errs = append(st.errs, err)
	} else {
		st.pieces[slot] = s
	}
	st.remaining--
	done := st.remaining == 0
	r.mu.Unlock()

	if !done || r.sink == nil {
		return
	}

	var pieces []model.Series
	for _, p := range st.pieces {
		if len(p) > 0 {
			pieces = append(pieces, p)
		}
	}
	if len(pieces) > 0 {
		r.sink(field, pieces)
	}
}

// clean normalizes upstream points, orders them and clips them to rng.
func clean(s model.Series, rng model.Range) model.Series {
	if len(s) == 0 {
		return nil
	}
	return merge.Merge(s.Normalize()).Slice(rng)
}

// gapOrder returns the partially cached fields in a stable order.
func gapOrder(req Request) []string {
	return slices.Sorted(maps.Keys(req.Gaps))
}
