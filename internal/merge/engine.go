package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rickgao/spreadcache/internal/model"
	"github.com/rickgao/spreadcache/internal/store"
)

// WriteObserver is notified of store writes. *metrics.Recorder satisfies it.
type WriteObserver interface {
	StoreWrite(err error)
	StoreCorruption()
}

// Engine serializes load-merge-save cycles per key.
type Engine struct {
	store    store.Store
	locks    *store.KeyMutex
	logger   *slog.Logger
	observer WriteObserver
}

// NewEngine creates an Engine writing to st. observer may be nil.
func NewEngine(st store.Store, observer WriteObserver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    st,
		locks:    store.NewKeyMutex(),
		logger:   logger,
		observer: observer,
	}
}

// Apply merges fresh pieces into the stored series for key and saves the
// result. The stored series is re-read under the key lock so concurrent
// callers never lose each other's data. The merged superset is returned
// even when the save fails; the error then reports the failed write.
func (e *Engine) Apply(ctx context.Context, key model.Key, fresh ...model.Series) (model.Series, error) {
	unlock := e.locks.Lock(key)
	defer unlock()

	if l, ok := e.store.(store.Locker); ok {
		release, err := l.Lock(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		defer release()
	}

	current, err := e.store.Load(ctx, key)
	if err != nil {
		var corrupt *store.CorruptionError
		switch {
		case errors.Is(err, store.ErrNotFound):
		case errors.As(err, &corrupt):
			e.logger.Warn("replacing corrupt series",
				"key", key.String(),
				"error", err,
			)
			if e.observer != nil {
				e.observer.StoreCorruption()
			}
		default:
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		current = nil
	}

	merged := Merge(append([]model.Series{current}, fresh...)...)
	if len(merged) == len(current) {
		// Nothing new; skip the rewrite.
		return merged, nil
	}

	err = e.store.Save(ctx, key, merged)
	if e.observer != nil {
		e.observer.StoreWrite(err)
	}
	if err != nil {
		return merged, fmt.Errorf("save %s: %w", key, err)
	}

	e.logger.Debug("series merged",
		"key", key.String(),
		"before", len(current),
		"after", len(merged),
	)
	return merged, nil
}
