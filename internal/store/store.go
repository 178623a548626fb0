// Package store persists one series per (ticker, field) key.
//
// Backends:
//   - FileStore: one CSV file per key under a per-ticker directory (default)
//   - PostgresStore: series_points table, replaced per key in one transaction
//   - RedisStore: one string value per key holding the CSV encoding
//   - MongoStore: one document per key
//
// Every backend replaces a key's record atomically: readers observe either
// the old series or the new one, never a mix.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rickgao/spreadcache/internal/model"
)

// ErrNotFound is returned by Load when nothing is stored for a key.
var ErrNotFound = errors.New("series not found")

// Store is durable key-value storage of series.
type Store interface {
	// Load returns the stored series for key, ErrNotFound, or a
	// *CorruptionError when the record cannot be read back.
	Load(ctx context.Context, key model.Key) (model.Series, error)

	// Save replaces the stored series for key.
	Save(ctx context.Context, key model.Key, s model.Series) error
}

// Locker is implemented by stores that can serialize writers across
// processes sharing the same storage.
type Locker interface {
	Lock(ctx context.Context, key model.Key) (unlock func(), err error)
}

// CorruptionError reports a stored record that could not be parsed.
type CorruptionError struct {
	Key model.Key
	Err error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt series %s: %v", e.Key, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// checkSave validates the arguments shared by every Save implementation.
func checkSave(key model.Key, s model.Series) error {
	if err := key.Validate(); err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid series: %w", err)
	}
	return nil
}

// escapedKey joins the escaped ticker and field with sep. Escaping covers
// every separator a backend uses, so distinct keys never share a name.
func escapedKey(key model.Key, sep string) string {
	return url.QueryEscape(key.Ticker) + sep + url.QueryEscape(key.Field)
}
