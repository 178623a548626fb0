package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rickgao/spreadcache/internal/model"
)

// lockPollInterval is how often a contended file lock is retried.
const lockPollInterval = 10 * time.Millisecond

// FileStore keeps one CSV file per key:
//
//	<root>/<ticker>/<field>.csv
//
// Ticker and field are path-escaped so any identifier maps to a single
// path component.
type FileStore struct {
	root   string
	logger *slog.Logger
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string, logger *slog.Logger) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("file store root is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FileStore{root: root, logger: logger}, nil
}

// Root returns the storage root.
func (s *FileStore) Root() string {
	return s.root
}

// Path returns the file that holds key.
func (s *FileStore) Path(key model.Key) string {
	return filepath.Join(s.root, url.PathEscape(key.Ticker), url.PathEscape(key.Field)+".csv")
}

// Load reads the series for key.
func (s *FileStore) Load(ctx context.Context, key model.Key) (model.Series, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}

	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read series file: %w", err)
	}

	series, err := DecodeCSV(bytes.NewReader(data), key.Field)
	if err != nil {
		return nil, &CorruptionError{Key: key, Err: err}
	}
	return series, nil
}

// Save writes the series to a temporary file in the key's directory and
// renames it over the previous file.
func (s *FileStore) Save(ctx context.Context, key model.Key, series model.Series) error {
	if err := checkSave(key, series); err != nil {
		return err
	}

	path := s.Path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ticker dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := EncodeCSV(tmp, key.Field, series); err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true

	s.logger.Debug("series saved",
		"ticker", key.Ticker,
		"field", key.Field,
		"points", len(series),
	)
	return nil
}

// Lock takes an advisory lock on <field>.csv.lock so writers in other
// processes sharing the root are serialized too.
func (s *FileStore) Lock(ctx context.Context, key model.Key) (func(), error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}

	path := s.Path(key) + ".lock"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ticker dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	for {
		ok, err := tryLockFile(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("lock file: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}

	return func() {
		if err := unlockFile(f); err != nil {
			s.logger.Warn("failed to release file lock", "path", path, "error", err)
		}
		f.Close()
	}, nil
}
