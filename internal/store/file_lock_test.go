//go:build unix

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rickgao/spreadcache/internal/model"
)

func TestFileStore_Lock(t *testing.T) {
	s := newTestFileStore(t)
	key := model.Key{Ticker: "BOND_A", Field: "YIELD"}

	unlock, err := s.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	// A second descriptor cannot take the lock while the first holds it.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.Lock(ctx, key); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("contended Lock() error = %v, want deadline exceeded", err)
	}

	unlock()

	unlock2, err := s.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock() after release error = %v", err)
	}
	unlock2()
}
