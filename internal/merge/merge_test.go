package merge

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	"github.com/rickgao/spreadcache/internal/model"
	"github.com/rickgao/spreadcache/internal/store"
)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func pt(date string, v float64) model.Point {
	return model.Point{Date: day(date), Value: null.FloatFrom(v)}
}

func TestMerge(t *testing.T) {
	cached := model.Series{pt("2024-01-03", 3), pt("2024-01-04", 4)}
	before := model.Series{pt("2024-01-01", 1), pt("2024-01-02", 2), pt("2024-01-03", 99)}
	after := model.Series{pt("2024-01-05", 5), pt("2024-01-04", 98)}

	got := Merge(cached, before, after)

	want := model.Series{
		pt("2024-01-01", 1),
		pt("2024-01-02", 2),
		pt("2024-01-03", 3), // cached wins over 99
		pt("2024-01-04", 4), // cached wins over 98
		pt("2024-01-05", 5),
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Date.Equal(want[i].Date) || got[i].Value != want[i].Value {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if err := got.Validate(); err != nil {
		t.Errorf("merged series invalid: %v", err)
	}
}

func TestMerge_FirstPieceWinsOverMissing(t *testing.T) {
	cached := model.Series{{Date: day("2024-01-01")}} // missing value
	fresh := model.Series{pt("2024-01-01", 7)}

	got := Merge(cached, fresh)
	if len(got) != 1 || got[0].Value.Valid {
		t.Errorf("Merge() = %v, want the cached missing value kept", got)
	}
}

func TestMerge_Empty(t *testing.T) {
	if got := Merge(); got != nil {
		t.Errorf("Merge() = %v, want nil", got)
	}
	if got := Merge(nil, model.Series{}); got != nil {
		t.Errorf("Merge(nil, empty) = %v, want nil", got)
	}
}

func TestMerge_DedupWithinPiece(t *testing.T) {
	got := Merge(model.Series{pt("2024-01-02", 1), pt("2024-01-01", 2), pt("2024-01-02", 3)})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].Value.Float64 != 1 {
		t.Errorf("2024-01-02 = %v, want first-seen 1", got[1].Value.Float64)
	}
}

// -----------------------------------------------------------------------------
// Engine
// -----------------------------------------------------------------------------

type countingObserver struct {
	mu          sync.Mutex
	writes      int
	writeErrors int
	corruptions int
}

func (o *countingObserver) StoreWrite(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes++
	if err != nil {
		o.writeErrors++
	}
}

func (o *countingObserver) StoreCorruption() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.corruptions++
}

func newFileStore(t *testing.T) *store.FileStore {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEngine_Apply(t *testing.T) {
	st := newFileStore(t)
	obs := &countingObserver{}
	e := NewEngine(st, obs, nil)
	ctx := context.Background()
	key := model.Key{Ticker: "BOND_A", Field: "YIELD"}

	got, err := e.Apply(ctx, key, model.Series{pt("2024-01-01", 1), pt("2024-01-02", 2)})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	got, err = e.Apply(ctx, key, model.Series{pt("2024-01-02", 20), pt("2024-01-03", 3)})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(got) != 3 || got[1].Value.Float64 != 2 {
		t.Errorf("Apply() = %v, want 3 points with stored 2024-01-02 kept", got)
	}

	stored, err := st.Load(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 3 {
		t.Errorf("stored len = %d, want 3", len(stored))
	}
	if obs.writes != 2 {
		t.Errorf("writes = %d, want 2", obs.writes)
	}
}

func TestEngine_ApplyNothingNewSkipsWrite(t *testing.T) {
	st := newFileStore(t)
	obs := &countingObserver{}
	e := NewEngine(st, obs, nil)
	ctx := context.Background()
	key := model.Key{Ticker: "BOND_A", Field: "YIELD"}

	if _, err := e.Apply(ctx, key, model.Series{pt("2024-01-01", 1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Apply(ctx, key, model.Series{pt("2024-01-01", 5)}); err != nil {
		t.Fatal(err)
	}
	if obs.writes != 1 {
		t.Errorf("writes = %d, want 1", obs.writes)
	}
}

func TestEngine_ApplyReplacesCorrupt(t *testing.T) {
	st := newFileStore(t)
	obs := &countingObserver{}
	e := NewEngine(st, obs, nil)
	ctx := context.Background()
	key := model.Key{Ticker: "BOND_A", Field: "YIELD"}

	if err := st.Save(ctx, key, model.Series{pt("2024-01-01", 1)}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(st.Path(key), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := e.Apply(ctx, key, model.Series{pt("2024-01-05", 5)})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(got) != 1 || !got[0].Date.Equal(day("2024-01-05")) {
		t.Errorf("Apply() = %v", got)
	}
	if obs.corruptions != 1 {
		t.Errorf("corruptions = %d, want 1", obs.corruptions)
	}
	if _, err := st.Load(ctx, key); err != nil {
		t.Errorf("Load() after repair error = %v", err)
	}
}

type failingStore struct {
	store.Store
	saveErr error
}

func (f *failingStore) Save(ctx context.Context, key model.Key, s model.Series) error {
	return f.saveErr
}

func TestEngine_ApplySaveFailureStillReturnsData(t *testing.T) {
	saveErr := errors.New("disk full")
	st := &failingStore{Store: newFileStore(t), saveErr: saveErr}
	obs := &countingObserver{}
	e := NewEngine(st, obs, nil)

	got, err := e.Apply(context.Background(), model.Key{Ticker: "BOND_A", Field: "YIELD"},
		model.Series{pt("2024-01-01", 1)})
	if !errors.Is(err, saveErr) {
		t.Errorf("Apply() error = %v, want %v", err, saveErr)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
	if obs.writeErrors != 1 {
		t.Errorf("writeErrors = %d, want 1", obs.writeErrors)
	}
}

func TestEngine_ConcurrentApplySameKey(t *testing.T) {
	st := newFileStore(t)
	e := NewEngine(st, nil, nil)
	ctx := context.Background()
	key := model.Key{Ticker: "BOND_A", Field: "YIELD"}

	start := day("2024-01-01")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := model.Point{Date: start.AddDate(0, 0, i), Value: null.FloatFrom(float64(i))}
			if _, err := e.Apply(ctx, key, model.Series{p}); err != nil {
				t.Errorf("Apply() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	stored, err := st.Load(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 20 {
		t.Errorf("stored len = %d, want 20 (no lost updates)", len(stored))
	}
}
