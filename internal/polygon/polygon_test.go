package polygon

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
)

func bar(date string, open, close float64, n int64) models.Agg {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	// Polygon stamps daily bars at the session open in New York.
	return models.Agg{
		Open:         open,
		High:         open + 1,
		Low:          open - 1,
		Close:        close,
		Volume:       1000,
		VWAP:         (open + close) / 2,
		Transactions: n,
		Timestamp:    models.Millis(t.Add(5 * time.Hour)),
	}
}

func fakeProvider(aggs []models.Agg, err error, calls *int) *Provider {
	return &Provider{
		logger: slog.Default(),
		list: func(ctx context.Context, ticker string, from, to time.Time) ([]models.Agg, error) {
			*calls++
			return aggs, err
		},
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		field string
		ok    bool
	}{
		{"close", true},
		{"CLOSE", true},
		{"PX_LAST", true},
		{" vwap ", true},
		{"transactions", true},
		{"YAS_ASW_SPREAD", false},
	}
	for _, tt := range tests {
		if _, ok := lookup(tt.field); ok != tt.ok {
			t.Errorf("lookup(%q) ok = %v, want %v", tt.field, ok, tt.ok)
		}
	}
}

func TestFetchRange(t *testing.T) {
	var calls int
	p := fakeProvider([]models.Agg{
		bar("2024-01-02", 100, 101, 10),
		bar("2024-01-03", 101, 99, 12),
	}, nil, &calls)

	got, err := p.FetchRange(context.Background(), "AAPL", []string{"PX_LAST", "open", "transactions", "DURATION"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchRange() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("list calls = %d, want 1", calls)
	}
	if _, ok := got["DURATION"]; ok {
		t.Error("unknown field should be absent")
	}

	last := got["PX_LAST"]
	if len(last) != 2 || last[0].Value.Float64 != 101 || last[1].Value.Float64 != 99 {
		t.Errorf("PX_LAST = %+v", last)
	}
	if want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC); !last[0].Date.Equal(want) {
		t.Errorf("date = %v, want %v", last[0].Date, want)
	}
	if got["transactions"][1].Value.Float64 != 12 {
		t.Errorf("transactions = %+v", got["transactions"])
	}
	if got["open"][0].Value.Float64 != 100 {
		t.Errorf("open = %+v", got["open"])
	}
}

func TestFetchRange_OnlyUnknownFieldsSkipsCall(t *testing.T) {
	var calls int
	p := fakeProvider(nil, nil, &calls)

	got, err := p.FetchRange(context.Background(), "AAPL", []string{"YIELD"}, time.Now(), time.Now())
	if err != nil {
		t.Fatalf("FetchRange() error = %v", err)
	}
	if calls != 0 || len(got) != 0 {
		t.Errorf("calls = %d, got = %v; want no call and no data", calls, got)
	}
}

func TestFetchRange_Error(t *testing.T) {
	var calls int
	p := fakeProvider(nil, errors.New("429 too many requests"), &calls)

	_, err := p.FetchRange(context.Background(), "AAPL", []string{"close"}, time.Now(), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
}
