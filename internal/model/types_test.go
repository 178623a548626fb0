package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"utc midnight", day("2024-01-05"), day("2024-01-05")},
		{"utc afternoon", time.Date(2024, 1, 5, 15, 30, 0, 0, time.UTC), day("2024-01-05")},
		{"local evening keeps local date", time.Date(2024, 1, 5, 23, 0, 0, 0, ny), day("2024-01-05")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Day(tt.in); !got.Equal(tt.want) || got.Location() != time.UTC {
				t.Errorf("Day(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKey_Validate(t *testing.T) {
	tests := []struct {
		key     Key
		wantErr bool
	}{
		{Key{"BOND_A", "YIELD"}, false},
		{Key{"COLOM 28s", "YAS_ASW_SPREAD"}, false},
		{Key{"", "YIELD"}, true},
		{Key{"BOND_A", ""}, true},
		{Key{"..", "YIELD"}, true},
		{Key{"BOND_A", "."}, true},
	}

	for _, tt := range tests {
		err := tt.key.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
	}
}

func TestFloatValue(t *testing.T) {
	if v := FloatValue(1.5); !v.Valid || v.Float64 != 1.5 {
		t.Errorf("FloatValue(1.5) = %v, want valid 1.5", v)
	}
	if v := FloatValue(math.NaN()); v.Valid {
		t.Error("FloatValue(NaN) should be missing")
	}
	if v := FloatValue(math.Inf(-1)); v.Valid {
		t.Error("FloatValue(-Inf) should be missing")
	}
}

func TestSeries_SpanAndSlice(t *testing.T) {
	s := Series{
		{Date: day("2024-01-01"), Value: null.FloatFrom(1)},
		{Date: day("2024-01-02"), Value: null.FloatFrom(2)},
		{Date: day("2024-01-04"), Value: null.Float{}},
		{Date: day("2024-01-05"), Value: null.FloatFrom(5)},
	}

	span, ok := s.Span()
	if !ok {
		t.Fatal("Span() ok = false")
	}
	if !span.Start.Equal(day("2024-01-01")) || !span.End.Equal(day("2024-01-05")) {
		t.Errorf("Span() = %v", span)
	}

	got := s.Slice(Range{Start: day("2024-01-02"), End: day("2024-01-04")})
	if len(got) != 2 {
		t.Fatalf("len(Slice) = %d, want 2", len(got))
	}
	if !got[0].Date.Equal(day("2024-01-02")) || !got[1].Date.Equal(day("2024-01-04")) {
		t.Errorf("Slice dates = %v, %v", got[0].Date, got[1].Date)
	}

	got[0].Value = null.FloatFrom(99)
	if s[1].Value.Float64 != 2 {
		t.Error("Slice shares memory with the source series")
	}

	if out := s.Slice(Range{Start: day("2025-01-01"), End: day("2025-02-01")}); out != nil {
		t.Errorf("Slice outside span = %v, want nil", out)
	}

	if _, ok := Series(nil).Span(); ok {
		t.Error("empty series should have no span")
	}
}

func TestSeries_Validate(t *testing.T) {
	ok := Series{
		{Date: day("2024-01-01"), Value: null.FloatFrom(1)},
		{Date: day("2024-01-02")},
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	dup := Series{
		{Date: day("2024-01-01"), Value: null.FloatFrom(1)},
		{Date: day("2024-01-01"), Value: null.FloatFrom(2)},
	}
	if err := dup.Validate(); err == nil {
		t.Error("Validate() should reject duplicate dates")
	}

	nan := Series{{Date: day("2024-01-01"), Value: null.NewFloat(math.NaN(), true)}}
	if err := nan.Validate(); err == nil {
		t.Error("Validate() should reject NaN values")
	}
}

func TestSeries_Normalize(t *testing.T) {
	s := Series{
		{Date: time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC), Value: null.NewFloat(math.NaN(), true)},
		{Date: time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC), Value: null.FloatFrom(3)},
	}

	got := s.Normalize()
	if !got[0].Date.Equal(day("2024-01-01")) || got[0].Value.Valid {
		t.Errorf("got[0] = %+v, want 2024-01-01 missing", got[0])
	}
	if !got[1].Date.Equal(day("2024-01-02")) || got[1].Value.Float64 != 3 {
		t.Errorf("got[1] = %+v, want 2024-01-02 3", got[1])
	}
}

func TestNewRange(t *testing.T) {
	r, err := NewRange(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), day("2024-01-10"))
	if err != nil {
		t.Fatalf("NewRange() error = %v", err)
	}
	if !r.Start.Equal(day("2024-01-01")) {
		t.Errorf("Start = %v, want 2024-01-01", r.Start)
	}
	if got := r.String(); got != "[2024-01-01, 2024-01-10]" {
		t.Errorf("String() = %q", got)
	}

	// Same day is a valid single-day range.
	if _, err := NewRange(day("2024-01-01"), day("2024-01-01")); err != nil {
		t.Errorf("single-day range error = %v", err)
	}

	_, err = NewRange(day("2024-01-10"), day("2024-01-01"))
	var rangeErr *InvalidRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("error = %v, want *InvalidRangeError", err)
	}
	if rangeErr.Error() != "invalid range: start 2024-01-10 is after end 2024-01-01" {
		t.Errorf("Error() = %q", rangeErr.Error())
	}
}

func TestRange_Covers(t *testing.T) {
	outer := Range{Start: day("2020-01-01"), End: day("2020-06-30")}
	if !outer.Covers(Range{Start: day("2020-02-01"), End: day("2020-06-30")}) {
		t.Error("inner range should be covered")
	}
	if outer.Covers(Range{Start: day("2019-12-31"), End: day("2020-01-05")}) {
		t.Error("range starting before should not be covered")
	}
}
