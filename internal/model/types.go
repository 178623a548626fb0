package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the canonical text form of a Date.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date in t's own location and returns it
// at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// -----------------------------------------------------------------------------
// Keys
// -----------------------------------------------------------------------------

// Key identifies one stored series.
type Key struct {
	Ticker string // Instrument identifier (e.g. "COLOM 28s")
	Field  string // Data attribute (e.g. "YAS_ASW_SPREAD")
}

func (k Key) String() string {
	return k.Ticker + "/" + k.Field
}

// Validate rejects keys that cannot be stored safely.
func (k Key) Validate() error {
	if err := validComponent(k.Ticker); err != nil {
		return fmt.Errorf("ticker %q: %w", k.Ticker, err)
	}
	if err := validComponent(k.Field); err != nil {
		return fmt.Errorf("field %q: %w", k.Field, err)
	}
	return nil
}

func validComponent(s string) error {
	switch s {
	case "":
		return errors.New("empty")
	case ".", "..":
		return errors.New("reserved name")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Series
// -----------------------------------------------------------------------------

// Point is one observation of a field.
type Point struct {
	Date  time.Time  // Calendar day (00:00 UTC)
	Value null.Float // Invalid = missing
}

// FloatValue wraps f, mapping NaN and infinities to a missing value.
func FloatValue(f float64) null.Float {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// Series is an ordered run of points with strictly increasing dates.
type Series []Point

// Span returns the first and last date of the series.
func (s Series) Span() (Range, bool) {
	if len(s) == 0 {
		return Range{}, false
	}
	return Range{Start: s[0].Date, End: s[len(s)-1].Date}, true
}

// Slice returns the points whose dates fall inside r. The result shares
// no memory with s.
func (s Series) Slice(r Range) Series {
	lo := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(r.Start) })
	hi := sort.Search(len(s), func(i int) bool { return s[i].Date.After(r.End) })
	if lo >= hi {
		return nil
	}
	return s[lo:hi:hi].Clone()
}

// Clone returns a copy of s.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Validate checks the ordering invariant and that no NaN slipped in.
func (s Series) Validate() error {
	for i, p := range s {
		if p.Value.Valid && (math.IsNaN(p.Value.Float64) || math.IsInf(p.Value.Float64, 0)) {
			return fmt.Errorf("point %d (%s): non-finite value", i, p.Date.Format(DateLayout))
		}
		if i > 0 && !p.Date.After(s[i-1].Date) {
			return fmt.Errorf("point %d (%s): date not after %s", i,
				p.Date.Format(DateLayout), s[i-1].Date.Format(DateLayout))
		}
	}
	return nil
}

// Normalize truncates every date to a canonical day and maps non-finite
// values to missing. Ordering is left to the caller.
func (s Series) Normalize() Series {
	out := make(Series, len(s))
	for i, p := range s {
		v := p.Value
		if v.Valid {
			v = FloatValue(v.Float64)
		}
		out[i] = Point{Date: Day(p.Date), Value: v}
	}
	return out
}

// -----------------------------------------------------------------------------
// Ranges
// -----------------------------------------------------------------------------

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// NewRange normalizes start and end to days and checks their order.
func NewRange(start, end time.Time) (Range, error) {
	r := Range{Start: Day(start), End: Day(end)}
	if r.Start.After(r.End) {
		return Range{}, &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return r, nil
}

// Contains reports whether t lies inside r.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Covers reports whether o lies entirely inside r.
func (r Range) Covers(o Range) bool {
	return r.Contains(o.Start) && r.Contains(o.End)
}

func (r Range) String() string {
	return "[" + r.Start.Format(DateLayout) + ", " + r.End.Format(DateLayout) + "]"
}

// InvalidRangeError reports a range whose start is after its end.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: start %s is after end %s",
		e.Start.Format(DateLayout), e.End.Format(DateLayout))
}
