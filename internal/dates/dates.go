// Package dates parses the date strings accepted on the command line and
// returned by upstream providers.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-module/carbon"

	"github.com/rickgao/spreadcache/internal/model"
)

// ErrEmpty is returned for a blank date string.
var ErrEmpty = errors.New("empty date")

// Parse reads s as a calendar day. Plain dates, datetimes and RFC 3339
// timestamps are accepted; zone-less values are read as UTC. The result is
// a canonical day.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmpty
	}
	c := carbon.Parse(s, "UTC")
	if c.Error != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, c.Error)
	}
	if c.Time.IsZero() {
		return time.Time{}, fmt.Errorf("parse date %q: unrecognized layout", s)
	}
	return model.Day(c.Time), nil
}

// ParseRange parses both ends and checks their order.
func ParseRange(start, end string) (model.Range, error) {
	s, err := Parse(start)
	if err != nil {
		return model.Range{}, fmt.Errorf("start: %w", err)
	}
	e, err := Parse(end)
	if err != nil {
		return model.Range{}, fmt.Errorf("end: %w", err)
	}
	return model.NewRange(s, e)
}

// FromMillis converts a Unix millisecond timestamp to its UTC day.
func FromMillis(ms int64) time.Time {
	return model.Day(time.UnixMilli(ms).UTC())
}

// Lookback returns the range of days ending on now's UTC day and reaching
// back days-1 days before it.
func Lookback(now time.Time, days int) model.Range {
	if days < 1 {
		days = 1
	}
	end := model.Day(now.UTC())
	return model.Range{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}
