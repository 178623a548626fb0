// Package coverage computes which parts of a requested date range are not
// yet held by a cached series.
//
// Coverage is tracked as a single contiguous [min, max] span per key, so
// only the two boundaries can be extended. Holes inside the span are not
// detected.
package coverage

import (
	"github.com/rickgao/spreadcache/internal/model"
)

// Result classifies a lookup against the cache.
type Result string

const (
	Hit     Result = "hit"     // Request fully inside the cached span
	Partial Result = "partial" // Cached span exists but misses one or both ends
	Miss    Result = "miss"    // Nothing cached for the key
)

// Gaps returns the ranges needed to extend span over req, in fetch order:
// the range before the span first, then the range after it. Each gap runs
// up to the span's edge even when req ends short of it, so the stored
// series stays contiguous across [min, max]. A nil span yields req itself.
func Gaps(req model.Range, span *model.Range) []model.Range {
	if span == nil {
		return []model.Range{req}
	}

	var gaps []model.Range

	if req.Start.Before(span.Start) {
		gaps = append(gaps, model.Range{
			Start: req.Start,
			End:   span.Start.AddDate(0, 0, -1),
		})
	}

	if req.End.After(span.End) {
		gaps = append(gaps, model.Range{
			Start: span.End.AddDate(0, 0, 1),
			End:   req.End,
		})
	}

	return gaps
}

// ForSeries is Gaps against the span of a cached series. An empty series
// counts as uncached.
func ForSeries(req model.Range, cached model.Series) []model.Range {
	span, ok := cached.Span()
	if !ok {
		return Gaps(req, nil)
	}
	return Gaps(req, &span)
}

// Classify names the outcome of a Gaps call.
func Classify(gaps []model.Range, cached bool) Result {
	switch {
	case !cached:
		return Miss
	case len(gaps) == 0:
		return Hit
	default:
		return Partial
	}
}
