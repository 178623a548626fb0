// Package merge combines cached and freshly fetched pieces of a series and
// writes the union back to the store.
package merge

import (
	"sort"

	"github.com/rickgao/spreadcache/internal/model"
)

// Merge concatenates pieces, sorts them by date and keeps the first value
// seen for each date. Callers pass the cached series first, so stored data
// wins over fresh data at overlapping dates. That precedence keeps values
// that were already served stable across calls; it is not a statement about
// which source is more correct.
func Merge(pieces ...model.Series) model.Series {
	n := 0
	for _, p := range pieces {
		n += len(p)
	}
	if n == 0 {
		return nil
	}

	all := make(model.Series, 0, n)
	for _, p := range pieces {
		all = append(all, p...)
	}

	// Stable sort preserves concatenation order among equal dates.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.Before(all[j].Date)
	})

	out := all[:1]
	for _, p := range all[1:] {
		if p.Date.Equal(out[len(out)-1].Date) {
			continue
		}
		out = append(out, p)
	}
	return out
}
