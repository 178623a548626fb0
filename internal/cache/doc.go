// Package cache serves multi-field date-range requests from a persisted
// store, fetching only what the store does not yet hold.
//
// A call proceeds in four steps:
//  1. Load each field's stored series and compute its coverage gaps.
//  2. Fetch uncached fields in one batched call and each gap separately.
//  3. Merge fetched points into the stored series and save the superset.
//  4. Align the fields into a table sliced to the requested window.
//
// Upstream failures degrade to missing or partial columns rather than
// failing the whole call.
package cache
