// Package fetch issues the upstream calls needed to fill a request's
// coverage gaps.
//
// Fields with nothing cached are batched into a single full-range call.
// Fields with a partial span get one call per gap. All calls share a
// bounded worker pool and each runs under its own timeout, so a slow or
// failing call only costs the fields it was fetching.
package fetch
