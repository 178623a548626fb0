// Package warmer keeps configured tickers cached ahead of demand.
//
// The Warmer:
//   - Runs a refresh cycle on a fixed interval (and once at start)
//   - Requests each target over a trailing lookback window, so only the
//     newest days reach the upstream once the window is cached
//   - Bounds concurrent targets and gives each its own timeout
//   - Never overlaps cycles
package warmer
