// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Requests and per-field lookup outcomes (hit, partial, miss)
//   - Upstream calls, failures and latency by fetch mode
//   - Store writes, write errors and corrupt records
package metrics
