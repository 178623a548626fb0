// Package model defines shared data types used across the spread cache.
//
// Conventions:
//   - Dates: calendar days, time.Time at 00:00 UTC (see Day)
//   - Values: null.Float, Valid == false marks a missing observation
//   - Keys: one stored series per (ticker, field)
package model
