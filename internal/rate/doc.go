// Package rate provides the counters behind login throttling and the external
// API request budget.
//
// # Backends
//
//   - [Limiter]: Redis fixed-window counters shared by every process, INCR plus
//     EXPIRE on the first hit of a window.
//   - [LocalLimiter]: in-process fallback using token buckets from golang.org/x/time/rate
//     for request budgets and expiring counters for login failures.
//
// Key prefixes:
//   - al: login failures per identifier
//   - ali: login failures per IP
//   - api: external API requests per key or IP
//
// # What this package must NOT do
//
//   - Decide which requests are throttled; the Engine picks the keys.
//   - Be imported outside the pmsGuard module.
package rate
