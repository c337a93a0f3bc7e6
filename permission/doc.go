// Package permission maps roles to the permission codes they grant and caches
// that mapping per process.
//
// # Caching
//
// [Resolver] keeps one entry per role for a fixed time-to-live (120 seconds by
// default). An entry is never served once its TTL has elapsed. Concurrent misses
// for the same role share a single load from the [Source]; misses for different
// roles load in parallel.
//
// # Failure handling
//
// A failed load is returned to the caller and never cached. Callers that need a
// fail-closed answer treat the error as an empty [Set].
//
// # What this package must NOT do
//
//   - Import pmsGuard, session, or middleware.
//   - Share cache state across processes.
package permission
