// Package internal contains helpers private to pmsGuard, currently guest
// link token generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - httpapi: chi router wiring every trust boundary
//   - ids: sortable ULID event ids
//   - logger: process zap logger
//   - rate: Redis and in-process rate limits
//   - secret: constant-effort shared secret comparison
//
// # What this package must NOT do
//
//   - Export types that appear in the public pmsGuard API.
//   - Be imported by any package outside the pmsGuard module.
package internal
