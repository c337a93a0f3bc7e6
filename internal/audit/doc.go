// Package audit implements async event dispatching for gate decisions and
// other security-relevant operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured audit record with ULID, boundary, principal, IP, reason.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the Engine does that.
//   - Import pmsGuard.
//   - Record secrets, API keys, TOTP codes, or guest tokens.
package audit
