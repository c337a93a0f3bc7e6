// Package session turns the staff session cookie into a principal reference
// and back.
//
// Two cookies are involved:
//
//   - the session cookie carries a signed token (see package jwt) naming the
//     principal; it expires after the session TTL.
//   - the activity cookie carries the time of the last authenticated request
//     and drives the idle timeout.
//
// # What this package must NOT do
//
//   - Load principals or evaluate permissions; the Engine does that.
//   - Import pmsGuard or permission.
package session
