// Package pmsGuard is the authorization and trust layer of the property
// management system. It decides, for every request on one of four trust
// boundaries (browser session, internal service call, external API consumer,
// anonymous guest link), whether the caller may proceed.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// pmsGuard is the public surface. It exposes [Engine], [Builder], [Config],
// [Decision] and value types (Principal, GuestResource, MetricsSnapshot).
// Session cookies, the permission cache, rate limiting and audit dispatch
// live in sub-packages. Persistence is a collaborator behind [Store]; the
// implementations live under store/.
//
// Every gate consults the auth-disabled flag first. When it is set, gates
// return [Continue] without further checks. Guest token access never
// touches sessions or permissions.
//
// # What this package must NOT do
//
//   - Log secrets, API keys, TOTP codes or guest tokens.
//   - Grant access on a store failure. Failures resolve to the empty
//     permission set, no principal, or NotFound.
//   - Re-read the auth-disabled flag from the store on its own. Refresh is
//     always caller-triggered.
//   - Import any sub-package that re-imports pmsGuard (no import cycles).
package pmsGuard
