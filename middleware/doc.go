// Package middleware adapts pmsGuard.Engine decisions to net/http.
//
// # Gates
//
//   - [RequireSession] resolves the browser session cookie and enforces the
//     idle timeout.
//   - [RequirePermission] checks a permission code for the session principal.
//   - [RequireInternal] guards service-to-service routes with the shared secret.
//   - [RequireExternalAPIKey], [RateLimit] and [AllowIPs] guard the external API.
//
// Every gate asks the Engine first whether auth is globally disabled and
// becomes a pass-through when it is.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls and renders
// rejections with [WriteDecision]. It does not compare secrets, parse
// tokens, or read stores itself.
package middleware
