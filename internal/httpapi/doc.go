// Package httpapi wires the pmsGuard engine and middleware into a chi router.
//
// Routes fall into trust boundaries: public auth endpoints, session routes
// under /api/me and /api/admin, the internal call gate under /api/internal,
// the external API gate under /api/v1/external, and guest token pages under
// /check-in/guest and /pay. Host applications mount their own handlers into
// each boundary through [Deps].
package httpapi
