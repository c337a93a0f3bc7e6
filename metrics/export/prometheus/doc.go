// Package prometheus publishes pmsGuard engine metrics through
// client_golang.
//
// [NewCollector] wraps an Engine as a prometheus.Collector; register it
// on any registry. [Handler] serves a private registry holding only the
// collector. Counter names are prefixed pmsguard_ and end in _total; the
// single histogram is pmsguard_permission_load_seconds.
package prometheus
