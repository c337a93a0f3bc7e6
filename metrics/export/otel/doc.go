// Package otel publishes pmsGuard engine metrics as OpenTelemetry
// observable instruments.
//
// Counters become Int64ObservableCounters with the same names as the
// Prometheus exporter. The permission load histogram is published as one
// cumulative gauge per bucket plus a count gauge, since observable
// histograms do not exist in the metric API.
package otel
