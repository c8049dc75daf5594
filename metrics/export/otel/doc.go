// Package otel provides OpenTelemetry metric exporter bindings for goSnap
// counters and the request latency histogram.
//
// [NewOTelExporter] registers an Int64ObservableCounter per goSnap counter
// and, per histogram, one Int64ObservableGauge carrying an "le" attribute per
// bucket plus a count gauge. A single callback reads
// [goSnap.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
