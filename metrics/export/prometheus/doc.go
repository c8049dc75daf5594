// Package prometheus provides a Prometheus collector for goSnap metrics.
//
// [NewCollector] accepts a [goSnap.Client] and implements prometheus.Collector.
// Counter names are prefixed gosnap_*_total; the single histogram is
// gosnap_request_latency_seconds. [Collector.Handler] serves the collector
// from a private registry.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate client state.
package prometheus
