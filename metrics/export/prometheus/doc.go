// Package prometheus renders klingkit client metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] reads [klingkit.Client.MetricsSnapshot] on every render. Counter
// names are prefixed klingkit_*_total; the single histogram is
// klingkit_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler or call
//     WriteTo themselves.
//   - Mutate client state.
package prometheus
