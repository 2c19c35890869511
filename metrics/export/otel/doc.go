// Package otel binds klingkit client metrics to OpenTelemetry instruments.
//
// [NewExporter] registers an Int64ObservableCounter per client counter. The latency
// histogram becomes two gauges: <name>_bucket, one data point per upper bound tagged with
// [BucketBoundKey], and <name>_count. A single callback reads
// [klingkit.Client.MetricsSnapshot] on each collection cycle.
//
// klingdiag --otel-metrics collects these through a manual reader after each call.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
