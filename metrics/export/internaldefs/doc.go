// Package internaldefs holds the metric names and bucket boundaries shared by the
// Prometheus and OTel exporters.
//
// Changing a definition here changes it for every exporter at once.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
