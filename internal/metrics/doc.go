// Package metrics exposes Prometheus instrumentation for artifact resolution,
// the vision model, and the HTTP API.
package metrics
