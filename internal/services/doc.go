// Package services defines shared utilities consumed by the resolution
// service, the HTTP API, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp operation names and correlation identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified as caller mistakes or failing dependencies.
//
// Integrations with remote systems (the vision model) live in subpackages.
package services
