// Package resolution turns a vision model's guess into the payload shown to a
// museum visitor.
//
// Resolver is the pure decision step: it trusts the model's "matched" flag
// only as a gate, recomputes similarity against the registry itself, and tags
// the result with its provenance. A registry response carries the curated
// entry's photos; a guess response never carries photos.
//
// Service composes a registry snapshot, a Vision collaborator, and the
// Resolver, and records every decision in logs and metrics.
package resolution
