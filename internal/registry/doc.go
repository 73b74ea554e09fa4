// Package registry owns the museum's curated artifact list and the matcher
// that decides whether a free-text guess names one of its entries.
//
// Entries live in a SQLite database (Store) fed by CSV imports or a published
// spreadsheet export (SheetSource). A Snapshotter hands each resolution an
// immutable copy of the current entries, falling back to the built-in sample
// artifacts when the store is empty.
//
// The Matcher is pure: it scores a guess against every entry, keeps the first
// strictly-best entry, and only reports a match when the best score clears the
// acceptance threshold. The threshold is deliberately high so that an
// uncertain guess falls back to unverified AI text rather than showing another
// object's photos.
package registry
