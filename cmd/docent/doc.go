// Package main hosts the docent CLI entrypoint and command graph.
//
// The Cobra command tree serves the HTTP API, runs one-off identifications
// from the terminal, scores names against the registry for curators tuning
// the matcher, and maintains the registry database (CSV import, sheet sync,
// listing, removal). Configuration is resolved once per invocation and shared
// through commandContext so subcommands only deal with their own flags.
package main
