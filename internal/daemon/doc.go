// Package daemon owns the lifecycle of 'docent serve'.
//
// A Daemon takes an exclusive flock on the data directory lock file so two
// servers never write the same registry database, then runs the HTTP API and
// the optional periodic sheet sync under one errgroup. The first component to
// fail cancels the others; a cancelled parent context stops everything
// cleanly and releases the lock.
package daemon
