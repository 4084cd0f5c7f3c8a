// Package model defines the domain types for the portreap CLI.
//
// This package contains pure data structures with no external dependencies
// beyond the platform signal tables: protocols, operation modes, kill
// targets (the process/container tagged union), per-target outcomes, the
// per-run report, and the error taxonomy shared by every other package.
//
// All entities are constructed fresh per invocation from live OS state.
// Nothing in this package is cached or persisted across runs — pids are
// reused by the kernel, so a stale target is a correctness hazard, not
// just a staleness nuisance.
package model
