// Package reaper orchestrates termination: it resolves targets per
// port, applies dry-run suppression and signal selection, executes the
// per-target kills, and aggregates everything into the run report that
// decides the process exit status.
//
// Ports are independent of each other, so they are worked by a bounded
// pool of goroutines; the report is assembled by the single collecting
// goroutine, which is the only writer of shared state in the engine.
package reaper
