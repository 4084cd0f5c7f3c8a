// Package procs resolves pids to process metadata and delivers
// termination signals to them.
//
// Resolution re-verifies that the process still exists at call time.
// Pids are recycled by the kernel and a socket-table snapshot can
// outlive its owner, so "it was there a moment ago" is never trusted:
// a vanished process resolves to model.ErrNotFound, and a vanished
// signal target maps to model.ErrAlreadyExited. Neither is treated as a
// hard error by callers.
package procs
