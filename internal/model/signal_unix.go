//go:build unix

package model

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// signalNum resolves a canonical SIG-prefixed name to the platform
// signal number via the x/sys table, so the numbering is correct on
// every Unix variant (signal numbers differ between Linux and Darwin).
// Returns 0 for unknown names.
func signalNum(name string) int {
	return int(unix.SignalNum(name))
}

// signalName resolves a signal number back to its canonical name.
// Returns "" for numbers outside the platform's signal range.
func signalName(num int) string {
	if num <= 0 {
		return ""
	}
	return unix.SignalName(syscall.Signal(num))
}
