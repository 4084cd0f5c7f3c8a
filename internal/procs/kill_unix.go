//go:build unix

package procs

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// unixKiller delivers signals with kill(2).
type unixKiller struct{}

func newPlatformKiller() Killer {
	return &unixKiller{}
}

// Signal sends sig to pid, mapping the two interesting kernel answers
// onto the taxonomy: ESRCH means the target won the race and exited on
// its own, EPERM means the caller needs more privilege.
func (k *unixKiller) Signal(pid int, sig model.Signal) error {
	if pid <= 0 {
		// Guard against signaling process groups by accident: kill(2)
		// interprets zero and negative pids as group addressing.
		return fmt.Errorf("refusing to signal pid %d: %w", pid, model.ErrNotFound)
	}

	err := unix.Kill(pid, syscall.Signal(sig.Num))
	switch err {
	case nil:
		return nil
	case unix.ESRCH:
		return fmt.Errorf("pid %d: %w", pid, model.ErrAlreadyExited)
	case unix.EPERM:
		return fmt.Errorf("pid %d: %w (try again with sudo)", pid, model.ErrPermissionDenied)
	default:
		return fmt.Errorf("signaling pid %d with %s: %w", pid, sig, err)
	}
}
