//go:build windows

package procs

import (
	"golang.org/x/sys/windows"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// terminateKiller ends processes with TerminateProcess. Windows has no
// kill(2)-style signal delivery to arbitrary processes, so whatever
// signal the user selected, the raw-process action is unconditional
// termination; the chosen signal still matters for container targets.
type terminateKiller struct{}

func newPlatformKiller() Killer {
	return &terminateKiller{}
}

// Signal opens pid with terminate rights and ends it.
func (k *terminateKiller) Signal(pid int, sig model.Signal) error {
	if pid <= 0 {
		return mapWindowsError(pid, windows.ERROR_INVALID_PARAMETER)
	}

	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return mapWindowsError(pid, err)
	}
	defer windows.CloseHandle(handle)

	if err := windows.TerminateProcess(handle, 1); err != nil {
		return mapWindowsError(pid, err)
	}
	return nil
}
