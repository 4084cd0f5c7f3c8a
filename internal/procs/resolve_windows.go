//go:build windows

package procs

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// snapshotResolver resolves process metadata from a Toolhelp process
// snapshot, the same bookkeeping Task Manager reads.
type snapshotResolver struct{}

func newPlatformResolver() Resolver {
	return &snapshotResolver{}
}

// Resolve walks the process snapshot for pid and, when possible, reads
// the full image path from a limited-information process handle.
func (r *snapshotResolver) Resolve(pid int) (model.ProcessTarget, error) {
	if pid <= 0 {
		return model.ProcessTarget{}, fmt.Errorf("pid %d: %w", pid, model.ErrNotFound)
	}

	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return model.ProcessTarget{}, fmt.Errorf("process snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	found := false
	for err := windows.Process32First(snapshot, &entry); err == nil; err = windows.Process32Next(snapshot, &entry) {
		if int(entry.ProcessID) == pid {
			found = true
			break
		}
	}
	if !found {
		return model.ProcessTarget{}, fmt.Errorf("pid %d: %w", pid, model.ErrNotFound)
	}

	target := model.ProcessTarget{
		PID:  pid,
		Name: windows.UTF16ToString(entry.ExeFile[:]),
	}

	// Full image path is best-effort: opening the handle can fail for
	// protected processes even though the snapshot listed them.
	if h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid)); err == nil {
		var buf [windows.MAX_PATH]uint16
		size := uint32(len(buf))
		if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err == nil {
			target.ExePath = windows.UTF16ToString(buf[:size])
		}
		windows.CloseHandle(h)
	}

	return target, nil
}

// mapWindowsError converts raw Win32 errors onto the shared taxonomy.
func mapWindowsError(pid int, err error) error {
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("pid %d: %w", pid, model.ErrPermissionDenied)
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		// OpenProcess reports a recycled or exited pid this way.
		return fmt.Errorf("pid %d: %w", pid, model.ErrAlreadyExited)
	default:
		return fmt.Errorf("pid %d: %w", pid, err)
	}
}
