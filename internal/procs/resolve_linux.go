//go:build linux

package procs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// procResolver reads process metadata from /proc. The root is a field
// so tests can substitute a fixture tree.
type procResolver struct {
	procRoot string
}

func newPlatformResolver() Resolver {
	return &procResolver{procRoot: "/proc"}
}

// Resolve reads /proc/<pid>/comm for the short name and follows the exe
// symlink for the executable path. A missing pid directory means the
// process exited between enumeration and resolution.
func (r *procResolver) Resolve(pid int) (model.ProcessTarget, error) {
	if pid <= 0 {
		return model.ProcessTarget{}, fmt.Errorf("pid %d: %w", pid, model.ErrNotFound)
	}

	base := filepath.Join(r.procRoot, strconv.Itoa(pid))

	comm, err := os.ReadFile(filepath.Join(base, "comm"))
	if err != nil {
		if os.IsNotExist(err) {
			return model.ProcessTarget{}, fmt.Errorf("pid %d: %w", pid, model.ErrNotFound)
		}
		if os.IsPermission(err) {
			return model.ProcessTarget{}, fmt.Errorf("pid %d: %w", pid, model.ErrPermissionDenied)
		}
		return model.ProcessTarget{}, fmt.Errorf("reading comm for pid %d: %w", pid, err)
	}

	target := model.ProcessTarget{
		PID:  pid,
		Name: strings.TrimSpace(string(comm)),
	}

	// The exe link needs more privilege than comm (ptrace-readable
	// only). Best-effort: an unreadable path is left empty rather than
	// failing a resolution that already confirmed the process exists.
	if exe, err := os.Readlink(filepath.Join(base, "exe")); err == nil {
		target.ExePath = exe
	}

	return target, nil
}
