//go:build darwin

package procs

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// psTimeout bounds each ps invocation; metadata lookup must degrade
// rather than hang the run.
const psTimeout = 5 * time.Second

// psResolver resolves process metadata on macOS via ps. Darwin exposes
// no /proc; the supported paths are libproc (cgo) or the ps utility,
// and ps keeps the binary cgo-free.
type psResolver struct{}

func newPlatformResolver() Resolver {
	return &psResolver{}
}

// Resolve confirms the process exists with a null signal, then asks ps
// for its command path. kill(pid, 0) delivers nothing but performs the
// full permission and existence checks.
func (r *psResolver) Resolve(pid int) (model.ProcessTarget, error) {
	if pid <= 0 {
		return model.ProcessTarget{}, fmt.Errorf("pid %d: %w", pid, model.ErrNotFound)
	}

	if err := unix.Kill(pid, 0); err != nil {
		switch err {
		case unix.ESRCH:
			return model.ProcessTarget{}, fmt.Errorf("pid %d: %w", pid, model.ErrNotFound)
		case unix.EPERM:
			// EPERM means the process exists but belongs to someone
			// else. That is still a live target; name resolution below
			// proceeds best-effort.
		default:
			return model.ProcessTarget{}, fmt.Errorf("checking pid %d: %w", pid, err)
		}
	}

	target := model.ProcessTarget{PID: pid}

	ctx, cancel := context.WithTimeout(context.Background(), psTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "ps", "-p", strconv.Itoa(pid), "-o", "comm=").Output()
	if err == nil {
		path := strings.TrimSpace(string(out))
		target.ExePath = path
		if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
			target.Name = path[idx+1:]
		} else {
			target.Name = path
		}
	}

	return target, nil
}
