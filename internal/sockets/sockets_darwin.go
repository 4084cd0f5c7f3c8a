//go:build darwin

package sockets

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// lsofTimeout bounds each lsof invocation. Walking every process's
// descriptor table can stall on dead NFS mounts or wedged processes;
// the enumeration must degrade rather than hang.
const lsofTimeout = 10 * time.Second

// lsofEnumerator discovers socket owners on macOS. Darwin has no global
// socket table to parse; ownership lives in each process's descriptor
// table, which lsof walks via proc_pidinfo with the privileges and
// fallbacks Apple maintains. The command is pinned to terse pid-only
// output so the contract with the binary is a list of integers.
type lsofEnumerator struct{}

func newPlatformEnumerator() Enumerator {
	return &lsofEnumerator{}
}

// ListenersOnPort shells out to lsof once per protocol:
//
//	lsof -nP -iTCP:<port> -sTCP:LISTEN -t
//	lsof -nP -iUDP:<port> -t
//
// -n and -P suppress DNS and service-name resolution (pure numeric
// output, no network traffic), -t prints bare pids. UDP has no LISTEN
// state, so no -s filter applies there.
func (e *lsofEnumerator) ListenersOnPort(ctx context.Context, port uint16, protocols []model.Protocol) ([]Listener, error) {
	var listeners []Listener

	for _, proto := range protocols {
		var args []string
		switch proto {
		case model.ProtocolTCP:
			args = []string{"-nP", fmt.Sprintf("-iTCP:%d", port), "-sTCP:LISTEN", "-t"}
		case model.ProtocolUDP:
			args = []string{"-nP", fmt.Sprintf("-iUDP:%d", port), "-t"}
		default:
			continue
		}

		runCtx, cancel := context.WithTimeout(ctx, lsofTimeout)
		out, err := exec.CommandContext(runCtx, "lsof", args...).Output()
		cancel()
		if err != nil {
			// lsof exits 1 both for "no matches" and for per-process
			// permission failures it skipped over. Either way the
			// useful answer is whatever pids it did print, which for
			// exit 1 with empty output is none. Only a cancelled
			// context is a real error.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
			pid, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil || pid <= 0 {
				continue
			}
			listeners = append(listeners, Listener{
				Port:     port,
				Protocol: proto,
				PID:      pid,
			})
		}
	}

	return listeners, nil
}
