//go:build linux

package sockets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// procEnumerator reads the Linux socket tables under procRoot. The root
// is a field (rather than a constant) so tests can point it at a
// fixture tree instead of the live /proc.
type procEnumerator struct {
	procRoot string
}

func newPlatformEnumerator() Enumerator {
	return &procEnumerator{procRoot: "/proc"}
}

// tableFiles maps a protocol to its IPv4 and IPv6 table files. Both
// families are always read: a server listening on :: and 0.0.0.0 is one
// server, and the resolver deduplicates by owner afterwards.
func (e *procEnumerator) tableFiles(proto model.Protocol) []string {
	switch proto {
	case model.ProtocolTCP:
		return []string{
			filepath.Join(e.procRoot, "net", "tcp"),
			filepath.Join(e.procRoot, "net", "tcp6"),
		}
	case model.ProtocolUDP:
		return []string{
			filepath.Join(e.procRoot, "net", "udp"),
			filepath.Join(e.procRoot, "net", "udp6"),
		}
	default:
		return nil
	}
}

// ListenersOnPort scans the socket tables for the requested protocols,
// then joins matching socket inodes to owning pids through the per-pid
// descriptor directories.
func (e *procEnumerator) ListenersOnPort(ctx context.Context, port uint16, protocols []model.Protocol) ([]Listener, error) {
	type match struct {
		proto model.Protocol
		inode uint64
	}
	var matches []match

	for _, proto := range protocols {
		requireListen := proto == model.ProtocolTCP
		for _, path := range e.tableFiles(proto) {
			f, err := os.Open(path)
			if err != nil {
				// tcp6/udp6 are absent on kernels built without IPv6.
				continue
			}
			inodes := matchingInodes(parseProcNet(f), port, requireListen)
			_ = f.Close()
			for _, ino := range inodes {
				matches = append(matches, match{proto: proto, inode: ino})
			}
		}
	}

	if len(matches) == 0 {
		return nil, nil
	}

	// Only walk every process's descriptor table when at least one
	// socket matched; the walk is the expensive half of the scan.
	owners, err := e.inodeOwners(ctx)
	if err != nil {
		return nil, err
	}

	listeners := make([]Listener, 0, len(matches))
	for _, m := range matches {
		listeners = append(listeners, Listener{
			Port:     port,
			Protocol: m.proto,
			PID:      owners[m.inode], // zero when the join failed
			Inode:    m.inode,
		})
	}
	return listeners, nil
}

// inodeOwners builds the socket-inode-to-pid map by reading the fd
// symlinks of every live process. A process whose descriptor directory
// cannot be read (permission, or it exited mid-scan) is skipped; the
// table snapshot is racy by nature and a partial join is still useful.
func (e *procEnumerator) inodeOwners(ctx context.Context) (map[uint64]int, error) {
	entries, err := os.ReadDir(e.procRoot)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.procRoot, err)
	}

	owners := make(map[uint64]int)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		fdDir := filepath.Join(e.procRoot, entry.Name(), "fd")
		fds, err := os.ReadDir(fdDir)
		if err != nil {
			continue
		}

		for _, fd := range fds {
			link, err := os.Readlink(filepath.Join(fdDir, fd.Name()))
			if err != nil {
				continue
			}
			// Socket descriptors read back as "socket:[<inode>]".
			if !strings.HasPrefix(link, "socket:[") || !strings.HasSuffix(link, "]") {
				continue
			}
			ino, err := strconv.ParseUint(link[len("socket:["):len(link)-1], 10, 64)
			if err != nil {
				continue
			}
			if _, claimed := owners[ino]; !claimed {
				// First claimant wins. /proc is ordered by pid, so
				// this prefers the parent over forked children that
				// share the listening descriptor.
				owners[ino] = pid
			}
		}
	}
	return owners, nil
}
