package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmr-tortoise/portreap/internal/docker"
	"github.com/mmr-tortoise/portreap/internal/model"
	"github.com/mmr-tortoise/portreap/internal/sockets"
)

// SocketEnumerator is the socket-table capability consumed here.
// Satisfied by sockets.NewEnumerator and by fakes in tests.
type SocketEnumerator interface {
	ListenersOnPort(ctx context.Context, port uint16, protocols []model.Protocol) ([]sockets.Listener, error)
}

// ProcessResolver maps pids to process metadata.
type ProcessResolver interface {
	Resolve(pid int) (model.ProcessTarget, error)
}

// ContainerRuntime is the attribution slice of the runtime capability.
type ContainerRuntime interface {
	AttributeByPID(ctx context.Context, pid int) (model.ContainerTarget, error)
	ContainersPublishingPort(ctx context.Context, port uint16) ([]model.ContainerTarget, error)
}

// Resolver resolves kill targets for one port at a time. It holds no
// mutable state, so one Resolver is safely shared by concurrent
// per-port workers.
type Resolver struct {
	sockets SocketEnumerator
	procs   ProcessResolver

	// runtime is nil when no container runtime client could be
	// constructed at startup. Modes that need attribution then degrade
	// exactly as if every runtime call had failed.
	runtime ContainerRuntime
}

// New creates a Resolver over the given capabilities. runtime may be
// nil when the container runtime is unavailable.
func New(socketEnum SocketEnumerator, procResolver ProcessResolver, runtime ContainerRuntime) *Resolver {
	return &Resolver{
		sockets: socketEnum,
		procs:   procResolver,
		runtime: runtime,
	}
}

// ResolveTargets returns the deduplicated, tie-broken targets for port
// under mode, plus any degradation warnings.
//
// The invariants enforced here:
//   - no two returned targets represent the same underlying process or
//     container (IPv4+IPv6 listeners of one server collapse to one);
//   - in ModeBoth, a process attributed to a container is represented
//     by the container alone — attribution wins the tie-break;
//   - a runtime failure never masquerades as "not containerized": it
//     degrades ModeBoth to process targets with a warning, and empties
//     ModeContainer with a warning, but never errors the port.
func (r *Resolver) ResolveTargets(ctx context.Context, port uint16, mode model.Mode) ([]model.KillTarget, []string, error) {
	listeners, err := r.sockets.ListenersOnPort(ctx, port, model.AllProtocols)
	if err != nil {
		return nil, nil, fmt.Errorf("enumerating sockets on port %d: %w", port, err)
	}

	var warnings []string

	// Resolve the owning processes, collapsing the per-protocol and
	// per-family listener rows onto unique pids up front.
	var processes []model.ProcessTarget
	seenPID := make(map[int]bool)
	sawUnjoined := false
	for _, l := range listeners {
		if l.PID == 0 {
			sawUnjoined = true
			continue
		}
		if seenPID[l.PID] {
			continue
		}
		seenPID[l.PID] = true

		proc, err := r.procs.Resolve(l.PID)
		switch {
		case err == nil:
			processes = append(processes, proc)
		case errors.Is(err, model.ErrNotFound):
			// The owner exited between enumeration and resolution.
			// A benign race: skip it, the socket is gone too.
		case errors.Is(err, model.ErrPermissionDenied):
			// The pid is real even though its metadata is not
			// readable; keep it as a bare target so the user sees
			// what holds the port.
			processes = append(processes, model.ProcessTarget{PID: l.PID})
			warnings = append(warnings, fmt.Sprintf("pid %d: metadata unreadable (insufficient privilege)", l.PID))
		default:
			return nil, nil, fmt.Errorf("resolving pid %d: %w", l.PID, err)
		}
	}
	if sawUnjoined {
		warnings = append(warnings, fmt.Sprintf(
			"port %d: socket owner could not be determined (try again with elevated privileges)", port))
	}

	// Container attribution. runtimeDown records that the runtime was
	// unreachable, which must degrade — not silently drop — the
	// container-aware modes.
	var containers []model.ContainerTarget
	coveredPIDs := make(map[int]bool)
	runtimeDown := r.runtime == nil

	if mode != model.ModeProcess && !runtimeDown {
		for _, proc := range processes {
			ctr, err := r.runtime.AttributeByPID(ctx, proc.PID)
			switch {
			case err == nil:
				containers = append(containers, ctr)
				coveredPIDs[proc.PID] = true
			case errors.Is(err, docker.ErrNoContainer):
				// Plain negative; the process stays a process.
			case errors.Is(err, model.ErrRuntimeUnavailable):
				runtimeDown = true
			default:
				return nil, nil, fmt.Errorf("attributing pid %d: %w", proc.PID, err)
			}
			if runtimeDown {
				break
			}
		}

		// Containers publishing the port through the runtime's proxy:
		// on Docker Desktop the host socket belongs to the proxy
		// process, so cgroup attribution alone would miss the real
		// owner entirely.
		if !runtimeDown {
			published, err := r.runtime.ContainersPublishingPort(ctx, port)
			if err != nil {
				if !errors.Is(err, model.ErrRuntimeUnavailable) {
					return nil, nil, err
				}
				runtimeDown = true
			} else {
				containers = append(containers, published...)
			}
		}
	}

	if runtimeDown && mode != model.ModeProcess {
		warnings = append(warnings, "container runtime unreachable; container attribution degraded")
		// Discard partial attribution results: acting on a container
		// through a dead runtime cannot work, and the processes those
		// containers covered must fall back to being raw targets.
		containers = nil
		coveredPIDs = make(map[int]bool)
	}

	// With a container claiming the port, the runtime's own proxy
	// processes are plumbing, not owners: killing docker-proxy would
	// leave the container running and the port re-bound moments later.
	if len(containers) > 0 {
		filtered := processes[:0]
		for _, proc := range processes {
			if isRuntimeHelper(proc) && !coveredPIDs[proc.PID] {
				continue
			}
			filtered = append(filtered, proc)
		}
		processes = filtered
	}

	return assemble(mode, processes, containers, coveredPIDs, runtimeDown), warnings, nil
}

// isRuntimeHelper reports whether the process looks like container
// runtime plumbing rather than a workload.
func isRuntimeHelper(p model.ProcessTarget) bool {
	name := strings.ToLower(p.Name)
	return strings.Contains(name, "docker") || strings.Contains(name, "vpnkit")
}

// assemble applies the mode filter and final identity dedup.
func assemble(mode model.Mode, processes []model.ProcessTarget, containers []model.ContainerTarget, coveredPIDs map[int]bool, runtimeDown bool) []model.KillTarget {
	var targets []model.KillTarget

	switch mode {
	case model.ModeProcess:
		for _, p := range processes {
			targets = append(targets, model.NewProcessTarget(p))
		}

	case model.ModeContainer:
		// Processes without a container are excluded silently, not
		// reported as failures. With the runtime down, nothing is
		// returned and the warning explains why.
		for _, c := range containers {
			targets = append(targets, model.NewContainerTarget(c))
		}

	case model.ModeBoth:
		for _, c := range containers {
			targets = append(targets, model.NewContainerTarget(c))
		}
		for _, p := range processes {
			if coveredPIDs[p.PID] {
				// Tie-break: the container above already represents
				// this process.
				continue
			}
			targets = append(targets, model.NewProcessTarget(p))
		}
	}

	return dedupeByIdentity(targets)
}

// dedupeByIdentity keeps the first occurrence of each identity,
// preserving discovery order.
func dedupeByIdentity(targets []model.KillTarget) []model.KillTarget {
	seen := make(map[string]bool, len(targets))
	out := targets[:0]
	for _, t := range targets {
		id := t.Identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, t)
	}
	return out
}
