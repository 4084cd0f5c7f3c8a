package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/portreap/internal/docker"
	"github.com/mmr-tortoise/portreap/internal/model"
	"github.com/mmr-tortoise/portreap/internal/sockets"
)

// fakeSockets returns a fixed listener set for any port.
type fakeSockets struct {
	listeners []sockets.Listener
	err       error
}

func (f *fakeSockets) ListenersOnPort(_ context.Context, _ uint16, _ []model.Protocol) ([]sockets.Listener, error) {
	return f.listeners, f.err
}

// fakeProcs resolves pids from a fixed table; unknown pids are treated
// as exited.
type fakeProcs struct {
	table map[int]model.ProcessTarget
	errs  map[int]error
}

func (f *fakeProcs) Resolve(pid int) (model.ProcessTarget, error) {
	if err, ok := f.errs[pid]; ok {
		return model.ProcessTarget{}, err
	}
	if p, ok := f.table[pid]; ok {
		return p, nil
	}
	return model.ProcessTarget{}, model.ErrNotFound
}

// fakeRuntime attributes pids from a fixed table and serves a fixed
// published-container list. Setting down makes every call fail with
// ErrRuntimeUnavailable.
type fakeRuntime struct {
	byPID     map[int]model.ContainerTarget
	published []model.ContainerTarget
	down      bool
}

func (f *fakeRuntime) AttributeByPID(_ context.Context, pid int) (model.ContainerTarget, error) {
	if f.down {
		return model.ContainerTarget{}, model.ErrRuntimeUnavailable
	}
	if c, ok := f.byPID[pid]; ok {
		return c, nil
	}
	return model.ContainerTarget{}, docker.ErrNoContainer
}

func (f *fakeRuntime) ContainersPublishingPort(_ context.Context, _ uint16) ([]model.ContainerTarget, error) {
	if f.down {
		return nil, model.ErrRuntimeUnavailable
	}
	return f.published, nil
}

// listener is a shorthand for building test listener rows.
func listener(proto model.Protocol, pid int, inode uint64) sockets.Listener {
	return sockets.Listener{Port: 8080, Protocol: proto, PID: pid, Inode: inode}
}

// TestResolveTargets_DualStackDedup verifies that a server listening on
// both the IPv4 and IPv6 socket for one port resolves to exactly one
// kill target.
func TestResolveTargets_DualStackDedup(t *testing.T) {
	r := New(
		&fakeSockets{listeners: []sockets.Listener{
			listener(model.ProtocolTCP, 1000, 111), // IPv4 socket
			listener(model.ProtocolTCP, 1000, 222), // IPv6 socket, same owner
		}},
		&fakeProcs{table: map[int]model.ProcessTarget{
			1000: {PID: 1000, Name: "node"},
		}},
		nil,
	)

	targets, _, err := r.ResolveTargets(context.Background(), 8080, model.ModeProcess)
	require.NoError(t, err)
	require.Len(t, targets, 1, "dual-stack listeners must collapse to one target")
	assert.Equal(t, "pid:1000", targets[0].Identity())
}

// TestResolveTargets_ModeProcess verifies that process mode never
// returns a container, even for a fully attributed process.
func TestResolveTargets_ModeProcess(t *testing.T) {
	r := New(
		&fakeSockets{listeners: []sockets.Listener{listener(model.ProtocolTCP, 1000, 111)}},
		&fakeProcs{table: map[int]model.ProcessTarget{1000: {PID: 1000, Name: "postgres"}}},
		&fakeRuntime{byPID: map[int]model.ContainerTarget{
			1000: {ID: "c1", Name: "db", Runtime: "docker"},
		}},
	)

	targets, _, err := r.ResolveTargets(context.Background(), 8080, model.ModeProcess)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, model.KindProcess, targets[0].Kind)
}

// TestResolveTargets_ModeContainer verifies that container mode drops
// non-containerized processes silently (not failures) and never
// returns a process target.
func TestResolveTargets_ModeContainer(t *testing.T) {
	r := New(
		&fakeSockets{listeners: []sockets.Listener{
			listener(model.ProtocolTCP, 1000, 111), // containerized
			listener(model.ProtocolTCP, 2000, 222), // plain host process
		}},
		&fakeProcs{table: map[int]model.ProcessTarget{
			1000: {PID: 1000, Name: "postgres"},
			2000: {PID: 2000, Name: "nginx"},
		}},
		&fakeRuntime{byPID: map[int]model.ContainerTarget{
			1000: {ID: "c1", Name: "db", Runtime: "docker"},
		}},
	)

	targets, warnings, err := r.ResolveTargets(context.Background(), 8080, model.ModeContainer)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, model.KindContainer, targets[0].Kind)
	assert.Equal(t, "container:c1", targets[0].Identity())
	assert.Empty(t, warnings, "dropping non-containerized processes is not a warning")
}

// TestResolveTargets_ModeBoth_TieBreak verifies the central tie-break:
// a containerized process yields exactly one target — the container —
// never both the container and the duplicate process entry.
func TestResolveTargets_ModeBoth_TieBreak(t *testing.T) {
	r := New(
		&fakeSockets{listeners: []sockets.Listener{listener(model.ProtocolTCP, 1000, 111)}},
		&fakeProcs{table: map[int]model.ProcessTarget{1000: {PID: 1000, Name: "postgres"}}},
		&fakeRuntime{byPID: map[int]model.ContainerTarget{
			1000: {ID: "c1", Name: "db", Runtime: "docker"},
		}},
	)

	targets, _, err := r.ResolveTargets(context.Background(), 8080, model.ModeBoth)
	require.NoError(t, err)
	require.Len(t, targets, 1, "container and its process must not both appear")
	assert.Equal(t, model.KindContainer, targets[0].Kind)
}

// TestResolveTargets_ModeBoth_MixedOwners verifies that Both mode
// returns a container for attributed processes and a process target for
// unattributed ones, side by side.
func TestResolveTargets_ModeBoth_MixedOwners(t *testing.T) {
	r := New(
		&fakeSockets{listeners: []sockets.Listener{
			listener(model.ProtocolTCP, 1000, 111),
			listener(model.ProtocolUDP, 2000, 222),
		}},
		&fakeProcs{table: map[int]model.ProcessTarget{
			1000: {PID: 1000, Name: "postgres"},
			2000: {PID: 2000, Name: "dnsmasq"},
		}},
		&fakeRuntime{byPID: map[int]model.ContainerTarget{
			1000: {ID: "c1", Name: "db", Runtime: "docker"},
		}},
	)

	targets, _, err := r.ResolveTargets(context.Background(), 8080, model.ModeBoth)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	kinds := map[model.TargetKind]int{}
	for _, tgt := range targets {
		kinds[tgt.Kind]++
	}
	assert.Equal(t, 1, kinds[model.KindContainer])
	assert.Equal(t, 1, kinds[model.KindProcess])
}

// TestResolveTargets_RuntimeDown_BothFallsBack verifies the degradation
// contract: with the runtime unreachable and Mode=Both, the raw process
// is still targeted and a warning flags the degraded attribution.
func TestResolveTargets_RuntimeDown_BothFallsBack(t *testing.T) {
	r := New(
		&fakeSockets{listeners: []sockets.Listener{listener(model.ProtocolTCP, 1000, 111)}},
		&fakeProcs{table: map[int]model.ProcessTarget{1000: {PID: 1000, Name: "postgres"}}},
		&fakeRuntime{down: true},
	)

	targets, warnings, err := r.ResolveTargets(context.Background(), 8080, model.ModeBoth)
	require.NoError(t, err, "a down runtime must not fail the port")
	require.Len(t, targets, 1)
	assert.Equal(t, model.KindProcess, targets[0].Kind)
	require.NotEmpty(t, warnings, "runtime degradation must be flagged")
	assert.Contains(t, warnings[0], "runtime unreachable")
}

// TestResolveTargets_RuntimeDown_ContainerModeEmpty verifies that
// container mode with a down runtime yields no targets plus a warning —
// not an error, and not a silent empty set.
func TestResolveTargets_RuntimeDown_ContainerModeEmpty(t *testing.T) {
	r := New(
		&fakeSockets{listeners: []sockets.Listener{listener(model.ProtocolTCP, 1000, 111)}},
		&fakeProcs{table: map[int]model.ProcessTarget{1000: {PID: 1000, Name: "postgres"}}},
		&fakeRuntime{down: true},
	)

	targets, warnings, err := r.ResolveTargets(context.Background(), 8080, model.ModeContainer)
	require.NoError(t, err)
	assert.Empty(t, targets)
	assert.NotEmpty(t, warnings)
}

// TestResolveTargets_NilRuntime verifies that a nil runtime client
// (none could be constructed at startup) behaves like a down runtime.
func TestResolveTargets_NilRuntime(t *testing.T) {
	r := New(
		&fakeSockets{listeners: []sockets.Listener{listener(model.ProtocolTCP, 1000, 111)}},
		&fakeProcs{table: map[int]model.ProcessTarget{1000: {PID: 1000, Name: "postgres"}}},
		nil,
	)

	targets, warnings, err := r.ResolveTargets(context.Background(), 8080, model.ModeBoth)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, model.KindProcess, targets[0].Kind)
	assert.NotEmpty(t, warnings)
}

// TestResolveTargets_PublishedPortContainer verifies the proxy-owned
// socket case: the host listener is docker-proxy, and the published-
// port query is what finds the real container. The proxy process must
// be suppressed rather than killed.
func TestResolveTargets_PublishedPortContainer(t *testing.T) {
	r := New(
		&fakeSockets{listeners: []sockets.Listener{listener(model.ProtocolTCP, 3000, 111)}},
		&fakeProcs{table: map[int]model.ProcessTarget{
			3000: {PID: 3000, Name: "docker-proxy"},
		}},
		&fakeRuntime{published: []model.ContainerTarget{
			{ID: "c9", Name: "web", Runtime: "docker"},
		}},
	)

	targets, _, err := r.ResolveTargets(context.Background(), 8080, model.ModeBoth)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, model.KindContainer, targets[0].Kind)
	assert.Equal(t, "container:c9", targets[0].Identity())
}

// TestResolveTargets_ExitedOwnerSkipped verifies the enumeration/
// resolution race: a pid that vanished in between is skipped without
// failing the port.
func TestResolveTargets_ExitedOwnerSkipped(t *testing.T) {
	r := New(
		&fakeSockets{listeners: []sockets.Listener{
			listener(model.ProtocolTCP, 1000, 111), // gone by resolution time
			listener(model.ProtocolTCP, 2000, 222),
		}},
		&fakeProcs{table: map[int]model.ProcessTarget{
			2000: {PID: 2000, Name: "nginx"},
		}},
		nil,
	)

	targets, _, err := r.ResolveTargets(context.Background(), 8080, model.ModeProcess)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "pid:2000", targets[0].Identity())
}

// TestResolveTargets_NoListeners verifies the empty answer for a free
// port: no targets, no warnings, no error.
func TestResolveTargets_NoListeners(t *testing.T) {
	r := New(&fakeSockets{}, &fakeProcs{}, nil)

	targets, warnings, err := r.ResolveTargets(context.Background(), 9999, model.ModeBoth)
	require.NoError(t, err)
	assert.Empty(t, targets)
	assert.Empty(t, warnings)
}

// TestResolveTargets_UnreadableOwner verifies that a pid whose metadata
// is permission-protected still becomes a bare target with a warning:
// the user should see what holds the port even without its name.
func TestResolveTargets_UnreadableOwner(t *testing.T) {
	r := New(
		&fakeSockets{listeners: []sockets.Listener{listener(model.ProtocolTCP, 1000, 111)}},
		&fakeProcs{errs: map[int]error{1000: model.ErrPermissionDenied}},
		nil,
	)

	targets, warnings, err := r.ResolveTargets(context.Background(), 8080, model.ModeProcess)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, 1000, targets[0].Process.PID)
	assert.NotEmpty(t, warnings)
}
